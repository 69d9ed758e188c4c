package db

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally restricted to the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	return hasCode(err, pgerrcode.UniqueViolation, constraint)
}

func IsForeignKeyViolation(err error) bool {
	return hasCode(err, pgerrcode.ForeignKeyViolation, "")
}

// IsForeignKeyViolationOn is IsForeignKeyViolation limited to one constraint,
// for tables that reference more than one parent.
func IsForeignKeyViolationOn(err error, constraint string) bool {
	return constraint != "" && hasCode(err, pgerrcode.ForeignKeyViolation, constraint)
}

func IsCheckViolation(err error) bool {
	return hasCode(err, pgerrcode.CheckViolation, "")
}

func hasCode(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
