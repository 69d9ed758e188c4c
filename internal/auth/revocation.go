package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RevocationStore remembers logged-out token ids until they expire.
type RevocationStore interface {
	// Revoke reports whether this call revoked jti; false means it was
	// already revoked.
	Revoke(ctx context.Context, jti uuid.UUID, expiresAt time.Time) (bool, error)
	IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type postgresRevocationStore struct {
	db *pgxpool.Pool
}

func NewRevocationStore(db *pgxpool.Pool) RevocationStore {
	return &postgresRevocationStore{db: db}
}

func (s *postgresRevocationStore) Revoke(ctx context.Context, jti uuid.UUID, expiresAt time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING`, jti, expiresAt)
	if err != nil {
		return false, fmt.Errorf("repository: failed to revoke token %s: %w", jti, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *postgresRevocationStore) IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error) {
	var revoked bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check token %s: %w", jti, err)
	}
	return revoked, nil
}

func (s *postgresRevocationStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to purge revoked tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
