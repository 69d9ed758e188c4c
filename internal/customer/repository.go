package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/db"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrInvalidInput     = errors.New("invalid customer input")
)

const usernameConstraint = "users_username_key"

type Repository interface {
	CreateWithUser(ctx context.Context, u *User, c *Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Customer, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	EnsureForUser(ctx context.Context, userID uuid.UUID) (*Customer, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*Customer, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const selectCustomer = `
	SELECT c.id, c.user_id, u.username, u.email, c.billing_address, c.shipping_address,
	       c.payment_info, c.created_at, c.updated_at
	FROM customers c
	JOIN users u ON u.id = c.user_id
`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Username,
		&c.Email,
		&c.BillingAddress,
		&c.ShippingAddress,
		&c.PaymentInfo,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepository) CreateWithUser(ctx context.Context, u *User, c *Customer) (err error) {
	if u.ID == uuid.Nil {
		if u.ID, err = uuid.NewV4(); err != nil {
			return fmt.Errorf("repository: failed to generate user ID: %w", err)
		}
	}
	if c.ID == uuid.Nil {
		if c.ID, err = uuid.NewV4(); err != nil {
			return fmt.Errorf("repository: failed to generate customer ID: %w", err)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Str("username", u.Username).Msg("repository: failed to rollback registration")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit registration: %w", commitErr)
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		u.ID, u.Username, u.Email, u.PasswordHash,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, usernameConstraint) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("repository: failed to insert user: %w", err)
	}

	c.UserID = u.ID
	c.Username = u.Username
	c.Email = u.Email
	err = tx.QueryRow(ctx, `
		INSERT INTO customers (id, user_id, billing_address, shipping_address, payment_info)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.BillingAddress, c.ShippingAddress, c.PaymentInfo,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert customer: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, selectCustomer+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("repository: failed to select customer %s: %w", id, err)
	}
	return c, nil
}

func (r *postgresRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, selectCustomer+` WHERE c.user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("repository: failed to select customer for user %s: %w", userID, err)
	}
	return c, nil
}

func (r *postgresRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.db.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user %q: %w", username, err)
	}
	return &u, nil
}

// EnsureForUser returns the user's customer profile, creating an empty one if
// the user has none yet.
func (r *postgresRepository) EnsureForUser(ctx context.Context, userID uuid.UUID) (*Customer, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate customer ID: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO customers (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`, id, userID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: failed to ensure customer for user %s: %w", userID, err)
	}

	return r.GetByUserID(ctx, userID)
}

func (r *postgresRepository) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (updated *Customer, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("customer_id", id).Msg("repository: failed to rollback profile update")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			updated = nil
			err = fmt.Errorf("repository: failed to commit profile update: %w", commitErr)
		}
	}()

	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE customers
		SET billing_address  = COALESCE($2, billing_address),
		    shipping_address = COALESCE($3, shipping_address),
		    payment_info     = COALESCE($4, payment_info),
		    updated_at       = NOW()
		WHERE id = $1
		RETURNING user_id`,
		id, upd.BillingAddress, upd.ShippingAddress, upd.PaymentInfo,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("repository: failed to update customer %s: %w", id, err)
	}

	if upd.Email != nil {
		if _, err = tx.Exec(ctx, `UPDATE users SET email = $2, updated_at = NOW() WHERE id = $1`, userID, *upd.Email); err != nil {
			return nil, fmt.Errorf("repository: failed to update email for user %s: %w", userID, err)
		}
	}

	updated, err = scanCustomer(tx.QueryRow(ctx, selectCustomer+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to reload customer %s: %w", id, err)
	}
	return updated, nil
}
