package checkout

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/db"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/order"
)

// Tx is the set of writes a checkout performs. Every call made inside one
// Store.InTx callback commits or rolls back together.
type Tx interface {
	// LockCartLines returns the customer's cart with its products, holding
	// row locks on both until the transaction ends.
	LockCartLines(ctx context.Context, customerID uuid.UUID) ([]cart.Item, error)
	InsertOrder(ctx context.Context, o *order.Order) error
	// DecrementInventory fails with ErrInsufficientStock instead of driving
	// the quantity below zero.
	DecrementInventory(ctx context.Context, productID int64, quantity int) error
	ClearCart(ctx context.Context, customerID uuid.UUID, itemIDs []uuid.UUID) error
}

type Store interface {
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Tx) error) error
	// PeekCart reads the cart without locking.
	PeekCart(ctx context.Context, customerID uuid.UUID) ([]cart.Item, error)
}

type postgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) InTx(ctx context.Context, fn func(Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Msg("Panic recovered during checkout, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback checkout transaction")
			}
		} else if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error().Err(commitErr).Msg("Failed to commit checkout transaction")
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	return fn(&pgTx{tx: tx})
}

func (s *postgresStore) PeekCart(ctx context.Context, customerID uuid.UUID) ([]cart.Item, error) {
	return queryLines(ctx, s.db, cart.SelectItems+` WHERE ci.customer_id = $1 ORDER BY p.id`, customerID)
}

type pgTx struct {
	tx pgx.Tx
}

// Rows are locked in product id order so that checkouts sharing products
// cannot deadlock.
func (t *pgTx) LockCartLines(ctx context.Context, customerID uuid.UUID) ([]cart.Item, error) {
	return queryLines(ctx, t.tx, cart.SelectItems+` WHERE ci.customer_id = $1 ORDER BY p.id FOR UPDATE OF ci, p`, customerID)
}

func (t *pgTx) InsertOrder(ctx context.Context, o *order.Order) error {
	return order.Insert(ctx, t.tx, o)
}

func (t *pgTx) DecrementInventory(ctx context.Context, productID int64, quantity int) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE products
		SET inventory_quantity = inventory_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND inventory_quantity >= $2`,
		productID, quantity)
	if err != nil {
		if db.IsCheckViolation(err) {
			return fmt.Errorf("product %d: %w", productID, ErrInsufficientStock)
		}
		return fmt.Errorf("repository: failed to decrement inventory of product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", productID, ErrInsufficientStock)
	}
	return nil
}

func (t *pgTx) ClearCart(ctx context.Context, customerID uuid.UUID, itemIDs []uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE customer_id = $1 AND id = ANY($2)`, customerID, itemIDs)
	if err != nil {
		return fmt.Errorf("repository: failed to clear cart of customer %s: %w", customerID, err)
	}
	return nil
}

func queryLines(ctx context.Context, q order.DBTX, sql string, customerID uuid.UUID) ([]cart.Item, error) {
	rows, err := q.Query(ctx, sql, customerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart of customer %s: %w", customerID, err)
	}
	defer rows.Close()

	lines := make([]cart.Item, 0)
	for rows.Next() {
		item, err := cart.ScanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart line of customer %s: %w", customerID, err)
		}
		lines = append(lines, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating cart of customer %s: %w", customerID, err)
	}
	return lines, nil
}
