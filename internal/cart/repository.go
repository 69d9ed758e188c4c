package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/db"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be a positive integer")
	ErrCustomerNotFound = errors.New("customer not found")
)

const (
	productFKConstraint  = "cart_items_product_id_fkey"
	customerFKConstraint = "cart_items_customer_id_fkey"
)

type Repository interface {
	// Add creates the (customer, product) line or adds quantity to it.
	Add(ctx context.Context, customerID uuid.UUID, productID int64, quantity int) (*Item, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Item, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// SelectItems is shared with the checkout store, which appends a locking
// clause to it.
const SelectItems = `
	SELECT ci.id, ci.customer_id, ci.quantity, ci.created_at, ci.updated_at,
	       p.id, p.name, p.description, p.price, p.category, p.image, p.inventory_quantity,
	       p.created_at, p.updated_at
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
`

// ScanItem reads one row produced by SelectItems.
func ScanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(
		&item.ID,
		&item.CustomerID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.Product.ID,
		&item.Product.Name,
		&item.Product.Description,
		&item.Product.Price,
		&item.Product.Category,
		&item.Product.Image,
		&item.Product.InventoryQuantity,
		&item.Product.CreatedAt,
		&item.Product.UpdatedAt,
	)
	return item, err
}

func (r *postgresRepository) Add(ctx context.Context, customerID uuid.UUID, productID int64, quantity int) (*Item, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate cart item ID: %w", err)
	}

	var itemID uuid.UUID
	err = r.db.QueryRow(ctx, `
		INSERT INTO cart_items (id, customer_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING id`,
		id, customerID, productID, quantity,
	).Scan(&itemID)
	if err != nil {
		switch {
		case db.IsForeignKeyViolationOn(err, productFKConstraint):
			return nil, catalog.ErrProductNotFound
		case db.IsForeignKeyViolationOn(err, customerFKConstraint):
			return nil, ErrCustomerNotFound
		case db.IsCheckViolation(err):
			return nil, ErrInvalidQuantity
		}
		return nil, fmt.Errorf("repository: failed to upsert cart item for product %d: %w", productID, err)
	}

	item, err := ScanItem(r.db.QueryRow(ctx, SelectItems+` WHERE ci.id = $1`, itemID))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to reload cart item %s: %w", itemID, err)
	}
	return &item, nil
}

func (r *postgresRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Item, error) {
	rows, err := r.db.Query(ctx, SelectItems+` WHERE ci.customer_id = $1 ORDER BY ci.created_at, p.id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := ScanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for customer %s: %w", customerID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating cart for customer %s: %w", customerID, err)
	}
	return items, nil
}
