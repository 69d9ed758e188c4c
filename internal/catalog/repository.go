package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/db"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidInput     = errors.New("invalid input")
)

const (
	reviewProductFKConstraint  = "reviews_product_id_fkey"
	reviewCustomerFKConstraint = "reviews_customer_id_fkey"
)

type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Filter(ctx context.Context, f Filter) ([]Product, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, p *Product) error
	AddReview(ctx context.Context, r *Review) error
	ListReviews(ctx context.Context, productID int64) ([]Review, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const productColumns = `
	p.id, p.name, p.description, p.price, p.category, p.image, p.inventory_quantity,
	p.created_at, p.updated_at,
	r.average_rating, COALESCE(r.review_count, 0) AS review_count
	FROM products p
	LEFT JOIN (
		SELECT product_id, AVG(rating)::float8 AS average_rating, COUNT(*) AS review_count
		FROM reviews
		GROUP BY product_id
	) r ON r.product_id = p.id
`

func (r *postgresRepository) List(ctx context.Context) ([]Product, error) {
	return r.Filter(ctx, Filter{})
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.db.GetContext(ctx, &p, "SELECT "+productColumns+" WHERE p.id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %d: %w", id, err)
	}
	return &p, nil
}

func (r *postgresRepository) Filter(ctx context.Context, f Filter) ([]Product, error) {
	where, args := f.whereClause()
	query := "SELECT " + productColumns + where + " ORDER BY " + f.orderBy()

	products := make([]Product, 0)
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("repository: failed to select products: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) Categories(ctx context.Context) ([]string, error) {
	categories := make([]string, 0)
	err := r.db.SelectContext(ctx, &categories,
		`SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to select categories: %w", err)
	}
	return categories, nil
}

func (r *postgresRepository) Create(ctx context.Context, p *Product) error {
	stmt, err := r.db.PrepareNamedContext(ctx, `
		INSERT INTO products (name, description, price, category, image, inventory_quantity)
		VALUES (:name, :description, :price, :category, :image, :inventory_quantity)
		RETURNING id, created_at, updated_at
	`)
	if err != nil {
		return fmt.Errorf("repository: failed to prepare product insert: %w", err)
	}
	defer stmt.Close()

	if err := stmt.GetContext(ctx, p, p); err != nil {
		if db.IsCheckViolation(err) {
			return fmt.Errorf("%w: product violates catalog constraints", ErrInvalidInput)
		}
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}
	return nil
}

func (r *postgresRepository) AddReview(ctx context.Context, review *Review) error {
	if review.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate review ID: %w", err)
		}
		review.ID = id
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}

	query := `
		WITH inserted AS (
			INSERT INTO reviews (id, product_id, customer_id, rating, review, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, product_id, customer_id, rating, review, created_at
		)
		SELECT i.id, i.product_id, i.customer_id, i.rating, i.review, i.created_at, u.username AS author
		FROM inserted i
		JOIN customers c ON c.id = i.customer_id
		JOIN users u ON u.id = c.user_id
	`
	err := r.db.GetContext(ctx, review, query,
		review.ID,
		review.ProductID,
		review.CustomerID,
		review.Rating,
		review.Text,
		review.CreatedAt,
	)
	if err != nil {
		switch {
		case db.IsForeignKeyViolationOn(err, reviewProductFKConstraint):
			return ErrProductNotFound
		case db.IsForeignKeyViolationOn(err, reviewCustomerFKConstraint):
			return ErrCustomerNotFound
		case db.IsCheckViolation(err):
			return fmt.Errorf("%w: rating out of range", ErrInvalidInput)
		}
		return fmt.Errorf("repository: failed to insert review for product %d: %w", review.ProductID, err)
	}
	return nil
}

func (r *postgresRepository) ListReviews(ctx context.Context, productID int64) ([]Review, error) {
	query := `
		SELECT rv.id, rv.product_id, rv.customer_id, rv.rating, rv.review, rv.created_at, u.username AS author
		FROM reviews rv
		JOIN customers c ON c.id = rv.customer_id
		JOIN users u ON u.id = c.user_id
		WHERE rv.product_id = $1
		ORDER BY rv.created_at DESC, rv.id
	`
	reviews := make([]Review, 0)
	if err := r.db.SelectContext(ctx, &reviews, query, productID); err != nil {
		return nil, fmt.Errorf("repository: failed to select reviews for product %d: %w", productID, err)
	}
	return reviews, nil
}
