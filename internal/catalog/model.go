package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry annotated with its review aggregate.
type Product struct {
	ID                int64           `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	Description       string          `json:"description" db:"description"`
	Price             decimal.Decimal `json:"price" db:"price"`
	Category          string          `json:"category" db:"category"`
	Image             string          `json:"image" db:"image"`
	InventoryQuantity int             `json:"inventory_quantity" db:"inventory_quantity"`
	AverageRating     *float64        `json:"average_rating" db:"average_rating"` // nil when there are no reviews
	ReviewCount       int             `json:"review_count" db:"review_count"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

type Review struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ProductID  int64     `json:"product_id" db:"product_id"`
	CustomerID uuid.UUID `json:"customer_id" db:"customer_id"`
	Author     string    `json:"author" db:"author"`
	Rating     int       `json:"rating" db:"rating"`
	Text       string    `json:"review" db:"review"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

const (
	MinRating = 1
	MaxRating = 5
)
