package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrMissingAddress    = errors.New("shipping and billing address required")
	// ErrCartChanged means the cart total moved between payment authorization
	// and order placement.
	ErrCartChanged = errors.New("cart changed during payment")
)

// InsufficientStockError names the first product whose stock cannot cover
// its cart line. errors.Is(err, ErrInsufficientStock) holds for it.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
