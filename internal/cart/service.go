package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
)

type Service interface {
	// GetCart returns the customer's lines. An empty slice is the empty cart,
	// not an error.
	GetCart(ctx context.Context, customerID uuid.UUID) ([]Item, error)
	AddToCart(ctx context.Context, customerID uuid.UUID, productID int64, quantity int) (*Item, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetCart(ctx context.Context, customerID uuid.UUID) ([]Item, error) {
	items, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to load cart")
		return nil, fmt.Errorf("service: failed to load cart: %w", err)
	}
	return items, nil
}

func (s *service) AddToCart(ctx context.Context, customerID uuid.UUID, productID int64, quantity int) (*Item, error) {
	if quantity <= 0 || quantity > MaxLineQuantity {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrInvalidQuantity, quantity, MaxLineQuantity)
	}
	if productID <= 0 {
		return nil, catalog.ErrProductNotFound
	}

	item, err := s.repo.Add(ctx, customerID, productID, quantity)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) || errors.Is(err, ErrInvalidQuantity) {
			log.Warn().Err(err).Int64("product_id", productID).Msg("service: add to cart rejected")
			return nil, err
		}
		log.Error().Err(err).
			Stringer("customer_id", customerID).
			Int64("product_id", productID).
			Msg("service: failed to add to cart")
		return nil, fmt.Errorf("service: failed to add to cart: %w", err)
	}

	log.Info().
		Stringer("customer_id", customerID).
		Int64("product_id", productID).
		Int("quantity", item.Quantity).
		Msg("service: cart updated")
	return item, nil
}
