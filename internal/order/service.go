package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	ListOrders(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	// GetOrder hides orders of other customers behind ErrOrderNotFound.
	GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*Order, error)
}

type service struct {
	orderRepo Repository
}

func NewService(orderRepo Repository) Service {
	return &service{orderRepo: orderRepo}
}

func (s *service) ListOrders(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	orders, err := s.orderRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to fetch customer orders in repository")
		return nil, fmt.Errorf("service: failed to fetch customer orders: %w", err)
	}
	return orders, nil
}

func (s *service) GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*Order, error) {
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", orderID).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	if o.CustomerID != customerID {
		log.Warn().
			Stringer("order_id", orderID).
			Stringer("customer_id", customerID).
			Msg("service: order requested by another customer")
		return nil, ErrOrderNotFound
	}
	return o, nil
}
