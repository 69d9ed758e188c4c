package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/customer"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/order"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/payment"
)

// Request carries optional addresses. Empty fields fall back to the
// customer's profile.
type Request struct {
	ShippingAddress string
	BillingAddress  string
}

type CustomerReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error)
}

// CacheInvalidator is told which products changed stock after a commit.
type CacheInvalidator interface {
	InvalidateProducts(ctx context.Context, ids ...int64)
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateProducts(context.Context, ...int64) {}

type Service interface {
	// Checkout turns the cart into a Pending order.
	Checkout(ctx context.Context, customerID uuid.UUID, req Request) (*order.Order, error)
	// ProcessPayment authorizes the cart total first. A declined payment
	// changes nothing; an approved one places an Approved order.
	ProcessPayment(ctx context.Context, customerID uuid.UUID, req Request) (*order.Order, error)
}

type service struct {
	store      Store
	customers  CustomerReader
	authorizer payment.Authorizer
	cache      CacheInvalidator
}

// NewService builds the checkout workflow. cache may be nil.
func NewService(store Store, customers CustomerReader, authorizer payment.Authorizer, cache CacheInvalidator) Service {
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &service{
		store:      store,
		customers:  customers,
		authorizer: authorizer,
		cache:      cache,
	}
}

func (s *service) Checkout(ctx context.Context, customerID uuid.UUID, req Request) (*order.Order, error) {
	c, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.placeOrder(ctx, c, req, order.StatusPending, nil)
}

func (s *service) ProcessPayment(ctx context.Context, customerID uuid.UUID, req Request) (*order.Order, error) {
	c, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	lines, err := s.store.PeekCart(ctx, customerID)
	if err != nil {
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to read cart for payment")
		return nil, fmt.Errorf("service: failed to read cart: %w", err)
	}
	if len(lines) == 0 {
		log.Warn().Stringer("customer_id", customerID).Msg("service: payment attempted with empty cart")
		return nil, ErrEmptyCart
	}

	amount := cart.Total(lines)
	decision, err := s.authorizer.Authorize(ctx, payment.Charge{
		CustomerID: customerID,
		Amount:     amount,
		Instrument: c.PaymentInfo,
	})
	if err != nil {
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: payment authorization failed")
		return nil, fmt.Errorf("service: payment authorization failed: %w", err)
	}
	if decision != payment.Approved {
		log.Warn().
			Stringer("customer_id", customerID).
			Str("amount", amount.StringFixed(2)).
			Msg("service: payment declined")
		return nil, payment.ErrPaymentDeclined
	}

	return s.placeOrder(ctx, c, req, order.StatusApproved, &amount)
}

func (s *service) loadCustomer(ctx context.Context, customerID uuid.UUID) (*customer.Customer, error) {
	c, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound) {
			return nil, customer.ErrCustomerNotFound
		}
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to load customer for checkout")
		return nil, fmt.Errorf("service: failed to load customer: %w", err)
	}
	return c, nil
}

// placeOrder runs the whole cart-to-order conversion in one transaction.
// When authorized is set the locked cart total must still match it.
func (s *service) placeOrder(ctx context.Context, c *customer.Customer, req Request, status order.Status, authorized *decimal.Decimal) (*order.Order, error) {
	shipping := firstNonEmpty(req.ShippingAddress, c.ShippingAddress)
	billing := firstNonEmpty(req.BillingAddress, c.BillingAddress)

	var placed *order.Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		lines, err := tx.LockCartLines(ctx, c.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		for _, line := range lines {
			if line.Quantity > line.Product.InventoryQuantity {
				return &InsufficientStockError{
					ProductID:   line.Product.ID,
					ProductName: line.Product.Name,
					Requested:   line.Quantity,
					Available:   line.Product.InventoryQuantity,
				}
			}
		}

		if shipping == "" || billing == "" {
			return ErrMissingAddress
		}

		total := cart.Total(lines)
		if authorized != nil && !total.Equal(*authorized) {
			return ErrCartChanged
		}

		o := &order.Order{
			CustomerID:      c.ID,
			Status:          status,
			TotalPrice:      total,
			ShippingAddress: shipping,
			BillingAddress:  billing,
			Items:           make([]order.Item, 0, len(lines)),
		}
		itemIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			o.Items = append(o.Items, order.Item{
				ProductID:   line.Product.ID,
				ProductName: line.Product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   line.Product.Price,
			})
			itemIDs = append(itemIDs, line.ID)
		}

		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.DecrementInventory(ctx, line.Product.ID, line.Quantity); err != nil {
				return err
			}
		}
		if err := tx.ClearCart(ctx, c.ID, itemIDs); err != nil {
			return err
		}

		placed = o
		return nil
	})
	if err != nil {
		if isBusinessRejection(err) {
			log.Warn().Err(err).Stringer("customer_id", c.ID).Msg("service: checkout rejected")
			return nil, err
		}
		log.Error().Err(err).Stringer("customer_id", c.ID).Msg("service: checkout failed")
		return nil, fmt.Errorf("service: checkout failed: %w", err)
	}

	productIDs := make([]int64, 0, len(placed.Items))
	for _, item := range placed.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	s.cache.InvalidateProducts(ctx, productIDs...)

	placed.Customer = c
	log.Info().
		Stringer("order_id", placed.ID).
		Stringer("customer_id", c.ID).
		Stringer("status", placed.Status).
		Str("total_price", placed.TotalPrice.StringFixed(2)).
		Msg("service: order placed")
	return placed, nil
}

func isBusinessRejection(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrMissingAddress) ||
		errors.Is(err, ErrCartChanged)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
