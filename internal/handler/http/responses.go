package http

import (
	"time"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/customer"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/order"
)

// CustomerResponse never carries the full payment details.
type CustomerResponse struct {
	ID              uuid.UUID `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	BillingAddress  string    `json:"billing_address"`
	ShippingAddress string    `json:"shipping_address"`
	PaymentInfo     string    `json:"payment_info"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toCustomerResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:              c.ID,
		Username:        c.Username,
		Email:           c.Email,
		BillingAddress:  c.BillingAddress,
		ShippingAddress: c.ShippingAddress,
		PaymentInfo:     customer.MaskPaymentInfo(c.PaymentInfo),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// OrderResponse shadows the embedded order's customer with the masked view.
type OrderResponse struct {
	order.Order
	Customer *CustomerResponse `json:"customer,omitempty"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{Order: *o}
	resp.Items = orEmpty(resp.Items)
	if o.Customer != nil {
		c := toCustomerResponse(o.Customer)
		resp.Customer = &c
	}
	return resp
}

func toOrderResponses(orders []order.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return out
}

type RegisteredResponse struct {
	Customer CustomerResponse `json:"customer"`
	Tokens   auth.TokenPair   `json:"tokens"`
}
