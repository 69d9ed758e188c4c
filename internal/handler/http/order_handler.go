package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/checkout"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/order"
)

// CheckoutRequest overrides the profile addresses for one order.
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"max=1000"`
	BillingAddress  string `json:"billing_address" validate:"max=1000"`
}

type OrderHandler struct {
	orders   order.Service
	checkout checkout.Service
	validate *validator.Validate
}

func NewOrderHandler(orders order.Service, checkoutSvc checkout.Service) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		checkout: checkoutSvc,
		validate: newValidator(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/checkout", h.handleCheckout)
	router.Post("/process_payment", h.handleProcessPayment)
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/{id}", h.handleGetOrder)
}

func (h *OrderHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var requestPayload CheckoutRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload, true) {
		return
	}

	placed, err := h.checkout.Checkout(r.Context(), principal.CustomerID, checkout.Request{
		ShippingAddress: requestPayload.ShippingAddress,
		BillingAddress:  requestPayload.BillingAddress,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to place order")
		return
	}
	respondWithJSON(w, http.StatusCreated, toOrderResponse(placed))
}

func (h *OrderHandler) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var requestPayload CheckoutRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload, true) {
		return
	}

	placed, err := h.checkout.ProcessPayment(r.Context(), principal.CustomerID, checkout.Request{
		ShippingAddress: requestPayload.ShippingAddress,
		BillingAddress:  requestPayload.BillingAddress,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to process payment")
		return
	}
	respondWithJSON(w, http.StatusCreated, toOrderResponse(placed))
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), principal.CustomerID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}
	respondWithJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	idParam := chi.URLParam(r, "id")
	orderID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("order_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	found, err := h.orders.GetOrder(r.Context(), principal.CustomerID, orderID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}
	respondWithJSON(w, http.StatusOK, toOrderResponse(found))
}
