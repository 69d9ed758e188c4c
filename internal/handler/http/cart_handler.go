package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
)

type AddToCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,cart_quantity"`
}

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Post("/cart/add", h.handleAddToCart)
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	items, err := h.service.GetCart(r.Context(), principal.CustomerID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get cart")
		return
	}
	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (h *CartHandler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var requestPayload AddToCartRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload, false) {
		return
	}

	item, err := h.service.AddToCart(r.Context(), principal.CustomerID, requestPayload.ProductID, requestPayload.Quantity)
	if err != nil {
		respondWithServiceError(w, err, "Failed to add product to cart")
		return
	}
	respondWithJSON(w, http.StatusCreated, item)
}
