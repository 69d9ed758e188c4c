package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/checkout"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/customer"
)

type RegisterRequest struct {
	Username        string `json:"username" validate:"required,max=150"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	Email           string `json:"email" validate:"omitempty,email,max=255"`
	BillingAddress  string `json:"billing_address" validate:"max=1000"`
	ShippingAddress string `json:"shipping_address" validate:"max=1000"`
	PaymentInfo     string `json:"payment_info" validate:"max=255"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateAccountRequest struct {
	Email           *string `json:"email" validate:"omitempty,email,max=255"`
	BillingAddress  *string `json:"billing_address" validate:"omitempty,max=1000"`
	ShippingAddress *string `json:"shipping_address" validate:"omitempty,max=1000"`
	PaymentInfo     *string `json:"payment_info" validate:"omitempty,max=255"`
}

// RegisterOrCheckoutRequest is read as a checkout request for authenticated
// callers and as a registration otherwise.
type RegisterOrCheckoutRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	Email           string `json:"email"`
	BillingAddress  string `json:"billing_address"`
	ShippingAddress string `json:"shipping_address"`
	PaymentInfo     string `json:"payment_info"`
}

type AccountHandler struct {
	customers customer.Service
	auth      auth.Service
	checkout  checkout.Service
	validate  *validator.Validate
}

func NewAccountHandler(customers customer.Service, authSvc auth.Service, checkoutSvc checkout.Service) *AccountHandler {
	return &AccountHandler{
		customers: customers,
		auth:      authSvc,
		checkout:  checkoutSvc,
		validate:  newValidator(),
	}
}

// RegisterPublicRoutes mounts the credential endpoints. They are the ones the
// router puts behind the rate limiter.
func (h *AccountHandler) RegisterPublicRoutes(router chi.Router) {
	router.Post("/register", h.handleRegister)
	router.Post("/login", h.handleLogin)
	router.Post("/token/refresh", h.handleRefresh)
}

func (h *AccountHandler) RegisterRoutes(router chi.Router) {
	router.Post("/logout", h.handleLogout)
	router.Get("/account", h.handleGetAccount)
	router.Put("/account", h.handleUpdateAccount)
}

func (h *AccountHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var requestPayload RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload, false) {
		return
	}

	created, err := h.customers.Register(r.Context(), requestPayload.toInput())
	if err != nil {
		respondWithServiceError(w, err, "Failed to register customer")
		return
	}
	respondWithJSON(w, http.StatusCreated, toCustomerResponse(created))
}

func (h *AccountHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload, false) {
		return
	}

	tokens, err := h.auth.Login(r.Context(), requestPayload.Username, requestPayload.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to log in")
		return
	}
	respondWithJSON(w, http.StatusOK, tokens)
}

func (h *AccountHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var requestPayload RefreshRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload, false) {
		return
	}

	tokens, err := h.auth.Refresh(r.Context(), requestPayload.RefreshToken)
	if err != nil {
		respondWithServiceError(w, err, "Failed to refresh token")
		return
	}
	respondWithJSON(w, http.StatusOK, tokens)
}

func (h *AccountHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	var requestPayload LogoutRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload, true) {
		return
	}

	if err := h.auth.Logout(r.Context(), claims, requestPayload.RefreshToken); err != nil {
		respondWithServiceError(w, err, "Failed to log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	account, err := h.customers.GetAccount(r.Context(), principal.CustomerID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get account")
		return
	}
	respondWithJSON(w, http.StatusOK, toCustomerResponse(account))
}

func (h *AccountHandler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var requestPayload UpdateAccountRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload, false) {
		return
	}

	updated, err := h.customers.UpdateAccount(r.Context(), principal.CustomerID, customer.ProfileUpdate{
		Email:           requestPayload.Email,
		BillingAddress:  requestPayload.BillingAddress,
		ShippingAddress: requestPayload.ShippingAddress,
		PaymentInfo:     requestPayload.PaymentInfo,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update account")
		return
	}
	respondWithJSON(w, http.StatusOK, toCustomerResponse(updated))
}

// handleRegisterOrLoginAndCheckout checks out for an authenticated caller.
// An anonymous caller is registered and handed a token pair instead; the new
// account has an empty cart so no order is attempted.
func (h *AccountHandler) handleRegisterOrLoginAndCheckout(w http.ResponseWriter, r *http.Request) {
	var requestPayload RegisterOrCheckoutRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload, true) {
		return
	}

	if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
		checkoutPayload := CheckoutRequest{
			ShippingAddress: requestPayload.ShippingAddress,
			BillingAddress:  requestPayload.BillingAddress,
		}
		if !validateRequest(w, h.validate, checkoutPayload) {
			return
		}

		placed, err := h.checkout.Checkout(r.Context(), principal.CustomerID, checkout.Request{
			ShippingAddress: checkoutPayload.ShippingAddress,
			BillingAddress:  checkoutPayload.BillingAddress,
		})
		if err != nil {
			respondWithServiceError(w, err, "Failed to place order")
			return
		}
		respondWithJSON(w, http.StatusCreated, toOrderResponse(placed))
		return
	}

	registerPayload := RegisterRequest(requestPayload)
	if !validateRequest(w, h.validate, registerPayload) {
		return
	}

	created, err := h.customers.Register(r.Context(), registerPayload.toInput())
	if err != nil {
		respondWithServiceError(w, err, "Failed to register customer")
		return
	}

	tokens, err := h.auth.IssueTokens(auth.Principal{UserID: created.UserID, CustomerID: created.ID})
	if err != nil {
		log.Error().Err(err).Stringer("customer_id", created.ID).Msg("Failed to issue tokens after registration")
		respondWithError(w, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}

	respondWithJSON(w, http.StatusCreated, RegisteredResponse{
		Customer: toCustomerResponse(created),
		Tokens:   tokens,
	})
}

func (p RegisterRequest) toInput() customer.RegisterInput {
	return customer.RegisterInput{
		Username:        p.Username,
		Password:        p.Password,
		Email:           p.Email,
		BillingAddress:  p.BillingAddress,
		ShippingAddress: p.ShippingAddress,
		PaymentInfo:     p.PaymentInfo,
	}
}
