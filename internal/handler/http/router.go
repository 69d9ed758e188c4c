package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/checkout"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/customer"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/order"
)

type Services struct {
	Catalog   catalog.Service
	Cart      cart.Service
	Orders    order.Service
	Checkout  checkout.Service
	Customers customer.Service
	Auth      auth.Service
}

// NewRouter mounts every storefront route. Reads are public, mutations need
// a bearer token, and every endpoint that accepts credentials or creates an
// account goes through authLimiter when it is non-nil.
//
// X-Forwarded-For and X-Real-IP are honoured only with trustProxy set, so the
// limiter keys on the transport address unless a reverse proxy is in front.
func NewRouter(svc Services, authLimiter *IPRateLimiter, trustProxy bool) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if trustProxy {
		router.Use(middleware.RealIP)
	}
	router.Use(RequestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	catalogHandler := NewCatalogHandler(svc.Catalog)
	cartHandler := NewCartHandler(svc.Cart)
	orderHandler := NewOrderHandler(svc.Orders, svc.Checkout)
	accountHandler := NewAccountHandler(svc.Customers, svc.Auth, svc.Checkout)

	router.Group(func(r chi.Router) {
		catalogHandler.RegisterPublicRoutes(r)
	})

	router.Group(func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		accountHandler.RegisterPublicRoutes(r)
	})

	router.Group(func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Use(OptionalAuth(svc.Auth))
		r.Post("/register_or_login_and_checkout", accountHandler.handleRegisterOrLoginAndCheckout)
	})

	router.Group(func(r chi.Router) {
		r.Use(RequireAuth(svc.Auth))
		catalogHandler.RegisterRoutes(r)
		cartHandler.RegisterRoutes(r)
		orderHandler.RegisterRoutes(r)
		accountHandler.RegisterRoutes(r)
	})

	return router
}
