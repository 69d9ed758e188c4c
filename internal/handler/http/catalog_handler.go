package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
)

type AddReviewRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Rating    int    `json:"rating" validate:"required,gte=1,lte=5"`
	Review    string `json:"review" validate:"max=5000"`
}

type CatalogHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *CatalogHandler) RegisterPublicRoutes(router chi.Router) {
	router.Get("/products", h.handleListProducts)
	router.Get("/products/filter", h.handleFilterProducts)
	router.Get("/products/{id}", h.handleGetProduct)
	router.Get("/products/{id}/reviews", h.handleListReviews)
	router.Get("/categories", h.handleListCategories)
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Post("/reviews/add", h.handleAddReview)
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, orEmpty(products))
}

func (h *CatalogHandler) handleFilterProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	sortKey, err := catalog.ParseSortKey(query.Get("sort_by"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to filter products")
		return
	}

	products, err := h.service.FilterProducts(r.Context(), catalog.Filter{
		Category: query.Get("category"),
		Search:   query.Get("search"),
		Sort:     sortKey,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to filter products")
		return
	}
	respondWithJSON(w, http.StatusOK, orEmpty(products))
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	reviews, err := h.service.ListReviews(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list reviews")
		return
	}
	respondWithJSON(w, http.StatusOK, orEmpty(reviews))
}

func (h *CatalogHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list categories")
		return
	}
	respondWithJSON(w, http.StatusOK, orEmpty(categories))
}

func (h *CatalogHandler) handleAddReview(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var requestPayload AddReviewRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload, false) {
		return
	}

	review, err := h.service.AddReview(r.Context(), principal.CustomerID, requestPayload.ProductID, requestPayload.Rating, requestPayload.Review)
	if err != nil {
		respondWithServiceError(w, err, "Failed to add review")
		return
	}
	respondWithJSON(w, http.StatusCreated, review)
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		log.Warn().Str("product_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return 0, false
	}
	return id, true
}
