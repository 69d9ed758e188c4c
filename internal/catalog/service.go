package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	FilterProducts(ctx context.Context, f Filter) ([]Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, p *Product) (*Product, error)
	AddReview(ctx context.Context, customerID uuid.UUID, productID int64, rating int, text string) (*Review, error)
	ListReviews(ctx context.Context, productID int64) ([]Review, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	if id <= 0 {
		return nil, ErrProductNotFound
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to get product")
		return nil, fmt.Errorf("service: failed to get product %d: %w", id, err)
	}
	return product, nil
}

func (s *service) FilterProducts(ctx context.Context, f Filter) ([]Product, error) {
	f.Category = strings.TrimSpace(f.Category)
	f.Search = strings.TrimSpace(f.Search)
	if _, ok := orderClauses[f.Sort]; !ok {
		return nil, fmt.Errorf("%w: unknown sort key %q", ErrInvalidInput, f.Sort)
	}

	products, err := s.repo.Filter(ctx, f)
	if err != nil {
		log.Error().Err(err).
			Str("category", f.Category).
			Str("search", f.Search).
			Str("sort_by", string(f.Sort)).
			Msg("service: failed to filter products")
		return nil, fmt.Errorf("service: failed to filter products: %w", err)
	}
	return products, nil
}

func (s *service) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list categories")
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *service) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return nil, fmt.Errorf("%w: product name required", ErrInvalidInput)
	case !p.Price.IsPositive():
		return nil, fmt.Errorf("%w: product price should be positive", ErrInvalidInput)
	case p.InventoryQuantity < 0:
		return nil, fmt.Errorf("%w: product inventory cannot be negative", ErrInvalidInput)
	}

	p.Price = p.Price.Round(2)
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		log.Error().Err(err).Str("name", p.Name).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Int64("product_id", p.ID).Str("name", p.Name).Msg("service: product created")
	return p, nil
}

func (s *service) AddReview(ctx context.Context, customerID uuid.UUID, productID int64, rating int, text string) (*Review, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidInput, MinRating, MaxRating)
	}
	if productID <= 0 {
		return nil, ErrProductNotFound
	}

	review := &Review{
		ProductID:  productID,
		CustomerID: customerID,
		Rating:     rating,
		Text:       strings.TrimSpace(text),
	}
	if err := s.repo.AddReview(ctx, review); err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrCustomerNotFound) || errors.Is(err, ErrInvalidInput) {
			log.Warn().Err(err).Int64("product_id", productID).Msg("service: review rejected")
			return nil, err
		}
		log.Error().Err(err).Int64("product_id", productID).Stringer("customer_id", customerID).Msg("service: failed to add review")
		return nil, fmt.Errorf("service: failed to add review: %w", err)
	}

	log.Info().Stringer("review_id", review.ID).Int64("product_id", productID).Msg("service: review added")
	return review, nil
}

func (s *service) ListReviews(ctx context.Context, productID int64) ([]Review, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	reviews, err := s.repo.ListReviews(ctx, productID)
	if err != nil {
		log.Error().Err(err).Int64("product_id", productID).Msg("service: failed to list reviews")
		return nil, fmt.Errorf("service: failed to list reviews: %w", err)
	}
	return reviews, nil
}
