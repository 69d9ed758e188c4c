package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
)

const (
	keyAllProducts = "catalog:products:all"
	keyCategories  = "catalog:categories"
	notFoundMarker = "notfound"
	notFoundTTL    = time.Minute

	// maxInventoryTTL caps how long keys carrying inventory_quantity live. A
	// read that raced a checkout can write back a pre-checkout product after
	// InvalidateProducts ran; that entry is served for at most this long.
	maxInventoryTTL = 30 * time.Second
)

func productKey(id int64) string {
	return fmt.Sprintf("catalog:product:%d", id)
}

// CachedRepository is a read-through cache in front of a catalog.Repository.
// Redis failures are logged and fall back to the wrapped repository.
type CachedRepository struct {
	realRepo     catalog.Repository
	redis        Client
	ttl          time.Duration
	inventoryTTL time.Duration
}

func NewCachedRepository(realRepo catalog.Repository, client Client, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRepository{
		realRepo:     realRepo,
		redis:        client,
		ttl:          ttl,
		inventoryTTL: min(ttl, maxInventoryTTL),
	}
}

func (c *CachedRepository) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	key := productKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, catalog.ErrProductNotFound
		}
		var product catalog.Product
		decodeErr := json.Unmarshal(data, &product)
		if decodeErr == nil {
			return &product, nil
		}
		log.Warn().Err(decodeErr).Str("key", key).Msg("cache: failed to unmarshal cached product, continuing with DB")
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Str("key", key).Msg("cache: redis error, continuing with DB")
	}

	product, err := c.realRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.set(ctx, key, notFoundMarker, notFoundTTL)
		}
		return nil, err
	}

	c.setJSON(ctx, key, product, c.inventoryTTL)
	return product, nil
}

func (c *CachedRepository) List(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if c.getJSON(ctx, keyAllProducts, &products) {
		return products, nil
	}

	products, err := c.realRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	c.setJSON(ctx, keyAllProducts, products, c.inventoryTTL)
	return products, nil
}

func (c *CachedRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if c.getJSON(ctx, keyCategories, &categories) {
		return categories, nil
	}

	categories, err := c.realRepo.Categories(ctx)
	if err != nil {
		return nil, err
	}

	c.setJSON(ctx, keyCategories, categories, c.ttl)
	return categories, nil
}

// Filter is not cached: the key space of free-text searches is unbounded.
func (c *CachedRepository) Filter(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	return c.realRepo.Filter(ctx, f)
}

func (c *CachedRepository) ListReviews(ctx context.Context, productID int64) ([]catalog.Review, error) {
	return c.realRepo.ListReviews(ctx, productID)
}

func (c *CachedRepository) Create(ctx context.Context, p *catalog.Product) error {
	if err := c.realRepo.Create(ctx, p); err != nil {
		return err
	}
	c.del(ctx, keyAllProducts, keyCategories, productKey(p.ID))
	return nil
}

func (c *CachedRepository) AddReview(ctx context.Context, r *catalog.Review) error {
	if err := c.realRepo.AddReview(ctx, r); err != nil {
		return err
	}
	c.InvalidateProducts(ctx, r.ProductID)
	return nil
}

// InvalidateProducts evicts the given products and the full listing, e.g.
// after checkout changed their inventory.
func (c *CachedRepository) InvalidateProducts(ctx context.Context, ids ...int64) {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, keyAllProducts)
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	c.del(ctx, keys...)
}

func (c *CachedRepository) getJSON(ctx context.Context, key string, dst any) bool {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("cache: redis error, continuing with DB")
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: failed to unmarshal cached value, continuing with DB")
		return false
	}
	return true
}

func (c *CachedRepository) setJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: failed to marshal value")
		return
	}
	c.set(ctx, key, data, ttl)
}

func (c *CachedRepository) set(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := c.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: failed to set value")
	}
}

func (c *CachedRepository) del(ctx context.Context, keys ...string) {
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("cache: failed to delete keys")
	}
}
