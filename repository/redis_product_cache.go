package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/flash-sale-service/models"
)

const ProductCachePrefix = "flashsale:product:"

// ProductCache holds the static fields of a product (name, price, sale
// window). Stock is never served from the cache.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

// Get returns (nil, nil) on a miss.
func (c *ProductCache) Get(ctx context.Context, id string) (*models.Product, error) {
	raw, err := c.client.Get(ctx, ProductCachePrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get %s: %w", id, err)
	}
	var p models.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", id, err)
	}
	return &p, nil
}

func (c *ProductCache) Set(ctx context.Context, p *models.Product) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", p.ID, err)
	}
	if err := c.client.Set(ctx, ProductCachePrefix+p.ID, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", p.ID, err)
	}
	return nil
}
