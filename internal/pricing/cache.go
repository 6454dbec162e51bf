package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-discount/internal/common"
	"github.com/noah-isme/toko-discount/internal/discount"
	"github.com/noah-isme/toko-discount/internal/resilience"
)

const quoteKeyPrefix = "discount:quote:"

// QuoteCache memoises computed results in Redis as JSON. Lookups and writes
// go through the breaker so a struggling Redis is skipped instead of slowing
// every request.
type QuoteCache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *resilience.Breaker
}

// NewQuoteCache constructs a cache helper. A nil client or non-positive TTL
// yields nil, which Service treats as caching disabled.
func NewQuoteCache(client *redis.Client, ttl time.Duration, breaker *resilience.Breaker) *QuoteCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &QuoteCache{client: client, ttl: ttl, breaker: breaker}
}

// Get returns the cached result for key and whether it existed.
func (c *QuoteCache) Get(ctx context.Context, key string) (Result, bool, error) {
	data, err := resilience.Execute(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		data, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	})
	if err != nil || data == nil {
		return Result{}, false, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, false, fmt.Errorf("decode cached quote: %w", err)
	}
	return res, true, nil
}

// Set stores res under key with the configured TTL.
func (c *QuoteCache) Set(ctx context.Context, key string, res Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = resilience.Execute(ctx, c.breaker, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.client.Set(ctx, key, data, c.ttl).Err()
	})
	return err
}

type policyKey struct {
	ConversionRate float64 `json:"conversionRate"`
	CapRatio       float64 `json:"capRatio"`
}

// QuoteKey derives the cache key of a request from its canonical JSON form.
// Discounts are keyed in priority order so equivalent requests share a key.
// The point policy is part of the key: services sharing one Redis with
// different policies never read each other's USE_POINT results.
func QuoteKey(policy discount.PointPolicy, items []discount.CartItem, discounts []discount.Discount) (string, error) {
	payload, err := json.Marshal(struct {
		Policy    policyKey           `json:"pointPolicy"`
		CartItems []discount.CartItem `json:"cartItems"`
		Discounts []discount.Discount `json:"discounts"`
	}{policyKey{policy.ConversionRate, policy.CapRatio}, items, discount.SortByPriority(discounts)})
	if err != nil {
		return "", fmt.Errorf("quote key: %w", err)
	}
	return quoteKeyPrefix + common.Sha256Hex(payload), nil
}
