package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// Cache is a best-effort string cache. A failed read counts as a miss and a
// failed write is dropped; freshness only, never correctness, depends on it.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// RedisCache adapts a Redis client to the Cache interface.
type RedisCache struct {
	Client *redis.Client
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.Client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	c.Client.Set(ctx, key, value, ttl)
}

// CachedFetcher wraps a Fetcher with a short-lived per-symbol cache so that
// concurrent refreshes of portfolios holding the same symbol collapse into a
// single upstream call.
type CachedFetcher struct {
	Next  Fetcher
	Cache Cache
	TTL   time.Duration
}

// NewCachedFetcher wires a fetcher to a cache with the given TTL.
func NewCachedFetcher(next Fetcher, cache Cache, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{Next: next, Cache: cache, TTL: ttl}
}

func cacheKey(symbol string) string {
	return fmt.Sprintf("stock:%s:price", symbol)
}

func (f *CachedFetcher) Fetch(ctx context.Context, symbol string) (Quote, error) {
	if raw, ok := f.Cache.Get(ctx, cacheKey(symbol)); ok {
		if price, err := decimal.NewFromString(raw); err == nil {
			return Quote{Symbol: symbol, Price: price, FetchedAt: time.Now()}, nil
		}
	}

	q, err := f.Next.Fetch(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	f.Cache.Set(ctx, cacheKey(symbol), q.Price.String(), f.TTL)
	return q, nil
}
