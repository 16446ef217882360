package caches

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"ops-dashboard/internal/models"
	"ops-dashboard/internal/services/cache"
	"ops-dashboard/internal/storage"
)

const counterKeyPrefix = "invoice:next:"

// RedisCache keeps the fallback numbers in Redis so they survive restarts and
// are shared between instances.
type RedisCache struct {
	client *storage.RedisClient

	hits   atomic.Int64
	misses atomic.Int64
}

func NewRedisCache(client *storage.RedisClient) *RedisCache {
	return &RedisCache{client: client}
}

func (rc *RedisCache) Name() string {
	return "REDIS"
}

func counterKey(brand models.Brand) string {
	return counterKeyPrefix + brand.Slug()
}

func (rc *RedisCache) Get(ctx context.Context, brand models.Brand) (int64, bool, error) {
	val, err := rc.client.Get(ctx, counterKey(brand))
	if err != nil {
		rc.misses.Add(1)
		return 0, false, fmt.Errorf("redis error: %w", err)
	}
	if val == "" {
		rc.misses.Add(1)
		return 0, false, nil
	}
	next, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		rc.misses.Add(1)
		return 0, false, fmt.Errorf("corrupt invoice number for %s: %w", brand, err)
	}
	rc.hits.Add(1)
	return next, true, nil
}

func (rc *RedisCache) Store(ctx context.Context, brand models.Brand, next int64) error {
	if err := rc.client.Set(ctx, counterKey(brand), strconv.FormatInt(next, 10), 0); err != nil {
		return fmt.Errorf("failed to store in Redis: %w", err)
	}
	slog.Debug("redis cache: stored next invoice number", "brand", brand, "next", next)
	return nil
}

func (rc *RedisCache) GetStats() cache.LayerStats {
	keys, _ := rc.client.Keys(context.Background(), counterKeyPrefix+"*")
	hits, misses := rc.hits.Load(), rc.misses.Load()
	return cache.LayerStats{
		Name:    "Redis",
		Entries: len(keys),
		Hits:    hits,
		Misses:  misses,
		HitRate: cache.HitRate(hits, misses),
	}
}
