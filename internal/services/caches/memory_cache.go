package caches

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"ops-dashboard/internal/models"
	"ops-dashboard/internal/services/cache"
)

type MemoryCache struct {
	numbers sync.Map // map[models.Brand]int64

	hits   atomic.Int64
	misses atomic.Int64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (mc *MemoryCache) Name() string {
	return "MEMORY"
}

func (mc *MemoryCache) Get(_ context.Context, brand models.Brand) (int64, bool, error) {
	if value, ok := mc.numbers.Load(brand); ok {
		mc.hits.Add(1)
		return value.(int64), true, nil
	}
	mc.misses.Add(1)
	return 0, false, nil
}

func (mc *MemoryCache) Store(_ context.Context, brand models.Brand, next int64) error {
	mc.numbers.Store(brand, next)
	slog.Debug("memory cache: stored next invoice number", "brand", brand, "next", next)
	return nil
}

func (mc *MemoryCache) GetStats() cache.LayerStats {
	entries := 0
	mc.numbers.Range(func(key, value interface{}) bool {
		entries++
		return true
	})
	hits, misses := mc.hits.Load(), mc.misses.Load()
	return cache.LayerStats{
		Name:    "Memory",
		Entries: entries,
		Hits:    hits,
		Misses:  misses,
		HitRate: cache.HitRate(hits, misses),
	}
}
