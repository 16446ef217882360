package cache

import (
	"context"

	"ops-dashboard/internal/models"
)

// CounterCache remembers the next invoice number per brand so an export can
// still be numbered when the database counter is unreachable.
type CounterCache interface {
	Name() string
	// Get returns the next expected number; ok is false when nothing is cached.
	Get(ctx context.Context, brand models.Brand) (next int64, ok bool, err error)
	Store(ctx context.Context, brand models.Brand, next int64) error
	GetStats() LayerStats
}

type LayerStats struct {
	Name    string  `json:"name"`
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
}

// HitRate returns hits as a percentage of all lookups.
func HitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
