package cache

import (
	"context"
	"time"
)

// Cache defines the cache operations interface
type Cache interface {
	// Basic operations
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Batch operations
	GetMulti(ctx context.Context, keys []string) (map[string][]byte, error)
	SetMulti(ctx context.Context, items map[string]CacheItem) error
	DeleteMulti(ctx context.Context, keys []string) error

	// Pattern operations
	DeleteByPattern(ctx context.Context, pattern string) error

	// Metrics
	GetMetrics() *Metrics

	// Lifecycle
	Close() error
}

// CacheItem represents a single cache entry
type CacheItem struct {
	Value []byte
	TTL   time.Duration
}

// Metrics tracks cache performance. Hits and Misses are counted by the
// caller, which knows whether a stored value was usable.
type Metrics struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Sets      uint64 `json:"sets"`
	Deletes   uint64 `json:"deletes"`
	Evictions uint64 `json:"evictions"`
	Size      uint64 `json:"size_bytes"`
	Keys      uint64 `json:"keys"`
}

// HitRate returns hits over lookups, or 0 before the first lookup
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}
