package report

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/liftdiag/internal/analytics"
	"github.com/liftdiag/internal/cache"
	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/logging"
)

// CacheConfig configures the caching behavior
type CacheConfig struct {
	Enabled      bool
	DashboardTTL time.Duration
	ViewTTL      time.Duration
}

// DefaultCacheConfig returns the TTLs used when none are configured
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled:      true,
		DashboardTTL: 5 * time.Minute,
		ViewTTL:      15 * time.Minute,
	}
}

// CachedService wraps Service with a view cache. Concurrent requests for
// the same key share one computation.
type CachedService struct {
	*Service
	cache   cache.Cache
	metrics *cache.Metrics
	keyGen  *cache.KeyGenerator
	config  *CacheConfig
	group   singleflight.Group
}

var _ Provider = (*CachedService)(nil)

// NewCachedService creates a CachedService. A nil cache disables caching.
func NewCachedService(service *Service, cacheImpl cache.Cache, config *CacheConfig) *CachedService {
	if config == nil {
		config = DefaultCacheConfig()
	}
	cfg := *config
	if cacheImpl == nil {
		cfg.Enabled = false
	}

	cs := &CachedService{
		Service: service,
		cache:   cacheImpl,
		keyGen:  cache.NewKeyGenerator(cache.DefaultPrefix),
		config:  &cfg,
	}
	if cacheImpl != nil {
		cs.metrics = cacheImpl.GetMetrics()
	}
	return cs
}

// GetCacheMetrics returns cache performance metrics, or nil when disabled
func (cs *CachedService) GetCacheMetrics() *cache.Metrics {
	if cs.cache == nil {
		return nil
	}
	m := cs.cache.GetMetrics()
	return &cache.Metrics{
		Hits:      atomic.LoadUint64(&m.Hits),
		Misses:    atomic.LoadUint64(&m.Misses),
		Sets:      atomic.LoadUint64(&m.Sets),
		Deletes:   atomic.LoadUint64(&m.Deletes),
		Evictions: atomic.LoadUint64(&m.Evictions),
		Size:      atomic.LoadUint64(&m.Size),
		Keys:      atomic.LoadUint64(&m.Keys),
	}
}

// cachedView returns the cached value at key, or computes, stores and
// returns it
func cachedView[T any](ctx context.Context, cs *CachedService, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	if data, err := cs.cache.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			atomic.AddUint64(&cs.metrics.Hits, 1)
			return v, nil
		}
	}
	atomic.AddUint64(&cs.metrics.Misses, 1)

	result, err, _ := cs.group.Do(key, func() (interface{}, error) {
		v, err := compute()
		if err != nil {
			return v, err
		}
		if data, err := json.Marshal(v); err == nil {
			if err := cs.cache.Set(context.WithoutCancel(ctx), key, data, ttl); err != nil {
				logging.Warn("failed to cache view", logging.CacheKey(key), logging.Err(err))
			}
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Dashboard with caching
func (cs *CachedService) Dashboard(ctx context.Context, f analytics.Filter) (*Dashboard, error) {
	if !cs.config.Enabled {
		return cs.Service.Dashboard(ctx, f)
	}
	snap, err := cs.Current()
	if err != nil {
		return nil, err
	}
	return cachedView(ctx, cs, cs.keyGen.DashboardKey(snap.Version(), f), cs.config.DashboardTTL, func() (*Dashboard, error) {
		return BuildDashboard(snap, f), nil
	})
}

// Groups with caching
func (cs *CachedService) Groups(ctx context.Context, f analytics.Filter) ([]analytics.DependencyGroup, error) {
	if !cs.config.Enabled {
		return cs.Service.Groups(ctx, f)
	}
	snap, err := cs.Current()
	if err != nil {
		return nil, err
	}
	return cachedView(ctx, cs, cs.keyGen.GroupsKey(snap.Version(), f), cs.config.ViewTTL, func() ([]analytics.DependencyGroup, error) {
		return analytics.GroupByDependency(f.Apply(snap.Installations)), nil
	})
}

// Timeline with caching
func (cs *CachedService) Timeline(ctx context.Context, f analytics.Filter) (*Timeline, error) {
	if !cs.config.Enabled {
		return cs.Service.Timeline(ctx, f)
	}
	snap, err := cs.Current()
	if err != nil {
		return nil, err
	}
	return cachedView(ctx, cs, cs.keyGen.TimelineKey(snap.Version(), f), cs.config.ViewTTL, func() (*Timeline, error) {
		t := BuildTimeline(f.Apply(snap.Installations))
		return &t, nil
	})
}

// Stats with caching
func (cs *CachedService) Stats(ctx context.Context, f analytics.Filter) (*analytics.Summary, error) {
	if !cs.config.Enabled {
		return cs.Service.Stats(ctx, f)
	}
	snap, err := cs.Current()
	if err != nil {
		return nil, err
	}
	return cachedView(ctx, cs, cs.keyGen.StatsKey(snap.Version(), f), cs.config.ViewTTL, func() (*analytics.Summary, error) {
		s := analytics.Summarize(f.Apply(snap.Installations))
		return &s, nil
	})
}

// Installation with caching. Only unfiltered lookups are cached.
func (cs *CachedService) Installation(ctx context.Context, id string, f analytics.Filter) (*InstallationDetail, error) {
	f.Term = ""
	if !cs.config.Enabled || !f.IsZero() {
		return cs.Service.Installation(ctx, id, f)
	}
	snap, err := cs.Current()
	if err != nil {
		return nil, err
	}
	return cachedView(ctx, cs, cs.keyGen.InstallationKey(snap.Version(), id), cs.config.ViewTTL, func() (*InstallationDetail, error) {
		return cs.Service.Installation(ctx, id, f)
	})
}

// Replace stores the new snapshot and drops every cached view
func (cs *CachedService) Replace(ctx context.Context, installations []database.Installation, batch database.ImportBatch) error {
	if err := cs.Service.Replace(ctx, installations, batch); err != nil {
		return err
	}
	cs.invalidate(ctx)
	return nil
}

// Reload reloads the snapshot from storage and drops every cached view
func (cs *CachedService) Reload(ctx context.Context) error {
	if err := cs.Service.Reload(ctx); err != nil {
		return err
	}
	cs.invalidate(ctx)
	return nil
}

// InvalidateAll clears every cached view
func (cs *CachedService) InvalidateAll(ctx context.Context) error {
	if !cs.config.Enabled {
		return nil
	}
	return cs.cache.DeleteByPattern(ctx, cs.keyGen.AllPattern())
}

func (cs *CachedService) invalidate(ctx context.Context) {
	if err := cs.InvalidateAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		// Keys are scoped by snapshot version, so stale entries are only
		// unreachable garbage until their TTL expires.
		logging.Warn("failed to invalidate view cache", logging.Err(err))
	}
}

// Close closes the cache
func (cs *CachedService) Close() error {
	if cs.cache != nil {
		return cs.cache.Close()
	}
	return nil
}
