package main

import (
	"context"
	"time"

	"github.com/liftdiag/internal/api"
	"github.com/liftdiag/internal/cache"
	"github.com/liftdiag/internal/report"
	"github.com/liftdiag/internal/storage"
	"github.com/liftdiag/internal/version"
)

const pingTimeout = 5 * time.Second

// serverHealthChecker implements api.HealthChecker using concrete server dependencies.
type serverHealthChecker struct {
	storage   *storage.Storage
	provider  report.Provider
	cache     cache.Cache
	startTime time.Time
}

func (h *serverHealthChecker) CheckHealth() *api.HealthStatus {
	now := time.Now().UTC()
	uptime := now.Sub(h.startTime)

	status := &api.HealthStatus{
		Status:    "ok",
		Time:      now,
		Uptime:    uptime.Truncate(time.Second).String(),
		UptimeSec: uptime.Seconds(),
		Version: api.VersionInfo{
			Version:   version.GetVersionInfo(),
			GitCommit: version.Commit(),
			BuildTime: version.BuildTime,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	pingStart := time.Now()
	err := h.storage.Ping(ctx)
	status.Database = api.DatabaseHealth{
		Driver:     h.storage.Driver(),
		Connected:  err == nil,
		ResponseMs: time.Since(pingStart).Milliseconds(),
	}
	if err != nil {
		status.Database.Error = err.Error()
		status.Status = "degraded"
	}

	if info, ok := h.provider.Info(); ok {
		status.Snapshot = &info
	}

	// Cache stats (if enabled)
	if h.cache != nil {
		metrics := h.cache.GetMetrics()
		status.Cache = &api.CacheHealth{
			Enabled: true,
			Keys:    metrics.Keys,
			HitRate: metrics.HitRate(),
		}
	}

	return status
}
