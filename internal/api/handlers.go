package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/liftdiag/internal/report"
)

// Server represents the API server
type Server struct {
	provider          report.Provider
	healthChecker     HealthChecker
	cacheStatsHandler http.HandlerFunc

	maxUploadBytes int64
	importWorkers  int
}

// Options tunes the upload endpoint
type Options struct {
	// MaxUploadBytes bounds a multipart import request; 0 uses 32 MiB
	MaxUploadBytes int64
	// ImportWorkers bounds concurrent parsing of uploaded files; 0 means one per CPU
	ImportWorkers int
}

const defaultMaxUploadBytes = 32 << 20

// SetHealthChecker sets the health checker for the server
func (s *Server) SetHealthChecker(hc HealthChecker) {
	s.healthChecker = hc
}

// SetCacheStatsHandler sets the handler for the /api/cache/stats endpoint
func (s *Server) SetCacheStatsHandler(h http.HandlerFunc) {
	s.cacheStatsHandler = h
}

// New creates a new API server
func New(provider report.Provider, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Server{
		provider:       provider,
		maxUploadBytes: opts.MaxUploadBytes,
		importWorkers:  opts.ImportWorkers,
	}
}

// HealthHandler handles health check requests
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if s.healthChecker != nil {
		WriteJSONSuccess(w, s.healthChecker.CheckHealth())
		return
	}
	response := map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// CacheStatsHandler serves cache metrics, or 404 when no cache is wired
func (s *Server) CacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	if s.cacheStatsHandler == nil {
		WriteJSONError(w, "Cache is not enabled", http.StatusNotFound)
		return
	}
	s.cacheStatsHandler(w, r)
}
