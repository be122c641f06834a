package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRouter creates and configures a Chi router with all API routes
func (s *Server) SetupRouter() http.Handler {
	r := chi.NewRouter()

	// Built-in Chi middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Custom middleware
	r.Use(s.LoggingMiddleware)
	r.Use(s.EnableCORS)

	r.Get("/api/health", s.HealthHandler)

	// Report views
	r.Get("/api/dashboard", s.DashboardHandler)
	r.Get("/api/timeline", s.TimelineHandler)
	r.Get("/api/stats", s.StatsHandler)
	r.Route("/api/installations", func(r chi.Router) {
		r.Get("/", s.InstallationsHandler)
		r.Get("/{id}", s.InstallationHandler)
	})

	// Snapshot management
	r.Route("/api/imports", func(r chi.Router) {
		r.Get("/", s.ListImportsHandler)
		r.Post("/", s.ImportHandler)
	})
	r.Post("/api/reload", s.ReloadHandler)

	r.Get("/api/cache/stats", s.CacheStatsHandler)

	return r
}
