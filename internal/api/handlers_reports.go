package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/liftdiag/internal/logging"
	"github.com/liftdiag/internal/report"
)

// writeView writes a report view. Before the first import every view is
// absent and answers 200 with a null body.
func writeView(w http.ResponseWriter, data any, err error, what string) {
	switch {
	case err == nil:
		WriteJSONSuccess(w, data)
	case errors.Is(err, report.ErrNoSnapshot):
		WriteJSONSuccess(w, nil)
	case errors.Is(err, report.ErrNotFound):
		WriteJSONError(w, err.Error(), http.StatusNotFound)
	default:
		logging.Error("failed to build view", "view", what, logging.Err(err))
		WriteJSONError(w, fmt.Sprintf("Failed to get %s: %v", what, err), http.StatusInternalServerError)
	}
}

// writeParamError answers 400 for a *ParamError
func writeParamError(w http.ResponseWriter, err error) {
	var pe *ParamError
	if errors.As(err, &pe) {
		WriteJSONError(w, pe.Message, http.StatusBadRequest)
		return
	}
	WriteJSONError(w, err.Error(), http.StatusBadRequest)
}

// DashboardHandler returns the full dashboard for the filtered view.
// GET /api/dashboard?q=&from=2024-01-01&to=2024-12-31&scope=OB-1,OB-2
func (s *Server) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeParamError(w, err)
		return
	}
	dash, err := s.provider.Dashboard(r.Context(), f)
	writeView(w, dash, err, "dashboard")
}

// InstallationsHandler lists installations grouped by dependency.
// GET /api/installations
func (s *Server) InstallationsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeParamError(w, err)
		return
	}
	groups, err := s.provider.Groups(r.Context(), f)
	writeView(w, groups, err, "installations")
}

// InstallationHandler returns one installation with its diagnosis.
// GET /api/installations/{id}
func (s *Server) InstallationHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		WriteJSONError(w, "Installation id is required", http.StatusBadRequest)
		return
	}
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeParamError(w, err)
		return
	}
	detail, err := s.provider.Installation(r.Context(), id, f)
	writeView(w, detail, err, "installation")
}

// TimelineHandler returns the monthly series and its projection.
// GET /api/timeline
func (s *Server) TimelineHandler(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeParamError(w, err)
		return
	}
	timeline, err := s.provider.Timeline(r.Context(), f)
	writeView(w, timeline, err, "timeline")
}

// StatsHandler returns incident totals for the filtered view.
// GET /api/stats
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeParamError(w, err)
		return
	}
	stats, err := s.provider.Stats(r.Context(), f)
	writeView(w, stats, err, "statistics")
}
