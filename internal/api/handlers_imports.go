package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/liftdiag/internal/importer"
	"github.com/liftdiag/internal/logging"
)

// uploadField is the multipart field carrying the spreadsheets
const uploadField = "files"

// ImportHandler parses the uploaded spreadsheets and replaces the snapshot.
// POST /api/imports?dry_run=true (multipart, field "files")
func (s *Server) ImportHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteJSONError(w, fmt.Sprintf("Upload exceeds %d bytes", s.maxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		WriteJSONError(w, fmt.Sprintf("Invalid multipart upload: %v", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	sources, err := uploadedSources(r)
	if err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	dryRun, _ := parseBoolParam(r.URL.Query(), "dry_run")
	imp := importer.New(s.provider, importer.Options{
		Workers: s.importWorkers,
		DryRun:  dryRun,
	})

	summary, err := imp.Import(r.Context(), sources)
	if err != nil {
		var importErr *importer.ImportError
		switch {
		case errors.As(err, &importErr):
			WriteJSON(w, map[string]any{
				"error":    importErr.Error(),
				"status":   http.StatusUnprocessableEntity,
				"failures": importErr.Failures,
			}, http.StatusUnprocessableEntity)
		case errors.Is(err, importer.ErrNoSources):
			WriteJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			logging.Error("import failed", logging.Err(err))
			WriteJSONError(w, fmt.Sprintf("Import failed: %v", err), http.StatusInternalServerError)
		}
		return
	}

	status := http.StatusCreated
	if summary.DryRun {
		status = http.StatusOK
	}
	WriteJSON(w, summary, status)
}

// uploadedSources reads every uploaded file into memory as an import source,
// in upload order
func uploadedSources(r *http.Request) ([]importer.Source, error) {
	headers := r.MultipartForm.File[uploadField]
	sources := make([]importer.Source, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", h.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", h.Filename, err)
		}
		sources = append(sources, importer.BytesSource(filepath.Base(h.Filename), data))
	}
	return sources, nil
}

// ListImportsHandler returns the recorded import batches, newest first.
// GET /api/imports?limit=20
func (s *Server) ListImportsHandler(w http.ResponseWriter, r *http.Request) {
	limit := parseLimitParam(r.URL.Query(), 20, 200)
	batches, err := s.provider.Imports(r.Context(), limit)
	if err != nil {
		WriteJSONError(w, fmt.Sprintf("Failed to list imports: %v", err), http.StatusInternalServerError)
		return
	}
	WriteJSONSuccess(w, map[string]any{
		"imports": batches,
		"count":   len(batches),
	})
}

// ReloadHandler reloads the snapshot from storage.
// POST /api/reload
func (s *Server) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.provider.Reload(r.Context()); err != nil {
		logging.Error("reload failed", logging.Err(err))
		WriteJSONError(w, fmt.Sprintf("Failed to reload snapshot: %v", err), http.StatusInternalServerError)
		return
	}
	info, _ := s.provider.Info()
	WriteJSONSuccess(w, map[string]any{
		"reloaded": true,
		"snapshot": info,
	})
}
