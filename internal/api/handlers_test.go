package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/liftdiag/internal/analytics"
	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/report"
	"github.com/liftdiag/internal/testutil/fixtures"
	"github.com/liftdiag/internal/testutil/mocks"
)

func testInstallations() []database.Installation {
	return []database.Installation{
		fixtures.NewInstallationBuilder().WithID("OB-1").WithName("Plaza Mayor").WithDependency("Madrid").
			CommissionedOn(fixtures.Date(2024, time.January, 1)).
			WithIncidentOn(fixtures.Date(2024, time.January, 10), "Puerta atascada").
			WithIncidentOn(fixtures.Date(2024, time.February, 15), "Botonera").
			WithIncidentOn(fixtures.Date(2024, time.March, 20), "Motor").
			Build(),
		fixtures.NewInstallationBuilder().WithID("OB-2").WithName("Calle Real").WithDependency("Sevilla").
			WithIncidentOn(fixtures.Date(2024, time.February, 2), "Cabina").
			WithUndatedIncident("Luz").
			Build(),
		fixtures.NewInstallationBuilder().WithID("OB-3").WithName("Sin averías").WithDependency("Madrid").Build(),
	}
}

// newMockServer creates a server over a loaded snapshot
func newMockServer(t *testing.T) (*Server, *mocks.MockStorage) {
	t.Helper()

	store := mocks.NewMockStorage(testInstallations()...)
	store.Batches = []database.ImportBatch{{ID: "batch-1", Sources: []string{"a.csv"}}}
	svc := report.NewService(store)
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return New(svc, Options{ImportWorkers: 2}), store
}

func newEmptyServer() (*Server, *mocks.MockStorage) {
	store := mocks.NewMockStorage()
	return New(report.NewService(store), Options{}), store
}

func serve(s *Server, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.SetupRouter().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v (body %q)", err, w.Body.String())
	}
}

func TestStatsHandler(t *testing.T) {
	s, _ := newMockServer(t)

	tests := []struct {
		name      string
		query     string
		wantTotal int
		wantMTBF  *int
	}{
		{"all", "", 5, intPtr(146)},
		{"until january keeps undated", "?to=2024-01-31", 2, intPtr(365)},
		{"term", "?q=plaza", 3, intPtr(122)},
		{"scope", "?scope=OB-3", 0, nil},
		{"scope all", "?scope=ALL", 5, intPtr(146)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, http.MethodGet, "/api/stats"+tt.query, nil, "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			var got analytics.Summary
			decode(t, w, &got)
			if got.TotalIncidents != tt.wantTotal {
				t.Errorf("total = %d, want %d", got.TotalIncidents, tt.wantTotal)
			}
			switch {
			case tt.wantMTBF == nil && got.MTBFDays != nil:
				t.Errorf("mtbf = %d, want null", *got.MTBFDays)
			case tt.wantMTBF != nil && (got.MTBFDays == nil || *got.MTBFDays != *tt.wantMTBF):
				t.Errorf("mtbf = %v, want %d", got.MTBFDays, *tt.wantMTBF)
			}
		})
	}
}

func intPtr(v int) *int { return &v }

func TestHandlers_BadParams(t *testing.T) {
	s, _ := newMockServer(t)

	paths := []string{
		"/api/stats?from=2024-13-01",
		"/api/dashboard?to=yesterday",
		"/api/timeline?from=2024-05-01&to=2024-01-01",
		"/api/installations?from=01/01/2024",
		"/api/installations/OB-1?to=x",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			w := serve(s, http.MethodGet, p, nil, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			var body map[string]any
			decode(t, w, &body)
			if body["error"] == "" || body["status"] != float64(http.StatusBadRequest) {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestHandlers_NoSnapshot(t *testing.T) {
	s, _ := newEmptyServer()

	for _, p := range []string{"/api/dashboard", "/api/installations", "/api/installations/OB-1", "/api/timeline", "/api/stats"} {
		t.Run(p, func(t *testing.T) {
			w := serve(s, http.MethodGet, p, nil, "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			if got := strings.TrimSpace(w.Body.String()); got != "null" {
				t.Errorf("body = %q, want null", got)
			}
		})
	}
}

func TestDashboardHandler(t *testing.T) {
	s, _ := newMockServer(t)

	w := serve(s, http.MethodGet, "/api/dashboard", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var dash report.Dashboard
	decode(t, w, &dash)
	if dash.Snapshot.ImportID != "batch-1" {
		t.Errorf("snapshot = %+v", dash.Snapshot)
	}
	if dash.Stats.TotalIncidents != 5 || dash.Stats.AffectedInstallations != 2 {
		t.Errorf("stats = %+v", dash.Stats)
	}
	if len(dash.Groups) != 2 || dash.Groups[0].Name != "Madrid" {
		t.Errorf("groups = %+v", dash.Groups)
	}
	if got := dash.Timeline.Counts; len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 1 {
		t.Errorf("counts = %v", got)
	}
	if dash.Timeline.Trend == nil || dash.Timeline.ProjectionLabel != report.ProjectionLabel {
		t.Errorf("timeline = %+v", dash.Timeline)
	}
	if len(dash.TopOffenders) == 0 || dash.TopOffenders[0].ID != "OB-1" {
		t.Errorf("top offenders = %+v", dash.TopOffenders)
	}
}

func TestInstallationsHandler(t *testing.T) {
	s, _ := newMockServer(t)

	w := serve(s, http.MethodGet, "/api/installations", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var groups []analytics.DependencyGroup
	decode(t, w, &groups)
	if len(groups) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	madrid := groups[0]
	if madrid.Name != "Madrid" || madrid.Count != 2 {
		t.Errorf("Madrid = %+v", madrid)
	}
	if madrid.Installations[0].ID != "OB-1" || madrid.Installations[0].Severity != "warning" {
		t.Errorf("OB-1 = %+v", madrid.Installations[0])
	}
}

func TestInstallationHandler(t *testing.T) {
	s, _ := newMockServer(t)

	t.Run("found case-insensitively", func(t *testing.T) {
		w := serve(s, http.MethodGet, "/api/installations/ob-1", nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var detail report.InstallationDetail
		decode(t, w, &detail)
		if detail.ID != "OB-1" || detail.IncidentCount != 3 || len(detail.Incidents) != 3 {
			t.Errorf("detail = %+v", detail)
		}
		if detail.Buckets == nil || detail.Diagnosis == nil {
			t.Errorf("expected buckets and diagnosis, got %+v", detail)
		}
	})

	t.Run("not found", func(t *testing.T) {
		w := serve(s, http.MethodGet, "/api/installations/OB-404", nil, "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("outside scope", func(t *testing.T) {
		w := serve(s, http.MethodGet, "/api/installations/OB-1?scope=OB-2", nil, "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}

func TestTimelineHandler(t *testing.T) {
	s, _ := newMockServer(t)

	w := serve(s, http.MethodGet, "/api/timeline?scope=OB-2", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var tl report.Timeline
	decode(t, w, &tl)
	if len(tl.Counts) != 1 || tl.Counts[0] != 1 {
		t.Errorf("counts = %v", tl.Counts)
	}
	if tl.Trend != nil {
		t.Errorf("single month should have no trend, got %+v", tl.Trend)
	}
}

type failingProvider struct {
	report.Provider
}

func (failingProvider) Dashboard(ctx context.Context, f analytics.Filter) (*report.Dashboard, error) {
	return nil, errors.New("boom")
}

func (failingProvider) Reload(ctx context.Context) error {
	return errors.New("storage offline")
}

func TestHandlers_ProviderError(t *testing.T) {
	s := New(failingProvider{}, Options{})

	w := serve(s, http.MethodGet, "/api/dashboard", nil, "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("dashboard: expected 500, got %d", w.Code)
	}

	w = serve(s, http.MethodPost, "/api/reload", nil, "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("reload: expected 500, got %d", w.Code)
	}
}

const uploadHeader = "ID_OBRA;NOMBRE_OBRA;DEPENDENCIA;FECHA_PM;ID_AVERIA;DESC_AVERIA;FECHA_AVERIA;CATEGORIA\n"

func multipartBody(t *testing.T, files map[string]string, order ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, name := range order {
		part, err := mw.CreateFormFile(uploadField, name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write([]byte(files[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return body, mw.FormDataContentType()
}

func TestImportHandler(t *testing.T) {
	files := map[string]string{
		"enero.csv": uploadHeader +
			"OB-7;Torre Norte;Bilbao;01/01/2024;AV-1;Puerta;10/01/2024;Fallo Montaje\n",
		"febrero.csv": uploadHeader +
			"OB-7;;;;AV-2;Motor;15/02/2024;\n" +
			"OB-8;Torre Sur;Bilbao;;AV-3;Cabina;20/02/2024;\n",
	}

	t.Run("replaces snapshot", func(t *testing.T) {
		s, store := newMockServer(t)
		body, ct := multipartBody(t, files, "enero.csv", "febrero.csv")

		w := serve(s, http.MethodPost, "/api/imports", body, ct)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		var summary struct {
			Batch  database.ImportBatch `json:"batch"`
			DryRun bool                 `json:"dry_run"`
		}
		decode(t, w, &summary)
		if summary.Batch.Installations != 2 || summary.Batch.Incidents != 3 {
			t.Errorf("batch = %+v", summary.Batch)
		}
		if len(summary.Batch.Sources) != 2 || summary.Batch.Sources[0] != "enero.csv" {
			t.Errorf("sources = %v", summary.Batch.Sources)
		}
		if store.ReplaceCalled != 1 {
			t.Errorf("ReplaceCalled = %d", store.ReplaceCalled)
		}

		w = serve(s, http.MethodGet, "/api/stats", nil, "")
		var stats analytics.Summary
		decode(t, w, &stats)
		if stats.Installations != 2 || stats.TotalIncidents != 3 {
			t.Errorf("stats after import = %+v", stats)
		}
	})

	t.Run("dry run", func(t *testing.T) {
		s, store := newMockServer(t)
		body, ct := multipartBody(t, files, "enero.csv")

		w := serve(s, http.MethodPost, "/api/imports?dry_run=true", body, ct)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if store.ReplaceCalled != 0 {
			t.Errorf("dry run replaced the snapshot")
		}
	})

	t.Run("unparseable file", func(t *testing.T) {
		s, store := newMockServer(t)
		bad := map[string]string{"bad.csv": "COLUMNA;OTRA\n1;2\n"}
		body, ct := multipartBody(t, bad, "bad.csv")

		w := serve(s, http.MethodPost, "/api/imports", body, ct)
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
		}
		var resp struct {
			Failures []struct {
				Source string `json:"source"`
			} `json:"failures"`
		}
		decode(t, w, &resp)
		if len(resp.Failures) != 1 || resp.Failures[0].Source != "bad.csv" {
			t.Errorf("failures = %+v", resp.Failures)
		}
		if store.ReplaceCalled != 0 {
			t.Error("failed import replaced the snapshot")
		}
	})

	t.Run("no files", func(t *testing.T) {
		s, _ := newMockServer(t)
		body, ct := multipartBody(t, nil)

		w := serve(s, http.MethodPost, "/api/imports", body, ct)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		s, _ := newMockServer(t)

		w := serve(s, http.MethodPost, "/api/imports", bytes.NewBufferString("{}"), "application/json")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestListImportsHandler(t *testing.T) {
	s, store := newMockServer(t)
	store.Batches = append(store.Batches, database.ImportBatch{ID: "batch-2"})

	w := serve(s, http.MethodGet, "/api/imports?limit=1", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Imports []database.ImportBatch `json:"imports"`
		Count   int                    `json:"count"`
	}
	decode(t, w, &resp)
	if resp.Count != 1 || resp.Imports[0].ID != "batch-2" {
		t.Errorf("imports = %+v", resp)
	}
}

func TestReloadHandler(t *testing.T) {
	s, store := newEmptyServer()
	store.Installations = testInstallations()
	store.Batches = []database.ImportBatch{{ID: "stored"}}

	w := serve(s, http.MethodPost, "/api/reload", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Reloaded bool                `json:"reloaded"`
		Snapshot report.SnapshotInfo `json:"snapshot"`
	}
	decode(t, w, &resp)
	if !resp.Reloaded || resp.Snapshot.ImportID != "stored" || resp.Snapshot.Installations != 3 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCacheStatsHandler(t *testing.T) {
	s, _ := newMockServer(t)

	w := serve(s, http.MethodGet, "/api/cache/stats", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("without cache: expected 404, got %d", w.Code)
	}

	s.SetCacheStatsHandler(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONSuccess(w, map[string]int{"hits": 3})
	})
	w = serve(s, http.MethodGet, "/api/cache/stats", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("with cache: expected 200, got %d", w.Code)
	}
}
