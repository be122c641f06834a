package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/liftdiag/internal/analytics"
	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/testutil/fixtures"
	"github.com/liftdiag/internal/testutil/mocks"
)

func reportSnapshot() []database.Installation {
	return []database.Installation{
		fixtures.NewInstallationBuilder().WithID("OB-1").WithName("Plaza Mayor").WithDependency("Madrid").
			CommissionedOn(fixtures.Date(2024, time.January, 1)).
			WithIncidentOn(fixtures.Date(2024, time.January, 10), "Puerta atascada").WithCategory(database.CategoryInstallationFault).
			WithIncidentOn(fixtures.Date(2024, time.February, 15), "Botonera").
			WithIncidentOn(fixtures.Date(2024, time.March, 20), "Motor").WithCategory(database.CategoryAssemblyFault).
			Build(),
		fixtures.NewInstallationBuilder().WithID("OB-2").WithName("Calle Real").WithDependency("Sevilla").
			WithIncidentOn(fixtures.Date(2024, time.February, 2), "Cabina").
			WithUndatedIncident("Luz").
			Build(),
		fixtures.NewInstallationBuilder().WithID("OB-3").WithName("Sin averías").WithDependency("Madrid").Build(),
	}
}

func loadedService(t *testing.T) (*Service, *mocks.MockStorage) {
	t.Helper()

	store := mocks.NewMockStorage(reportSnapshot()...)
	store.Batches = []database.ImportBatch{{ID: "batch-1", Sources: []string{"a.csv"}}}
	svc := NewService(store)
	svc.now = func() time.Time { return time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC) }
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return svc, store
}

func TestService_NoSnapshot(t *testing.T) {
	svc := NewService(mocks.NewMockStorage())
	ctx := context.Background()

	if _, err := svc.Dashboard(ctx, analytics.Filter{}); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Dashboard error = %v", err)
	}
	if _, err := svc.Installation(ctx, "OB-1", analytics.Filter{}); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Installation error = %v", err)
	}
	if _, ok := svc.Info(); ok {
		t.Error("Info should report no snapshot")
	}
}

func TestService_Reload(t *testing.T) {
	svc, _ := loadedService(t)

	info, ok := svc.Info()
	if !ok {
		t.Fatal("expected snapshot")
	}
	if info.ImportID != "batch-1" || info.Installations != 3 || info.Incidents != 5 {
		t.Errorf("info = %+v", info)
	}

	snap, _ := svc.Current()
	if snap.Version() != "batch-1" {
		t.Errorf("Version = %s", snap.Version())
	}
}

func TestService_ReloadFailureKeepsSnapshot(t *testing.T) {
	svc, store := loadedService(t)
	store.ShouldFailLoad = true

	if err := svc.Reload(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := svc.Info(); !ok {
		t.Error("failed reload dropped the published snapshot")
	}
}

func TestService_Dashboard(t *testing.T) {
	svc, _ := loadedService(t)

	d, err := svc.Dashboard(context.Background(), analytics.Filter{})
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	if d.Stats.TotalIncidents != 5 || d.Stats.AffectedInstallations != 2 {
		t.Errorf("stats = %+v", d.Stats)
	}
	if len(d.Groups) != 2 || d.Groups[0].Name != "Madrid" || d.Groups[0].Count != 2 {
		t.Errorf("groups = %+v", d.Groups)
	}
	if len(d.TopOffenders) != 3 || d.TopOffenders[0].ID != "OB-1" {
		t.Errorf("top offenders = %+v", d.TopOffenders)
	}

	// January 1, February 2, March 1
	wantCounts := []int{1, 2, 1}
	if len(d.Timeline.Counts) != len(wantCounts) {
		t.Fatalf("counts = %v", d.Timeline.Counts)
	}
	for i, c := range wantCounts {
		if d.Timeline.Counts[i] != c {
			t.Errorf("counts[%d] = %d, want %d", i, d.Timeline.Counts[i], c)
		}
	}
	if d.Timeline.Trend == nil {
		t.Fatal("expected a trend")
	}
	if len(d.Timeline.Labels) != 4 || d.Timeline.Labels[3] != ProjectionLabel {
		t.Errorf("labels = %v", d.Timeline.Labels)
	}
	if len(d.Timeline.Trend.Fitted) != len(d.Timeline.Labels) {
		t.Errorf("fitted points %d != labels %d", len(d.Timeline.Trend.Fitted), len(d.Timeline.Labels))
	}
}

func TestBuildTimeline_SingleMonth(t *testing.T) {
	installations := []database.Installation{
		fixtures.NewInstallationBuilder().WithIncidentOn(fixtures.Date(2024, time.June, 3), "x").Build(),
	}
	timeline := BuildTimeline(installations)

	if timeline.Trend != nil || timeline.ProjectionLabel != "" {
		t.Errorf("single month must not project: %+v", timeline)
	}
	if len(timeline.Labels) != 1 || timeline.Labels[0] != "06/2024" {
		t.Errorf("labels = %v", timeline.Labels)
	}
}

func TestService_FilteredViews(t *testing.T) {
	svc, _ := loadedService(t)
	ctx := context.Background()

	from := fixtures.Date(2024, time.February, 1)
	to := fixtures.Date(2024, time.February, 29)
	stats, err := svc.Stats(ctx, analytics.Filter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	// Two February incidents plus the undated one survive the range.
	if stats.TotalIncidents != 3 {
		t.Errorf("total = %d, want 3", stats.TotalIncidents)
	}

	groups, err := svc.Groups(ctx, analytics.Filter{Scope: []string{"ob-2"}})
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "Sevilla" {
		t.Errorf("groups = %+v", groups)
	}

	timeline, err := svc.Timeline(ctx, analytics.Filter{Term: "MOTOR"})
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(timeline.Series) != 3 {
		t.Errorf("term filter keeps the whole installation, series = %+v", timeline.Series)
	}
}

func TestService_Installation(t *testing.T) {
	svc, _ := loadedService(t)
	ctx := context.Background()

	d, err := svc.Installation(ctx, "ob-1", analytics.Filter{Term: "no match"})
	if err != nil {
		t.Fatalf("Installation: %v", err)
	}
	if d.ID != "OB-1" || d.IncidentCount != 3 || d.Severity != analytics.SeverityWarning {
		t.Errorf("detail = %+v", d)
	}
	if d.Buckets == nil || d.Buckets.Month1 != 1 || d.Buckets.Month2 != 1 || d.Buckets.Month3Plus != 1 {
		t.Errorf("buckets = %+v", d.Buckets)
	}
	if d.Diagnosis == nil {
		t.Fatal("expected diagnosis")
	}
	if len(d.Monthly) != 3 {
		t.Errorf("monthly = %+v", d.Monthly)
	}

	plain, err := svc.Installation(ctx, "OB-3", analytics.Filter{})
	if err != nil {
		t.Fatalf("Installation: %v", err)
	}
	if plain.Buckets != nil || plain.Diagnosis != nil || plain.Incidents == nil {
		t.Errorf("OB-3 detail = %+v", plain)
	}

	if _, err := svc.Installation(ctx, "OB-1", analytics.Filter{Scope: []string{"OB-2"}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("out of scope error = %v", err)
	}
	if _, err := svc.Installation(ctx, "missing", analytics.Filter{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing error = %v", err)
	}
}

func TestService_Replace(t *testing.T) {
	svc, store := loadedService(t)
	ctx := context.Background()

	next := []database.Installation{fixtures.NewInstallationBuilder().WithID("OB-9").Build()}
	batch := database.ImportBatch{ID: "batch-2", Installations: 1}
	if err := svc.Replace(ctx, next, batch); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if store.ReplaceCalled != 1 {
		t.Errorf("ReplaceCalled = %d", store.ReplaceCalled)
	}
	info, _ := svc.Info()
	if info.ImportID != "batch-2" || info.Installations != 1 {
		t.Errorf("info = %+v", info)
	}

	store.ShouldFailReplace = true
	if err := svc.Replace(ctx, reportSnapshot(), database.ImportBatch{ID: "batch-3"}); err == nil {
		t.Fatal("expected error")
	}
	info, _ = svc.Info()
	if info.ImportID != "batch-2" {
		t.Error("failed replace must not publish the new snapshot")
	}

	imports, err := svc.Imports(ctx, 10)
	if err != nil || len(imports) != 2 || imports[0].ID != "batch-2" {
		t.Errorf("imports = %+v, %v", imports, err)
	}
}

func TestService_ConcurrentReplacePublishesLastStored(t *testing.T) {
	svc, store := loadedService(t)
	ctx := context.Background()

	recorded := make(chan struct{})
	release := make(chan struct{})
	store.AfterReplace = func(batch database.ImportBatch) {
		if batch.ID == "A" {
			close(recorded)
			<-release
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	replace := func(id string) {
		defer wg.Done()
		next := []database.Installation{fixtures.NewInstallationBuilder().WithID("OB-" + id).Build()}
		errs <- svc.Replace(ctx, next, database.ImportBatch{ID: id, Installations: 1})
	}

	wg.Add(1)
	go replace("A")
	<-recorded

	// B gets time to run while A sits between storing and publishing.
	wg.Add(1)
	go replace("B")
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Replace: %v", err)
		}
	}

	stored, err := store.LatestImport(ctx)
	if err != nil {
		t.Fatalf("LatestImport: %v", err)
	}
	info, _ := svc.Info()
	if info.ImportID != stored.ID {
		t.Errorf("published %q, stored %q", info.ImportID, stored.ID)
	}
	snap, _ := svc.Current()
	if len(snap.Installations) != 1 || snap.Installations[0].ID != "OB-"+stored.ID {
		t.Errorf("published installations = %+v", snap.Installations)
	}
}
