package analytics

import (
	"testing"
	"time"

	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/testutil/fixtures"
)

func filterSnapshot() []database.Installation {
	return []database.Installation{
		fixtures.NewInstallationBuilder().WithID("OB-1").WithName("Plaza Mayor").
			WithIncidentOn(fixtures.Date(2024, time.January, 10), "Puerta bloqueada").
			WithIncidentOn(fixtures.Date(2024, time.March, 31), "Revisión de cabina").
			WithUndatedIncident("Sin fecha").
			Build(),
		fixtures.NewInstallationBuilder().WithID("OB-2").WithName("Calle Real").
			WithIncidentOn(fixtures.Date(2023, time.June, 2), "Motor").
			Build(),
		fixtures.NewInstallationBuilder().WithID("OB-3").WithName("Hospital Norte").Build(),
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestFilter_Zero(t *testing.T) {
	snap := filterSnapshot()
	var f Filter
	if !f.IsZero() {
		t.Error("zero filter should report IsZero")
	}
	got := f.Apply(snap)
	if len(got) != len(snap) {
		t.Fatalf("got %d installations, want %d", len(got), len(snap))
	}
}

func TestFilter_DateRange(t *testing.T) {
	snap := filterSnapshot()
	f := Filter{
		From: ptr(fixtures.Date(2024, time.January, 1)),
		To:   ptr(fixtures.Date(2024, time.March, 31)),
	}
	got := f.Apply(snap)
	if len(got) != 3 {
		t.Fatalf("date range must not drop installations, got %d", len(got))
	}

	// Both dated incidents are inside the inclusive range, the undated one survives.
	if n := got[0].IncidentCount(); n != 3 {
		t.Errorf("OB-1 incidents = %d, want 3", n)
	}
	if n := got[1].IncidentCount(); n != 0 {
		t.Errorf("OB-2 incidents = %d, want 0", n)
	}

	// Input is untouched.
	if n := snap[1].IncidentCount(); n != 1 {
		t.Errorf("input mutated: OB-2 has %d incidents", n)
	}
}

func TestFilter_Term(t *testing.T) {
	snap := filterSnapshot()
	tests := []struct {
		term string
		want []string
	}{
		{"plaza", []string{"OB-1"}},
		{"ob-2", []string{"OB-2"}},
		{"revision", []string{"OB-1"}},
		{"MOTOR", []string{"OB-2"}},
		{"nothing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := Filter{Term: tt.term}.Apply(snap)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d installations, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("got[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestFilter_TermAfterDateRange(t *testing.T) {
	// "motor" only appears in a 2023 incident, which the range removes.
	f := Filter{
		Term: "motor",
		From: ptr(fixtures.Date(2024, time.January, 1)),
	}
	if got := f.Apply(filterSnapshot()); len(got) != 0 {
		t.Errorf("expected no match, got %d", len(got))
	}
}

func TestFilter_Scope(t *testing.T) {
	snap := filterSnapshot()

	got := Filter{Scope: []string{"ob-3", "OB-1"}}.Apply(snap)
	if len(got) != 2 || got[0].ID != "OB-1" || got[1].ID != "OB-3" {
		t.Errorf("scoped result = %+v", got)
	}

	all := Filter{Scope: []string{"all"}}
	if !all.IsZero() {
		t.Error("ALL scope should be unrestricted")
	}
	if got := all.Apply(snap); len(got) != 3 {
		t.Errorf("ALL scope returned %d", len(got))
	}
}
