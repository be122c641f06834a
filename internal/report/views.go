package report

import (
	"time"

	"github.com/liftdiag/internal/analytics"
	"github.com/liftdiag/internal/database"
)

// ProjectionLabel names the extra point appended to a projected timeline
const ProjectionLabel = "PREDICCIÓN"

type SnapshotInfo struct {
	ImportID      string    `json:"import_id,omitempty"`
	ImportedAt    time.Time `json:"imported_at"`
	LoadedAt      time.Time `json:"loaded_at"`
	Sources       []string  `json:"sources"`
	Installations int       `json:"installations"`
	Incidents     int       `json:"incidents"`
}

// Timeline is the global monthly series with its projection. Labels and
// Counts are parallel; Labels carries ProjectionLabel as an extra final
// entry when Trend is set, matching the n+1 points of Trend.Fitted.
type Timeline struct {
	Series          []analytics.MonthlyCount `json:"series"`
	Labels          []string                 `json:"labels"`
	Counts          []int                    `json:"counts"`
	Trend           *analytics.TrendResult   `json:"trend"`
	ProjectionLabel string                   `json:"projection_label,omitempty"`
}

type Dashboard struct {
	Snapshot     SnapshotInfo                   `json:"snapshot"`
	Stats        analytics.Summary              `json:"stats"`
	Groups       []analytics.DependencyGroup    `json:"groups"`
	Timeline     Timeline                       `json:"timeline"`
	TopOffenders []analytics.RankedInstallation `json:"top_offenders"`
	Categories   []analytics.CategoryShare      `json:"categories"`
}

type InstallationDetail struct {
	database.Installation

	IncidentCount int                      `json:"incident_count"`
	Severity      string                   `json:"severity"`
	Buckets       *analytics.AgeBuckets    `json:"buckets"`
	Diagnosis     *analytics.Diagnosis     `json:"diagnosis"`
	Monthly       []analytics.MonthlyCount `json:"monthly"`
}

// BuildTimeline aggregates installations into the monthly series and fits
// the trend over its counts
func BuildTimeline(installations []database.Installation) Timeline {
	series := analytics.AggregateMonthly(installations)
	t := Timeline{
		Series: series,
		Labels: make([]string, 0, len(series)+1),
		Counts: analytics.Counts(series),
	}
	for _, m := range series {
		t.Labels = append(t.Labels, m.Label)
	}

	if trend := analytics.ProjectTrend(t.Counts); trend != nil {
		t.Trend = trend
		t.ProjectionLabel = ProjectionLabel
		t.Labels = append(t.Labels, ProjectionLabel)
	}
	return t
}

// BuildDashboard composes every dashboard panel from one filtered view of snap
func BuildDashboard(snap *Snapshot, f analytics.Filter) *Dashboard {
	view := f.Apply(snap.Installations)
	return &Dashboard{
		Snapshot:     snap.Info(),
		Stats:        analytics.Summarize(view),
		Groups:       analytics.GroupByDependency(view),
		Timeline:     BuildTimeline(view),
		TopOffenders: analytics.TopOffenders(view, analytics.TopOffendersLimit),
		Categories:   analytics.CategoryBreakdown(view),
	}
}

func BuildInstallationDetail(inst database.Installation) *InstallationDetail {
	d := &InstallationDetail{
		Installation:  inst,
		IncidentCount: inst.IncidentCount(),
		Severity:      analytics.LoadSeverity(inst.IncidentCount()),
		Buckets:       analytics.ComputeAgeBuckets(inst),
		Diagnosis:     analytics.Diagnose(inst),
		Monthly:       analytics.AggregateMonthly([]database.Installation{inst}),
	}
	if d.Incidents == nil {
		d.Incidents = []database.Incident{}
	}
	return d
}
