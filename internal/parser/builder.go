package parser

import (
	"github.com/liftdiag/internal/database"
)

// BuildStats summarises a merge of parse results
type BuildStats struct {
	Installations      int `json:"installations"`
	Incidents          int `json:"incidents"`
	SkippedRows        int `json:"skipped_rows"`
	DuplicateIncidents int `json:"duplicate_incidents"`
}

// Builder merges records into installations. Installations keep the order
// in which their id was first seen; incidents keep row order and repeat
// ids within one installation are dropped, first occurrence wins.
//
// Installation attributes come from the first row of an installation.
// Later rows only fill fields that are still at their placeholder.
type Builder struct {
	order []string
	byID  map[string]*database.Installation
	seen  map[string]map[string]struct{}
	stats BuildStats
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{
		byID: make(map[string]*database.Installation),
		seen: make(map[string]map[string]struct{}),
	}
}

// Add merges one parse result
func (b *Builder) Add(result *ParseResult) {
	if result == nil {
		return
	}
	b.stats.SkippedRows += result.SkippedRows
	for _, rec := range result.Records {
		b.AddRecord(rec)
	}
}

// AddRecord merges one normalised row
func (b *Builder) AddRecord(rec Record) {
	inst, ok := b.byID[rec.InstallationID]
	if !ok {
		inst = &database.Installation{
			ID:              rec.InstallationID,
			Name:            rec.Name,
			DependencyGroup: rec.DependencyGroup,
			CommissionedOn:  rec.CommissionedOn,
			CommissionedRaw: rec.CommissionedRaw,
			Incidents:       []database.Incident{},
		}
		b.byID[rec.InstallationID] = inst
		b.seen[rec.InstallationID] = make(map[string]struct{})
		b.order = append(b.order, rec.InstallationID)
	} else {
		fillDefaults(inst, rec)
	}

	if rec.Incident == nil {
		return
	}
	ids := b.seen[rec.InstallationID]
	if _, dup := ids[rec.Incident.ID]; dup {
		b.stats.DuplicateIncidents++
		return
	}
	ids[rec.Incident.ID] = struct{}{}
	inst.Incidents = append(inst.Incidents, *rec.Incident)
}

func fillDefaults(inst *database.Installation, rec Record) {
	if inst.Name == database.DefaultName && rec.Name != database.DefaultName {
		inst.Name = rec.Name
	}
	if inst.DependencyGroup == database.DefaultDependencyGroup && rec.DependencyGroup != database.DefaultDependencyGroup {
		inst.DependencyGroup = rec.DependencyGroup
	}
	if !inst.HasCommissionDate() && !rec.CommissionedOn.IsZero() {
		inst.CommissionedOn = rec.CommissionedOn
		inst.CommissionedRaw = rec.CommissionedRaw
	}
}

// Installations returns the merged snapshot
func (b *Builder) Installations() []database.Installation {
	out := make([]database.Installation, len(b.order))
	for i, id := range b.order {
		out[i] = *b.byID[id]
	}
	return out
}

// Stats returns counters for the merged snapshot
func (b *Builder) Stats() BuildStats {
	s := b.stats
	s.Installations = len(b.order)
	for _, id := range b.order {
		s.Incidents += len(b.byID[id].Incidents)
	}
	return s
}
