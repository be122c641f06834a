package fixtures

import (
	"fmt"
	"time"

	"github.com/liftdiag/internal/database"
)

// Date returns UTC midnight of the given day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// InstallationBuilder provides a fluent API for building test installations
type InstallationBuilder struct {
	inst database.Installation
	next int
}

// NewInstallationBuilder creates a new InstallationBuilder with sensible defaults
func NewInstallationBuilder() *InstallationBuilder {
	return &InstallationBuilder{
		inst: database.Installation{
			ID:              "OBRA-001",
			Name:            "Test Installation",
			DependencyGroup: "Madrid",
			CommissionedRaw: database.UnknownDate,
			Incidents:       []database.Incident{},
		},
		next: 1,
	}
}

// WithID sets the installation id
func (b *InstallationBuilder) WithID(id string) *InstallationBuilder {
	b.inst.ID = id
	return b
}

// WithName sets the display name
func (b *InstallationBuilder) WithName(name string) *InstallationBuilder {
	b.inst.Name = name
	return b
}

// WithDependency sets the dependency group
func (b *InstallationBuilder) WithDependency(group string) *InstallationBuilder {
	b.inst.DependencyGroup = group
	return b
}

// CommissionedOn sets the commissioning date
func (b *InstallationBuilder) CommissionedOn(t time.Time) *InstallationBuilder {
	b.inst.CommissionedOn = t
	b.inst.CommissionedRaw = t.Format("02/01/2006")
	return b
}

// WithIncident appends a fully specified incident
func (b *InstallationBuilder) WithIncident(inc database.Incident) *InstallationBuilder {
	b.inst.Incidents = append(b.inst.Incidents, inc)
	return b
}

// WithIncidentOn appends a dated incident with a generated id
func (b *InstallationBuilder) WithIncidentOn(t time.Time, description string) *InstallationBuilder {
	return b.WithIncident(database.Incident{
		ID:          b.nextID(),
		Description: description,
		OccurredOn:  t,
		OccurredRaw: t.Format("02/01/2006"),
		Category:    database.DefaultCategory,
	})
}

// WithUndatedIncident appends an incident whose date is unknown
func (b *InstallationBuilder) WithUndatedIncident(description string) *InstallationBuilder {
	return b.WithIncident(database.Incident{
		ID:          b.nextID(),
		Description: description,
		OccurredRaw: database.UnknownDate,
		Category:    database.DefaultCategory,
	})
}

// WithIncidentsAtDays appends one incident per offset, in days from the
// commissioning date. CommissionedOn must be called first.
func (b *InstallationBuilder) WithIncidentsAtDays(offsets ...int) *InstallationBuilder {
	for _, d := range offsets {
		b.WithIncidentOn(b.inst.CommissionedOn.AddDate(0, 0, d), fmt.Sprintf("day %d", d))
	}
	return b
}

// WithCategory sets the category of the last appended incident
func (b *InstallationBuilder) WithCategory(category string) *InstallationBuilder {
	if n := len(b.inst.Incidents); n > 0 {
		b.inst.Incidents[n-1].Category = category
	}
	return b
}

// Build returns the installation
func (b *InstallationBuilder) Build() database.Installation {
	inst := b.inst
	inst.Incidents = append([]database.Incident(nil), b.inst.Incidents...)
	return inst
}

func (b *InstallationBuilder) nextID() string {
	id := fmt.Sprintf("AV-%s-%03d", b.inst.ID, b.next)
	b.next++
	return id
}
