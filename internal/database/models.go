package database

import (
	"time"
)

// Placeholders used when a spreadsheet row leaves a field empty.
const (
	UnknownDate            = "--/--/----"
	DefaultName            = "Sin nombre"
	DefaultDependencyGroup = "Otras"
	DefaultCategory        = "Other"
)

// Incident categories recognised by the category breakdown. Anything else
// is reported under DefaultCategory.
const (
	CategoryInstallationFault = "Fallo Instalación"
	CategoryAssemblyFault     = "Fallo Montaje"
)

// Incident represents a single reported fault ("avería") on an installation
type Incident struct {
	ID          string `json:"id"`
	Description string `json:"description"`

	// OccurredOn is UTC midnight of the reported day. The zero value means
	// the source date was missing or could not be parsed.
	OccurredOn  time.Time `json:"occurred_on"`
	OccurredRaw string    `json:"occurred_raw"`

	Category string `json:"category"`
}

// HasDate reports whether the incident carries a usable calendar date.
func (i Incident) HasDate() bool {
	return !i.OccurredOn.IsZero()
}

// Installation represents one elevator installation and its incident history
type Installation struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DependencyGroup string `json:"dependency_group"`

	// CommissionedOn is the date the unit was put into service, zero when unknown.
	CommissionedOn  time.Time `json:"commissioned_on"`
	CommissionedRaw string    `json:"commissioned_raw"`

	// Incidents keep source row order and never repeat an incident ID.
	Incidents []Incident `json:"incidents"`
}

// HasCommissionDate reports whether the commissioning date is known.
func (i Installation) HasCommissionDate() bool {
	return !i.CommissionedOn.IsZero()
}

// IncidentCount returns the raw number of incidents, dated or not.
func (i Installation) IncidentCount() int {
	return len(i.Incidents)
}

// WithIncidents returns a shallow copy of the installation carrying the
// given incidents. The receiver is left untouched.
func (i Installation) WithIncidents(incidents []Incident) Installation {
	i.Incidents = incidents
	return i
}

// ImportBatch records one snapshot replacement
type ImportBatch struct {
	ID                 string    `json:"id"`
	ImportedAt         time.Time `json:"imported_at"`
	Sources            []string  `json:"sources"`
	Installations      int       `json:"installations"`
	Incidents          int       `json:"incidents"`
	SkippedRows        int       `json:"skipped_rows"`
	DuplicateIncidents int       `json:"duplicate_incidents"`
}

// TotalIncidents sums incident counts across installations.
func TotalIncidents(installations []Installation) int {
	total := 0
	for _, inst := range installations {
		total += len(inst.Incidents)
	}
	return total
}
