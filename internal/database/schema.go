package database

import "time"

// Table names
const (
	TableInstallations = "installations"
	TableIncidents     = "incidents"
	TableImportBatches = "import_batches"
)

// Column lists in insert order. Unknown dates are stored as NoDate with the
// matching has_* flag cleared, so no column is nullable.
var (
	InstallationColumns = []string{
		"position", "id", "name", "dependency_group",
		"commissioned_on", "has_commissioned_on", "commissioned_raw",
	}

	IncidentColumns = []string{
		"installation_position", "position", "installation_id", "id", "description",
		"occurred_on", "has_occurred_on", "occurred_raw", "category",
	}

	ImportBatchColumns = []string{
		"id", "imported_at", "sources", "installations", "incidents",
		"skipped_rows", "duplicate_incidents",
	}
)

// NoDate is the placeholder stored in date columns when the date is unknown
var NoDate = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// StoredDate returns the value to persist for t and whether it is known.
func StoredDate(t time.Time) (time.Time, bool) {
	if t.IsZero() {
		return NoDate, false
	}
	return t.UTC(), true
}

// LoadedDate reverses StoredDate, normalising to UTC midnight.
func LoadedDate(t time.Time, known bool) time.Time {
	if !known {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
