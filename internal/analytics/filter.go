package analytics

import (
	"strings"
	"time"

	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/textnorm"
)

// ScopeAll grants access to every installation.
const ScopeAll = "ALL"

// Filter narrows a snapshot to the current view. The zero value keeps
// everything.
type Filter struct {
	From *time.Time // inclusive, compared against incident dates
	To   *time.Time // inclusive
	Term string

	// Scope lists the installation ids visible to the caller. Empty or a
	// single ScopeAll entry means unrestricted.
	Scope []string
}

// IsZero reports whether the filter keeps the snapshot unchanged.
func (f Filter) IsZero() bool {
	return f.From == nil && f.To == nil && strings.TrimSpace(f.Term) == "" && f.unrestricted()
}

func (f Filter) unrestricted() bool {
	for _, s := range f.Scope {
		if strings.EqualFold(strings.TrimSpace(s), ScopeAll) {
			return true
		}
	}
	return len(f.Scope) == 0
}

// Apply returns the installations visible through the filter. The input is
// only read; installations whose incidents change are returned as copies.
//
// Incidents with an unknown date survive the date range. The term matches
// an installation id, its name, or the description of any incident left
// after date filtering.
func (f Filter) Apply(installations []database.Installation) []database.Installation {
	var allowed map[string]struct{}
	if !f.unrestricted() {
		allowed = make(map[string]struct{}, len(f.Scope))
		for _, id := range f.Scope {
			allowed[strings.ToUpper(strings.TrimSpace(id))] = struct{}{}
		}
	}

	term := strings.TrimSpace(f.Term)
	result := make([]database.Installation, 0, len(installations))
	for _, inst := range installations {
		if allowed != nil {
			if _, ok := allowed[strings.ToUpper(inst.ID)]; !ok {
				continue
			}
		}

		view := inst
		if f.From != nil || f.To != nil {
			view = inst.WithIncidents(f.incidentsInRange(inst.Incidents))
		}

		if term != "" && !matchesTerm(view, term) {
			continue
		}
		result = append(result, view)
	}
	return result
}

func (f Filter) incidentsInRange(incidents []database.Incident) []database.Incident {
	kept := make([]database.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if inc.HasDate() {
			if f.From != nil && inc.OccurredOn.Before(*f.From) {
				continue
			}
			if f.To != nil && inc.OccurredOn.After(*f.To) {
				continue
			}
		}
		kept = append(kept, inc)
	}
	return kept
}

func matchesTerm(inst database.Installation, term string) bool {
	if textnorm.Contains(inst.ID, term) || textnorm.Contains(inst.Name, term) {
		return true
	}
	for _, inc := range inst.Incidents {
		if textnorm.Contains(inc.Description, term) {
			return true
		}
	}
	return false
}
