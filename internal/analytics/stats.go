package analytics

import (
	"math"
	"sort"

	"github.com/liftdiag/internal/database"
)

const (
	// TopOffendersLimit caps the ranking of installations by incident count.
	TopOffendersLimit = 10

	criticalIncidentCount = 5
	warningIncidentCount  = 2
)

// Summary holds the headline numbers of a view
type Summary struct {
	Installations         int `json:"installations"`
	TotalIncidents        int `json:"total_incidents"`
	AffectedInstallations int `json:"affected_installations"`

	// MTBFDays is round(365 * affected / total), nil when there are no incidents.
	MTBFDays *int `json:"mtbf_days"`
}

// Summarize computes the headline numbers over installations.
func Summarize(installations []database.Installation) Summary {
	s := Summary{Installations: len(installations)}
	for _, inst := range installations {
		n := inst.IncidentCount()
		s.TotalIncidents += n
		if n > 0 {
			s.AffectedInstallations++
		}
	}
	if s.TotalIncidents > 0 {
		mtbf := int(math.Round(365 * float64(s.AffectedInstallations) / float64(s.TotalIncidents)))
		s.MTBFDays = &mtbf
	}
	return s
}

// LoadSeverity grades an installation by its raw incident count.
func LoadSeverity(incidents int) string {
	switch {
	case incidents >= criticalIncidentCount:
		return SeverityCritical
	case incidents >= warningIncidentCount:
		return SeverityWarning
	default:
		return SeverityOK
	}
}

// RankedInstallation is one row of the top offenders chart
type RankedInstallation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Incidents int    `json:"incidents"`
	Severity  string `json:"severity"`
}

// TopOffenders returns up to limit installations with the most incidents.
// Ties keep snapshot order.
func TopOffenders(installations []database.Installation, limit int) []RankedInstallation {
	ranked := make([]RankedInstallation, 0, len(installations))
	for _, inst := range installations {
		n := inst.IncidentCount()
		ranked = append(ranked, RankedInstallation{
			ID:        inst.ID,
			Name:      inst.Name,
			Incidents: n,
			Severity:  LoadSeverity(n),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Incidents > ranked[j].Incidents
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// CategoryShare is one slice of the category breakdown
type CategoryShare struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Percent  int    `json:"percent"`
}

// knownCategories lists the breakdown slices in display order.
var knownCategories = []string{
	database.CategoryInstallationFault,
	database.CategoryAssemblyFault,
	database.DefaultCategory,
}

// CategoryBreakdown splits incidents into the known categories. Unrecognised
// labels are counted under DefaultCategory. Percentages are rounded and
// zero when there are no incidents.
func CategoryBreakdown(installations []database.Installation) []CategoryShare {
	counts := make(map[string]int, len(knownCategories))
	total := 0
	for _, inst := range installations {
		for _, inc := range inst.Incidents {
			key := database.DefaultCategory
			switch inc.Category {
			case database.CategoryInstallationFault, database.CategoryAssemblyFault:
				key = inc.Category
			}
			counts[key]++
			total++
		}
	}

	shares := make([]CategoryShare, len(knownCategories))
	for i, c := range knownCategories {
		shares[i] = CategoryShare{Category: c, Count: counts[c]}
		if total > 0 {
			shares[i].Percent = int(math.Round(100 * float64(counts[c]) / float64(total)))
		}
	}
	return shares
}
