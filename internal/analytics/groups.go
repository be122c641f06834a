package analytics

import (
	"sort"

	"github.com/liftdiag/internal/database"
)

// InstallationSummary is the list entry for one installation
type InstallationSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Incidents int    `json:"incidents"`
	Severity  string `json:"severity"`
}

// DependencyGroup collects the installations of one dependency
type DependencyGroup struct {
	Name          string                `json:"name"`
	Count         int                   `json:"count"`
	Installations []InstallationSummary `json:"installations"`
}

// GroupByDependency groups installations by dependency, sorted by group
// name. Installations keep snapshot order inside their group and an empty
// group label falls back to database.DefaultDependencyGroup.
func GroupByDependency(installations []database.Installation) []DependencyGroup {
	index := make(map[string]int)
	var groups []DependencyGroup

	for _, inst := range installations {
		name := inst.DependencyGroup
		if name == "" {
			name = database.DefaultDependencyGroup
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, DependencyGroup{Name: name})
		}
		n := inst.IncidentCount()
		groups[i].Installations = append(groups[i].Installations, InstallationSummary{
			ID:        inst.ID,
			Name:      inst.Name,
			Incidents: n,
			Severity:  LoadSeverity(n),
		})
		groups[i].Count++
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Name < groups[j].Name
	})
	return groups
}
