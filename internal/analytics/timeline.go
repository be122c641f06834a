package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/liftdiag/internal/database"
)

// MonthKey identifies a calendar month
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// Before reports whether k is an earlier month than other.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// String returns the "YYYY-MM" form.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Label returns the display form "MM/YYYY".
func (k MonthKey) Label() string {
	return fmt.Sprintf("%02d/%04d", int(k.Month), k.Year)
}

// MonthlyCount is one point of the global incident timeline
type MonthlyCount struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// AggregateMonthly counts incidents per calendar month across all
// installations. Only months with at least one dated incident appear, in
// ascending order. Incidents without a date are ignored here.
func AggregateMonthly(installations []database.Installation) []MonthlyCount {
	counts := make(map[MonthKey]int)
	for _, inst := range installations {
		for _, inc := range inst.Incidents {
			if !inc.HasDate() {
				continue
			}
			counts[MonthOf(inc.OccurredOn)]++
		}
	}

	keys := make([]MonthKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Before(keys[j])
	})

	series := make([]MonthlyCount, len(keys))
	for i, k := range keys {
		series[i] = MonthlyCount{
			Key:   k.String(),
			Label: k.Label(),
			Count: counts[k],
		}
	}
	return series
}

// Counts extracts the count column of a monthly series.
func Counts(series []MonthlyCount) []int {
	values := make([]int, len(series))
	for i, p := range series {
		values[i] = p.Count
	}
	return values
}
