package analytics

import (
	"math"
	"time"

	"github.com/liftdiag/internal/database"
)

// Day thresholds for the age buckets, measured from commissioning.
const (
	firstMonthDays  = 30
	secondMonthDays = 60
)

// AgeBuckets counts an installation's dated incidents by age since commissioning
type AgeBuckets struct {
	Month1     int `json:"month1"`
	Month2     int `json:"month2"`
	Month3Plus int `json:"month3_plus"`
}

// Total returns the number of incidents that fell into any bucket.
func (b AgeBuckets) Total() int {
	return b.Month1 + b.Month2 + b.Month3Plus
}

// ComputeAgeBuckets places each dated incident of inst by its age in days
// relative to the commissioning date. Incidents reported before
// commissioning have a negative age and land in Month1.
//
// It returns nil when the commissioning date is unknown or there are no
// incidents at all.
func ComputeAgeBuckets(inst database.Installation) *AgeBuckets {
	if !inst.HasCommissionDate() || len(inst.Incidents) == 0 {
		return nil
	}

	var b AgeBuckets
	for _, inc := range inst.Incidents {
		if !inc.HasDate() {
			continue
		}
		age := daysBetween(inst.CommissionedOn, inc.OccurredOn)
		switch {
		case age <= firstMonthDays:
			b.Month1++
		case age <= secondMonthDays:
			b.Month2++
		default:
			b.Month3Plus++
		}
	}
	return &b
}

// daysBetween returns the whole days from start to end. Both are expected
// at UTC midnight; rounding absorbs any stray time-of-day component.
func daysBetween(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Hours() / 24))
}
