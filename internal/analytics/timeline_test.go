package analytics

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/testutil/fixtures"
)

func TestMonthKey(t *testing.T) {
	k := MonthOf(fixtures.Date(2024, time.March, 17))
	if k.String() != "2024-03" {
		t.Errorf("String() = %q, want 2024-03", k.String())
	}
	if k.Label() != "03/2024" {
		t.Errorf("Label() = %q, want 03/2024", k.Label())
	}
}

func TestMonthKey_Before(t *testing.T) {
	tests := []struct {
		name string
		a, b MonthKey
		want bool
	}{
		{"earlier month", MonthKey{2024, time.January}, MonthKey{2024, time.March}, true},
		{"later month", MonthKey{2024, time.March}, MonthKey{2024, time.January}, false},
		{"earlier year", MonthKey{2023, time.December}, MonthKey{2024, time.January}, true},
		{"same month", MonthKey{2024, time.May}, MonthKey{2024, time.May}, false},
		{"five digit year", MonthKey{2024, time.March}, MonthKey{10000, time.January}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Before(tt.b); got != tt.want {
				t.Errorf("%v.Before(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestAggregateMonthly_WideYears(t *testing.T) {
	inst := fixtures.NewInstallationBuilder().
		WithIncidentOn(fixtures.Date(10000, time.January, 1), "far").
		WithIncidentOn(fixtures.Date(2024, time.March, 15), "near").
		WithIncidentOn(fixtures.Date(999, time.June, 2), "old").
		Build()

	got := AggregateMonthly([]database.Installation{inst})
	keys := make([]string, len(got))
	for i, p := range got {
		keys[i] = p.Key
	}
	want := []string{"0999-06", "2024-03", "10000-01"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestAggregateMonthly(t *testing.T) {
	a := fixtures.NewInstallationBuilder().WithID("A").
		WithIncidentOn(fixtures.Date(2024, time.January, 5), "door").
		WithIncidentOn(fixtures.Date(2024, time.January, 28), "motor").
		WithIncidentOn(fixtures.Date(2023, time.December, 31), "cabin").
		WithUndatedIncident("unknown").
		Build()
	b := fixtures.NewInstallationBuilder().WithID("B").
		WithIncidentOn(fixtures.Date(2024, time.March, 1), "button").
		WithIncidentOn(fixtures.Date(2024, time.January, 15), "door").
		Build()

	got := AggregateMonthly([]database.Installation{a, b})
	want := []MonthlyCount{
		{Key: "2023-12", Label: "12/2023", Count: 1},
		{Key: "2024-01", Label: "01/2024", Count: 3},
		{Key: "2024-03", Label: "03/2024", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AggregateMonthly() = %+v, want %+v", got, want)
	}

	// The undated incident is excluded from the series but not from the raw total.
	series := 0
	for _, p := range got {
		series += p.Count
	}
	if series != 5 {
		t.Errorf("series total = %d, want 5", series)
	}
	if total := database.TotalIncidents([]database.Installation{a, b}); total != 6 {
		t.Errorf("raw total = %d, want 6", total)
	}
}

func TestAggregateMonthly_OrderIndependent(t *testing.T) {
	dates := []time.Time{
		fixtures.Date(2022, time.November, 3),
		fixtures.Date(2024, time.February, 9),
		fixtures.Date(2023, time.October, 20),
		fixtures.Date(2022, time.November, 30),
		fixtures.Date(2024, time.February, 1),
		fixtures.Date(2023, time.January, 14),
	}

	build := func(order []int) []database.Installation {
		b := fixtures.NewInstallationBuilder()
		for _, i := range order {
			b.WithIncidentOn(dates[i], "x")
		}
		return []database.Installation{b.Build()}
	}

	base := AggregateMonthly(build([]int{0, 1, 2, 3, 4, 5}))
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		perm := r.Perm(len(dates))
		got := AggregateMonthly(build(perm))
		if !reflect.DeepEqual(got, base) {
			t.Fatalf("permutation %v gave %+v, want %+v", perm, got, base)
		}
	}

	for i := 1; i < len(base); i++ {
		if base[i-1].Key >= base[i].Key {
			t.Errorf("series not ascending at %d: %s >= %s", i, base[i-1].Key, base[i].Key)
		}
	}
}

func TestAggregateMonthly_Empty(t *testing.T) {
	got := AggregateMonthly(nil)
	if len(got) != 0 {
		t.Errorf("expected empty series, got %+v", got)
	}
	if c := Counts(got); len(c) != 0 {
		t.Errorf("expected no counts, got %v", c)
	}
}
