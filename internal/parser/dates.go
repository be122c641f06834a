package parser

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/liftdiag/internal/database"
)

// DisplayLayout is the day-first form dates are shown in.
const DisplayLayout = "02/01/2006"

// Spreadsheet serial numbers count days from this epoch. Values at or
// below excelSerialMin are not treated as serial dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const (
	excelSerialMin = 10000
	// excelSerialMax is the serial of 31/12/9999.
	excelSerialMax = 2958465

	maxYear = 9999
)

// ParseDate normalises a spreadsheet date cell to UTC midnight.
//
// Accepted forms are D/M/YYYY and D-M-YYYY (two-digit years are read as
// 20YY), ISO YYYY-MM-DD, any of those followed by a time part, and numeric
// serial dates above 10000 up to 31/12/9999. The second result is false for
// empty, placeholder, or invalid input; an impossible day such as 31/02/2024
// or a year past 9999 is invalid rather than rolled over.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == database.UnknownDate {
		return time.Time{}, false
	}

	if strings.ContainsAny(s, "/-") {
		return parseSeparated(s)
	}

	n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n <= excelSerialMin || n >= excelSerialMax+1 {
		return time.Time{}, false
	}
	return excelEpoch.AddDate(0, 0, int(math.Floor(n))), true
}

func parseSeparated(s string) (time.Time, bool) {
	// Drop a trailing time of day: "15/03/2024 10:30" or "2024-03-15T10:30:00".
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}

	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return time.Time{}, false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return time.Time{}, false
		}
		nums[i] = v
	}

	var year, month, day int
	if len(parts[0]) == 4 {
		year, month, day = nums[0], nums[1], nums[2]
	} else {
		day, month, year = nums[0], nums[1], nums[2]
		if len(parts[2]) <= 2 {
			year += 2000
		}
	}

	if year > maxYear {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders a parsed date for display, or the unknown placeholder.
func FormatDate(t time.Time, ok bool) string {
	if !ok || t.IsZero() {
		return database.UnknownDate
	}
	return t.Format(DisplayLayout)
}
