package utils

import (
	"fmt"
	"time"
)

// DateLayout is the ISO date layout used across the module.
const DateLayout = "2006-01-02"

// IsStrictlyIncreasing reports whether every date is after its predecessor.
// It returns the index of the first offending date, or -1.
func IsStrictlyIncreasing(dates []time.Time) int {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return i
		}
	}
	return -1
}

// ParseDate converts YYYY-MM-DD to a UTC time.Time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %w", err)
	}
	return t, nil
}

// MustParseDate is ParseDate for literals in examples and tests.
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Days returns the number of calendar days between two dates.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// AddMonth behaves like Excel's EDATE, avoiding Go's month normalization surprises.
func AddMonth(t time.Time, months int) time.Time {
	target := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	d := t.AddDate(0, months, 0)
	if d.Month() == target.Month() {
		return d
	}
	// Day overflowed into the next month: clamp to the last day of the target month.
	return time.Date(target.Year(), target.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}
