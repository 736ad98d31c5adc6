package calendar

import (
	"sync"
	"time"

	"github.com/meenmo/termfit/utils"
)

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	// Null has no holidays and no weekends; every day is a business day.
	Null   CalendarID = "NULL"
	TARGET CalendarID = "TARGET"
	JPN    CalendarID = "JPN"
	USD    CalendarID = "USD"
	KRW    CalendarID = "KRW"
)

// Convention is a business-day adjustment rule.
type Convention string

const (
	Unadjusted        Convention = "UNADJUSTED"
	Following         Convention = "FOLLOWING"
	ModifiedFollowing Convention = "MODIFIED_FOLLOWING"
	Preceding         Convention = "PRECEDING"
)

var (
	mu       sync.RWMutex
	holidays = map[CalendarID]map[string]struct{}{}
)

// RegisterHolidays adds holiday dates to a calendar.
func RegisterHolidays(cal CalendarID, dates ...time.Time) {
	mu.Lock()
	defer mu.Unlock()
	set, ok := holidays[cal]
	if !ok {
		set = make(map[string]struct{}, len(dates))
		holidays[cal] = set
	}
	for _, d := range dates {
		set[d.Format(utils.DateLayout)] = struct{}{}
	}
}

func isHoliday(cal CalendarID, t time.Time) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := holidays[cal][t.Format(utils.DateLayout)]
	return ok
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal CalendarID, t time.Time) bool {
	if cal == Null || cal == "" {
		return true
	}
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(cal, t)
}

// Adjust applies Modified Following.
func Adjust(cal CalendarID, t time.Time) time.Time {
	return AdjustWith(cal, t, ModifiedFollowing)
}

// AdjustWith applies the given business-day convention.
func AdjustWith(cal CalendarID, t time.Time, conv Convention) time.Time {
	switch conv {
	case Unadjusted:
		return t
	case Following:
		return AdjustFollowing(cal, t)
	case Preceding:
		for !IsBusinessDay(cal, t) {
			t = t.AddDate(0, 0, -1)
		}
		return t
	}
	origMonth := t.Month()
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	if t.Month() != origMonth {
		t = t.AddDate(0, 0, -1)
		for !IsBusinessDay(cal, t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// AdjustFollowing applies a simple Following convention (no month preservation).
func AdjustFollowing(cal CalendarID, t time.Time) time.Time {
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal CalendarID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}

// Advance moves t by a number of months (EDATE semantics) and adjusts the result.
func Advance(cal CalendarID, t time.Time, months int, conv Convention) time.Time {
	return AdjustWith(cal, utils.AddMonth(t, months), conv)
}
