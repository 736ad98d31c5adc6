package calendar_test

import (
	"testing"
	"time"

	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/utils"
)

func day(s string) time.Time { return utils.MustParseDate(s) }

func TestAdjustWith(t *testing.T) {
	t.Parallel()

	// 2024-08-31 is a Saturday.
	sat := day("2024-08-31")
	cases := []struct {
		conv calendar.Convention
		want string
	}{
		{calendar.Unadjusted, "2024-08-31"},
		{calendar.Following, "2024-09-02"},
		{calendar.ModifiedFollowing, "2024-08-30"},
		{calendar.Preceding, "2024-08-30"},
	}
	for _, c := range cases {
		got := calendar.AdjustWith(calendar.TARGET, sat, c.conv)
		if !got.Equal(day(c.want)) {
			t.Fatalf("%s: got %s want %s", c.conv, got.Format(utils.DateLayout), c.want)
		}
	}
	if got := calendar.Adjust(calendar.Null, sat); !got.Equal(sat) {
		t.Fatalf("null calendar moved %s to %s", sat.Format(utils.DateLayout), got.Format(utils.DateLayout))
	}
}

func TestAdvance(t *testing.T) {
	t.Parallel()

	ref := day("2024-03-15")
	if got := calendar.Advance(calendar.Null, ref, 23, calendar.ModifiedFollowing); !got.Equal(day("2026-02-15")) {
		t.Fatalf("null: got %s want 2026-02-15", got.Format(utils.DateLayout))
	}
	if got := calendar.Advance(calendar.TARGET, ref, 23, calendar.ModifiedFollowing); !got.Equal(day("2026-02-16")) {
		t.Fatalf("target: got %s want 2026-02-16", got.Format(utils.DateLayout))
	}
	if got := calendar.Advance(calendar.Null, day("2024-01-31"), 1, calendar.Unadjusted); !got.Equal(day("2024-02-29")) {
		t.Fatalf("month end: got %s want 2024-02-29", got.Format(utils.DateLayout))
	}
}

func TestAddBusinessDays(t *testing.T) {
	t.Parallel()

	fri := day("2024-03-15")
	if got := calendar.AddBusinessDays(calendar.TARGET, fri, 1); !got.Equal(day("2024-03-18")) {
		t.Fatalf("forward: got %s want 2024-03-18", got.Format(utils.DateLayout))
	}
	if got := calendar.AddBusinessDays(calendar.TARGET, day("2024-03-18"), -1); !got.Equal(fri) {
		t.Fatalf("backward: got %s want 2024-03-15", got.Format(utils.DateLayout))
	}
	if got := calendar.AddBusinessDays(calendar.Null, fri, 2); !got.Equal(day("2024-03-17")) {
		t.Fatalf("null: got %s want 2024-03-17", got.Format(utils.DateLayout))
	}
}

func TestRegisterHolidays(t *testing.T) {
	t.Parallel()

	cal := calendar.CalendarID("CALTEST")
	xmas := day("2024-12-25")
	if !calendar.IsBusinessDay(cal, xmas) {
		t.Fatalf("%s should be a business day before registration", xmas.Format(utils.DateLayout))
	}
	calendar.RegisterHolidays(cal, xmas, day("2024-12-26"))
	if calendar.IsBusinessDay(cal, xmas) {
		t.Fatalf("%s still a business day", xmas.Format(utils.DateLayout))
	}
	if got := calendar.Adjust(cal, xmas); !got.Equal(day("2024-12-27")) {
		t.Fatalf("adjust: got %s want 2024-12-27", got.Format(utils.DateLayout))
	}
	if !calendar.IsBusinessDay(calendar.TARGET, day("2024-12-26")) {
		t.Fatalf("holidays leaked into TARGET")
	}
}
