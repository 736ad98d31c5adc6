package utils_test

import (
	"math"
	"testing"
	"time"

	"github.com/meenmo/termfit/utils"
)

func TestParseTenorMonths(t *testing.T) {
	t.Parallel()

	ok := map[string]int{"3M": 3, "10y": 120, "1Y6M": 18, " 18m ": 18}
	for in, want := range ok {
		got, err := utils.ParseTenorMonths(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %d, %v want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"", "Y", "3Q", "12"} {
		if _, err := utils.ParseTenorMonths(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestYearFraction(t *testing.T) {
	t.Parallel()

	d := utils.MustParseDate
	cases := []struct {
		start, end string
		dc         string
		want       float64
	}{
		{"2024-03-15", "2025-03-15", utils.Thirty, 1},
		{"2024-01-31", "2024-02-29", utils.Thirty, 29.0 / 360},
		{"2024-03-15", "2024-06-13", utils.Act360, 90.0 / 360},
		{"2024-03-15", "2024-06-13", utils.Act365F, 90.0 / 365},
		{"2024-03-15", "2024-06-13", "BUS/252", 90.0 / 365},
	}
	for _, c := range cases {
		got := utils.YearFraction(d(c.start), d(c.end), c.dc)
		if math.Abs(got-c.want) > 1e-14 {
			t.Fatalf("%s %s..%s: got %v want %v", c.dc, c.start, c.end, got, c.want)
		}
	}
	if utils.KnownDayCount("BUS/252") || !utils.KnownDayCount(utils.Thirty3) {
		t.Fatalf("KnownDayCount mismatch")
	}
}

func TestDates(t *testing.T) {
	t.Parallel()

	d := utils.MustParseDate
	if got := utils.AddMonth(d("2024-03-31"), -1); !got.Equal(d("2024-02-29")) {
		t.Fatalf("AddMonth: got %s want 2024-02-29", got.Format(utils.DateLayout))
	}
	if got := utils.Days(d("2024-02-28"), d("2024-03-01")); got != 2 {
		t.Fatalf("Days: got %v want 2", got)
	}
	dates := []time.Time{d("2024-01-01"), d("2024-02-01"), d("2024-02-01")}
	if got := utils.IsStrictlyIncreasing(dates); got != 2 {
		t.Fatalf("IsStrictlyIncreasing: got %d want 2", got)
	}
	if got := utils.IsStrictlyIncreasing(dates[:2]); got != -1 {
		t.Fatalf("IsStrictlyIncreasing: got %d want -1", got)
	}
	if _, err := utils.ParseDate("2024-13-01"); err == nil {
		t.Fatalf("ParseDate: expected error")
	}
}
