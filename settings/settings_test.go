package settings_test

import (
	"testing"
	"time"

	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/settings"
	"github.com/meenmo/termfit/utils"
)

func TestEvaluationDate(t *testing.T) {
	t.Parallel()

	e := settings.NewEvaluationDate(time.Date(2024, 3, 15, 17, 30, 0, 0, time.UTC))
	if got := e.Date(); !got.Equal(utils.MustParseDate("2024-03-15")) {
		t.Fatalf("date: got %v want 2024-03-15", got)
	}

	v0 := e.Version()
	e.Set(utils.MustParseDate("2024-03-15"))
	if e.Version() != v0 {
		t.Fatalf("version moved on unchanged date")
	}

	next := e.Advance(calendar.Null, 23, calendar.ModifiedFollowing)
	if want := utils.MustParseDate("2026-02-15"); !next.Equal(want) || !e.Date().Equal(want) {
		t.Fatalf("advance: got %s want %s", next.Format(utils.DateLayout), want.Format(utils.DateLayout))
	}
	if e.Version() <= v0 {
		t.Fatalf("version did not increase after advance")
	}

	// 2026-02-15 is a Sunday; a weekend calendar rolls forward.
	e.Set(utils.MustParseDate("2024-03-15"))
	if got := e.Advance(calendar.TARGET, 23, calendar.ModifiedFollowing); !got.Equal(utils.MustParseDate("2026-02-16")) {
		t.Fatalf("advance on TARGET: got %s want 2026-02-16", got.Format(utils.DateLayout))
	}
}
