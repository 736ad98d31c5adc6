// Package curve defines discount curves, the instrument helper contract, and
// the sequential bootstrapper that builds piecewise curves from helpers.
package curve

import (
	"fmt"
	"time"

	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/lazy"
	"github.com/meenmo/termfit/quote"
	"github.com/meenmo/termfit/settings"
)

// Discounter is the minimal curve view instrument helpers price against.
type Discounter interface {
	ReferenceDate() time.Time
	DiscountAt(d time.Time) (float64, error)
}

// YieldCurve is a discount curve measured in year fractions from its reference date.
type YieldCurve interface {
	Discounter
	DayCount() string
	MaxDate() (time.Time, error)
	Discount(t float64) (float64, error)
	ZeroRate(t float64) (float64, error)
	Version() uint64
}

// Helper wraps one quoted instrument for curve construction.
type Helper interface {
	Quote() *quote.Handle
	// PillarDate is the date the bootstrapper solves a node for.
	PillarDate(ref time.Time) time.Time
	// LatestRelevantDate is the last date the instrument's price depends on.
	LatestRelevantDate(ref time.Time) time.Time
	// ImpliedQuote prices the instrument off c in the units of its quote.
	ImpliedQuote(c Discounter) (float64, error)
}

// Weighted helpers supply a natural fitting weight, such as inverse duration.
type Weighted interface {
	NaturalWeight(ref time.Time) (float64, error)
}

// YieldQuoted helpers can express their quote as a continuously compounded
// yield at a time, which guess generators use.
type YieldQuoted interface {
	QuotedYield(ref time.Time, dayCount string) (t, y float64, err error)
}

// QuoteError is the implied quote minus the observed quote.
func QuoteError(h Helper, c Discounter) (float64, error) {
	observed, err := h.Quote().Value()
	if err != nil {
		return 0, err
	}
	implied, err := h.ImpliedQuote(c)
	if err != nil {
		return 0, err
	}
	return implied - observed, nil
}

// HelperName labels a helper in diagnostics.
func HelperName(h Helper) string {
	if n := h.Quote().Name(); n != "" {
		return n
	}
	return fmt.Sprintf("%T", h)
}

// Anchor decides a curve's reference date: either fixed, or derived from an
// evaluation date plus a settlement lag.
type Anchor struct {
	fixed          time.Time
	eval           *settings.EvaluationDate
	settlementDays int
	cal            calendar.CalendarID
}

// Fixed anchors a curve to d.
func Fixed(d time.Time) Anchor {
	return Anchor{fixed: d}
}

// Tracking anchors a curve settlementDays business days after eval.
func Tracking(eval *settings.EvaluationDate, settlementDays int, cal calendar.CalendarID) Anchor {
	return Anchor{eval: eval, settlementDays: settlementDays, cal: cal}
}

// Date returns the current reference date.
func (a Anchor) Date() time.Time {
	if a.eval == nil {
		return a.fixed
	}
	return calendar.AddBusinessDays(a.cal, a.eval.Date(), a.settlementDays)
}

// Dependency returns the evaluation date for tracking anchors, nil otherwise.
func (a Anchor) Dependency() lazy.Dependency {
	if a.eval == nil {
		return nil
	}
	return a.eval
}

func (a Anchor) validate() error {
	if a.eval == nil && a.fixed.IsZero() {
		return fmt.Errorf("anchor has neither reference date nor evaluation date: %w", ErrInvalidOptions)
	}
	if a.settlementDays < 0 {
		return fmt.Errorf("negative settlement days %d: %w", a.settlementDays, ErrInvalidOptions)
	}
	return nil
}
