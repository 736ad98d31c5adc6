package curve

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/termfit/lazy"
	"github.com/meenmo/termfit/quote"
	"github.com/meenmo/termfit/utils"
)

// FlatForward is a curve with one continuously compounded rate.
type FlatForward struct {
	anchor   Anchor
	rate     *quote.Handle
	dayCount string
}

// NewFlatForward returns a flat curve quoting rate. dayCount "" means ACT/365F.
func NewFlatForward(anchor Anchor, rate *quote.Handle, dayCount string) (*FlatForward, error) {
	if err := anchor.validate(); err != nil {
		return nil, fmt.Errorf("NewFlatForward: %w", err)
	}
	if rate == nil {
		return nil, fmt.Errorf("NewFlatForward: nil rate handle: %w", ErrInvalidOptions)
	}
	if dayCount == "" {
		dayCount = utils.Act365F
	}
	return &FlatForward{anchor: anchor, rate: rate, dayCount: dayCount}, nil
}

func (f *FlatForward) ReferenceDate() time.Time { return f.anchor.Date() }

func (f *FlatForward) DayCount() string { return f.dayCount }

// MaxDate is unbounded for a flat curve.
func (f *FlatForward) MaxDate() (time.Time, error) {
	return time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), nil
}

func (f *FlatForward) Version() uint64 {
	deps := []lazy.Dependency{f.rate}
	if d := f.anchor.Dependency(); d != nil {
		deps = append(deps, d)
	}
	return lazy.MaxVersion(deps)
}

func (f *FlatForward) Discount(t float64) (float64, error) {
	if t < 0 || math.IsNaN(t) {
		return 0, fmt.Errorf("discount at t=%v: %w", t, ErrBeforeReference)
	}
	if t == 0 {
		return 1, nil
	}
	r, err := f.rate.Value()
	if err != nil {
		return 0, err
	}
	return math.Exp(-r * t), nil
}

func (f *FlatForward) DiscountAt(d time.Time) (float64, error) {
	ref := f.ReferenceDate()
	if d.Before(ref) {
		return 0, fmt.Errorf("discount at %s before %s: %w", d.Format(utils.DateLayout), ref.Format(utils.DateLayout), ErrBeforeReference)
	}
	return f.Discount(utils.YearFraction(ref, d, f.dayCount))
}

func (f *FlatForward) ZeroRate(t float64) (float64, error) {
	if t < 0 || math.IsNaN(t) {
		return 0, fmt.Errorf("zero rate at t=%v: %w", t, ErrBeforeReference)
	}
	return f.rate.Value()
}
