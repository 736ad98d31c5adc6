package curve

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/termfit/solver"
	"github.com/meenmo/termfit/utils"
)

// BootstrapOptions configures a piecewise curve.
type BootstrapOptions struct {
	// DayCount measures curve time from the reference date. Default ACT/365F.
	DayCount      string
	Interpolation Interpolation
	Extrapolation Extrapolation
	// Accuracy is the tolerance on each helper's quote error.
	Accuracy float64
	// MaxIterations bounds the root finder per pillar.
	MaxIterations int
	// MinForwardRate and MaxForwardRate bound the forward rate over each new
	// segment and so define the root finder's bracket. Both zero means the defaults.
	MinForwardRate float64
	MaxForwardRate float64
}

// DefaultBootstrapOptions are used for zero-valued fields.
var DefaultBootstrapOptions = BootstrapOptions{
	DayCount:       utils.Act365F,
	Interpolation:  LogLinearDiscount,
	Extrapolation:  ExtrapolateFlatForward,
	Accuracy:       1e-12,
	MaxIterations:  100,
	MinForwardRate: -1.0,
	MaxForwardRate: 1.0,
}

func (o BootstrapOptions) withDefaults() (BootstrapOptions, error) {
	d := DefaultBootstrapOptions
	if o.DayCount == "" {
		o.DayCount = d.DayCount
	}
	if o.Accuracy == 0 {
		o.Accuracy = d.Accuracy
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.MinForwardRate == 0 && o.MaxForwardRate == 0 {
		o.MinForwardRate, o.MaxForwardRate = d.MinForwardRate, d.MaxForwardRate
	}
	switch {
	case o.Accuracy < 0 || math.IsNaN(o.Accuracy):
		return o, fmt.Errorf("accuracy %v: %w", o.Accuracy, ErrInvalidOptions)
	case o.MaxIterations < 0:
		return o, fmt.Errorf("max iterations %d: %w", o.MaxIterations, ErrInvalidOptions)
	case !(o.MinForwardRate < o.MaxForwardRate):
		return o, fmt.Errorf("forward-rate bounds [%v, %v]: %w", o.MinForwardRate, o.MaxForwardRate, ErrInvalidOptions)
	case o.Interpolation != LogLinearDiscount && o.Interpolation != LinearZero:
		return o, fmt.Errorf("interpolation %v: %w", o.Interpolation, ErrInvalidOptions)
	}
	return o, nil
}

// PillarError reports the pillar a bootstrap failed on.
type PillarError struct {
	Index  int
	Date   time.Time
	Helper string
	Err    error
}

func (e *PillarError) Error() string {
	return fmt.Sprintf("bootstrap: pillar %d (%s, helper %s): %v", e.Index, e.Date.Format(utils.DateLayout), e.Helper, e.Err)
}

func (e *PillarError) Unwrap() error { return e.Err }

// checkPillars verifies that helper pillars lie after ref, are strictly
// increasing and map to strictly increasing curve times.
func checkPillars(ref time.Time, helpers []Helper, dayCount string) ([]time.Time, error) {
	if len(helpers) == 0 {
		return nil, ErrNoHelpers
	}
	pillars := make([]time.Time, len(helpers))
	prevTime := 0.0
	for i, h := range helpers {
		p := h.PillarDate(ref)
		if !p.After(ref) {
			return nil, &PillarError{Index: i, Date: p, Helper: HelperName(h),
				Err: fmt.Errorf("pillar on or before reference date %s: %w", ref.Format(utils.DateLayout), ErrUnsortedPillars)}
		}
		if i > 0 && !p.After(pillars[i-1]) {
			return nil, &PillarError{Index: i, Date: p, Helper: HelperName(h),
				Err: fmt.Errorf("not after pillar %s of helper %s: %w", pillars[i-1].Format(utils.DateLayout), HelperName(helpers[i-1]), ErrUnsortedPillars)}
		}
		t := utils.YearFraction(ref, p, dayCount)
		if !(t > prevTime) {
			return nil, &PillarError{Index: i, Date: p, Helper: HelperName(h),
				Err: fmt.Errorf("curve time %v not after %v under %s: %w", t, prevTime, dayCount, ErrUnsortedPillars)}
		}
		prevTime = t
		pillars[i] = p
	}
	return pillars, nil
}

// bootstrap solves one node per helper, in order. Nodes before the current
// pillar stay fixed; the current node is found with Brent inside the bracket
// implied by the forward-rate bounds. The curve under construction does not
// extrapolate, so a helper that needs a later date fails.
func bootstrap(ref time.Time, helpers []Helper, opts BootstrapOptions) (*nodeCurve, error) {
	pillars, err := checkPillars(ref, helpers, opts.DayCount)
	if err != nil {
		return nil, err
	}

	work := newNodeCurve(ref, opts.DayCount, opts.Interpolation, ExtrapolateNone, len(helpers))
	for i, h := range helpers {
		prevT := work.maxTime()
		prevDF := work.discounts[len(work.discounts)-1]
		t := work.timeFromReference(pillars[i])
		dt := t - prevT

		guessFwd := 0.02
		if n := len(work.times); n > 1 {
			guessFwd = math.Log(work.discounts[n-2]/work.discounts[n-1]) / (work.times[n-1] - work.times[n-2])
		}

		work.push(pillars[i], t, prevDF)
		last := len(work.discounts) - 1
		objective := func(df float64) (float64, error) {
			work.discounts[last] = df
			return QuoteError(h, work)
		}

		lo := prevDF * math.Exp(-opts.MaxForwardRate*dt)
		hi := prevDF * math.Exp(-opts.MinForwardRate*dt)
		guess := prevDF * math.Exp(-guessFwd*dt)
		df, err := solver.Brent(objective, lo, hi, guess, opts.Accuracy, opts.MaxIterations)
		if err != nil {
			return nil, &PillarError{Index: i, Date: pillars[i], Helper: HelperName(h), Err: err}
		}
		work.discounts[last] = df
	}

	work.extrapolation = opts.Extrapolation
	return work, nil
}
