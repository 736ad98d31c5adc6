package fitting

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/termfit/curve"
	"github.com/meenmo/termfit/lazy"
	"github.com/meenmo/termfit/logging"
	"github.com/meenmo/termfit/metrics"
	"github.com/meenmo/termfit/utils"
)

// snapshot is one completed fit.
type snapshot struct {
	fn      *function
	maxDate time.Time
	maxTime float64
	results *Results
}

// Curve is a discount curve fitted to helpers. It refits lazily when a quote,
// a relinked handle, the evaluation date or a reference curve changes, and
// each refit starts from the previous solution.
type Curve struct {
	anchor  curve.Anchor
	helpers []curve.Helper
	method  Method
	opts    Options
	cache   *lazy.Cache[*snapshot]
}

// NewCurve validates its inputs and fits once. A fit that stops above the
// requested accuracy still yields a curve; inspect Results.
func NewCurve(anchor curve.Anchor, helpers []curve.Helper, method Method, opts Options) (*Curve, error) {
	if method == nil {
		return nil, fmt.Errorf("NewCurve: nil method: %w", ErrInvalidMethod)
	}
	if err := method.validate(); err != nil {
		return nil, fmt.Errorf("NewCurve: %w", err)
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("NewCurve: %w", err)
	}
	if len(helpers) == 0 {
		return nil, fmt.Errorf("NewCurve: %w", curve.ErrNoHelpers)
	}

	deps := make([]lazy.Dependency, 0, len(helpers)+2)
	if d := anchor.Dependency(); d != nil {
		deps = append(deps, d)
	} else if anchor.Date().IsZero() {
		return nil, fmt.Errorf("NewCurve: anchor without date: %w", curve.ErrInvalidOptions)
	}
	for i, h := range helpers {
		if h == nil || h.Quote() == nil {
			return nil, fmt.Errorf("NewCurve: helper %d has no quote handle: %w", i, curve.ErrInvalidOptions)
		}
		deps = append(deps, h.Quote())
	}
	deps = append(deps, method.dependencies()...)

	c := &Curve{
		anchor:  anchor,
		helpers: append([]curve.Helper(nil), helpers...),
		method:  method,
		opts:    opts,
		cache:   lazy.New[*snapshot](deps...),
	}
	if _, err := c.snapshot(); err != nil {
		return nil, fmt.Errorf("NewCurve: %w", err)
	}
	return c, nil
}

func (c *Curve) snapshot() (*snapshot, error) {
	return c.cache.Get(func(prev *snapshot, hasPrev bool) (*snapshot, error) {
		began := time.Now()
		ref := c.anchor.Date()

		p := Problem{Reference: ref, Helpers: c.helpers, Method: c.method, Options: c.opts}
		if hasPrev && prev != nil {
			p.Start = prev.results.Solution
		}
		res, err := Fit(p)
		if err != nil {
			logging.Get().Warn("curve fit failed", "method", c.method.Name(), "reference_date", ref.Format(utils.DateLayout), "error", err)
			return nil, err
		}

		var maxDate time.Time
		for _, h := range c.helpers {
			if d := h.LatestRelevantDate(ref); d.After(maxDate) {
				maxDate = d
			}
		}
		maxTime := utils.YearFraction(ref, maxDate, c.opts.DayCount)

		maxCutoff := c.opts.MaxCutoff
		if c.opts.Extrapolation == curve.ExtrapolateFlatForward && (maxCutoff == 0 || maxCutoff > maxTime) {
			maxCutoff = maxTime
		}
		fn, err := newFunction(ref, c.opts.DayCount, c.method, res.Solution, c.opts.MinCutoff, maxCutoff)
		if err != nil {
			return nil, err
		}

		elapsed := time.Since(began)
		metrics.Default.Recalculations.WithLabelValues("fitted").Inc()
		metrics.Default.RecalcDuration.WithLabelValues("fitted").Observe(elapsed.Seconds())
		metrics.Default.FitIterations.WithLabelValues(c.method.Name()).Observe(float64(res.Iterations))
		if !res.Converged {
			metrics.Default.NonConvergedFits.WithLabelValues(c.method.Name()).Inc()
			logging.Get().Warn("curve fit not converged",
				"method", c.method.Name(),
				"status", res.Status.String(),
				"cost", res.Cost,
				"accuracy", c.opts.Accuracy,
				"iterations", res.Iterations,
			)
		} else {
			logging.Get().Debug("curve fitted",
				"method", c.method.Name(),
				"reference_date", ref.Format(utils.DateLayout),
				"iterations", res.Iterations,
				"cost", res.Cost,
				"warm_start", hasPrev,
				"elapsed", elapsed,
			)
		}
		return &snapshot{fn: fn, maxDate: maxDate, maxTime: maxTime, results: res}, nil
	})
}

// Calculate brings the fit up to date.
func (c *Curve) Calculate() error {
	_, err := c.snapshot()
	return err
}

// Results returns the diagnostics of the current fit.
func (c *Curve) Results() (*Results, error) {
	s, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return s.results, nil
}

// Method returns the fitting method.
func (c *Curve) Method() Method { return c.method }

// Helpers returns the fitted instruments.
func (c *Curve) Helpers() []curve.Helper { return append([]curve.Helper(nil), c.helpers...) }

func (c *Curve) ReferenceDate() time.Time { return c.anchor.Date() }

func (c *Curve) DayCount() string { return c.opts.DayCount }

func (c *Curve) Version() uint64 { return c.cache.Version() }

func (c *Curve) State() lazy.State { return c.cache.State() }

// MaxDate is the latest date any helper depends on.
func (c *Curve) MaxDate() (time.Time, error) {
	s, err := c.snapshot()
	if err != nil {
		return time.Time{}, err
	}
	return s.maxDate, nil
}

func (c *Curve) Discount(t float64) (float64, error) {
	s, err := c.snapshot()
	if err != nil {
		return 0, err
	}
	if c.opts.Extrapolation == curve.ExtrapolateNone && t > s.maxTime {
		return 0, fmt.Errorf("discount at t=%v past %v: %w", t, s.maxTime, curve.ErrBeyondMaxDate)
	}
	return s.fn.discount(t)
}

func (c *Curve) DiscountAt(d time.Time) (float64, error) {
	s, err := c.snapshot()
	if err != nil {
		return 0, err
	}
	if c.opts.Extrapolation == curve.ExtrapolateNone && d.After(s.maxDate) {
		return 0, fmt.Errorf("discount at %s past %s: %w", d.Format(utils.DateLayout), s.maxDate.Format(utils.DateLayout), curve.ErrBeyondMaxDate)
	}
	return s.fn.DiscountAt(d)
}

// ZeroRate is the continuously compounded zero rate to t; at t = 0 it is
// the rate over the first 1e-4 years.
func (c *Curve) ZeroRate(t float64) (float64, error) {
	if t == 0 {
		t = 1e-4
	}
	d, err := c.Discount(t)
	if err != nil {
		return 0, err
	}
	return -math.Log(d) / t, nil
}
