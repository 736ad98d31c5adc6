package fitting

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/termfit/curve"
	"github.com/meenmo/termfit/solver"
	"github.com/meenmo/termfit/utils"
)

// Weighting selects how quote errors are weighted in the cost.
type Weighting int

const (
	// WeightNone weights every helper equally.
	WeightNone Weighting = iota
	// WeightInverseDuration weights each helper by its inverse modified
	// duration, normalized to unit length. Helpers must implement curve.Weighted.
	WeightInverseDuration
)

// ParseWeighting maps a configuration name to a Weighting.
func ParseWeighting(name string) (Weighting, error) {
	switch name {
	case "", "none":
		return WeightNone, nil
	case "inverse-duration":
		return WeightInverseDuration, nil
	}
	return 0, fmt.Errorf("ParseWeighting: unknown weighting %q: %w", name, ErrInvalidMethod)
}

// Options configures a fit.
type Options struct {
	// DayCount measures curve time. Default ACT/365F.
	DayCount string
	// Accuracy is the cost below which a fit counts as converged.
	Accuracy float64
	// MaxIterations bounds the optimizer's iterations.
	MaxIterations int
	// Optimizer defaults to Nelder-Mead simplex.
	Optimizer solver.Method
	// Guess is the starting point for the first fit; later fits warm-start
	// from the previous solution.
	Guess     []float64
	Weighting Weighting
	// Weights, when set, overrides Weighting with one weight per helper.
	Weights []float64
	// L2 adds Σ L2_j (x_j - guess_j)^2 to the cost, one entry per parameter.
	L2 []float64
	// MinCutoff and MaxCutoff (years) replace the fitted function with a flat
	// zero rate before MinCutoff and a flat forward rate after MaxCutoff.
	MinCutoff     float64
	MaxCutoff     float64
	Extrapolation curve.Extrapolation
}

// DefaultOptions are used for zero-valued fields.
var DefaultOptions = Options{
	DayCount:      utils.Act365F,
	Accuracy:      1e-10,
	MaxIterations: 5000,
	Optimizer:     solver.Simplex,
}

func (o Options) withDefaults() (Options, error) {
	if o.DayCount == "" {
		o.DayCount = DefaultOptions.DayCount
	}
	if o.Accuracy == 0 {
		o.Accuracy = DefaultOptions.Accuracy
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultOptions.MaxIterations
	}
	switch {
	case o.Accuracy < 0 || math.IsNaN(o.Accuracy):
		return o, fmt.Errorf("accuracy %v: %w", o.Accuracy, curve.ErrInvalidOptions)
	case o.MaxIterations < 0:
		return o, fmt.Errorf("max iterations %d: %w", o.MaxIterations, curve.ErrInvalidOptions)
	case o.MinCutoff < 0 || o.MaxCutoff < 0:
		return o, fmt.Errorf("negative cutoff: %w", curve.ErrInvalidOptions)
	case o.MaxCutoff > 0 && o.MaxCutoff <= o.MinCutoff:
		return o, fmt.Errorf("max cutoff %v not after min cutoff %v: %w", o.MaxCutoff, o.MinCutoff, curve.ErrInvalidOptions)
	}
	for _, l := range o.L2 {
		if l < 0 || math.IsNaN(l) {
			return o, fmt.Errorf("l2 penalty %v: %w", l, curve.ErrInvalidOptions)
		}
	}
	return o, nil
}

// Results describes one fit. A Results value is never modified after the
// fit that produced it; a refit replaces it.
type Results struct {
	Method      string
	Solution    []float64
	Iterations  int
	Evaluations int
	Status      solver.Status
	Converged   bool
	// Cost is the minimized weighted sum of squared quote errors (plus penalty).
	Cost float64
	// Residuals are the weighted quote errors, one per helper, at the solution.
	Residuals []float64
	Weights   []float64
	Reason    string
}

// Problem is a single fit: instruments, method and options at a reference date.
type Problem struct {
	Reference time.Time
	Helpers   []curve.Helper
	Method    Method
	Options   Options
	// Start overrides Options.Guess and the method's guess.
	Start []float64
}

// function is a fitted discount function with normalization and cutoffs.
type function struct {
	ref       time.Time
	dayCount  string
	method    Method
	x         []float64
	norm      float64
	minCutoff float64
	maxCutoff float64
}

func newFunction(ref time.Time, dayCount string, m Method, x []float64, minCutoff, maxCutoff float64) (*function, error) {
	d0, err := m.Discount(x, 0)
	if err != nil {
		return nil, err
	}
	if d0 == 0 || math.IsNaN(d0) || math.IsInf(d0, 0) {
		return nil, fmt.Errorf("%s: discount function is %v at t=0", m.Name(), d0)
	}
	if maxCutoff <= 0 {
		maxCutoff = math.Inf(1)
	}
	return &function{ref: ref, dayCount: dayCount, method: m, x: x, norm: d0, minCutoff: minCutoff, maxCutoff: maxCutoff}, nil
}

// raw is d(x,t)/d(x,0), so the discount at t = 0 is exactly 1.
func (f *function) raw(t float64) (float64, error) {
	if t == 0 {
		return 1, nil
	}
	d, err := f.method.Discount(f.x, t)
	if err != nil {
		return 0, err
	}
	return d / f.norm, nil
}

func (f *function) discount(t float64) (float64, error) {
	switch {
	case t < 0 || math.IsNaN(t):
		return 0, fmt.Errorf("discount at t=%v: %w", t, curve.ErrBeforeReference)
	case t == 0:
		return 1, nil
	case t < f.minCutoff:
		dMin, err := f.raw(f.minCutoff)
		if err != nil {
			return 0, err
		}
		return math.Exp(math.Log(dMin) / f.minCutoff * t), nil
	case t > f.maxCutoff:
		const h = 1e-4
		dMax, err := f.raw(f.maxCutoff)
		if err != nil {
			return 0, err
		}
		dUp, err := f.raw(f.maxCutoff + h)
		if err != nil {
			return 0, err
		}
		fwd := -(math.Log(dUp) - math.Log(dMax)) / h
		return dMax * math.Exp(-fwd*(t-f.maxCutoff)), nil
	}
	return f.raw(t)
}

func (f *function) ReferenceDate() time.Time { return f.ref }

func (f *function) DiscountAt(d time.Time) (float64, error) {
	if d.Before(f.ref) {
		return 0, fmt.Errorf("discount at %s before %s: %w", d.Format(utils.DateLayout), f.ref.Format(utils.DateLayout), curve.ErrBeforeReference)
	}
	return f.discount(utils.YearFraction(f.ref, d, f.dayCount))
}

// weights resolves the per-helper weights for p.
func weights(p Problem) ([]float64, error) {
	n := len(p.Helpers)
	w := make([]float64, n)
	if len(p.Options.Weights) > 0 {
		if len(p.Options.Weights) != n {
			return nil, fmt.Errorf("%d weights for %d helpers: %w", len(p.Options.Weights), n, curve.ErrInvalidOptions)
		}
		for i, v := range p.Options.Weights {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("weight %d is %v: %w", i, v, curve.ErrInvalidOptions)
			}
		}
		copy(w, p.Options.Weights)
		return w, nil
	}
	switch p.Options.Weighting {
	case WeightInverseDuration:
		var sq float64
		for i, h := range p.Helpers {
			wh, ok := h.(curve.Weighted)
			if !ok {
				return nil, fmt.Errorf("helper %s has no natural weight: %w", curve.HelperName(h), curve.ErrInvalidOptions)
			}
			v, err := wh.NaturalWeight(p.Reference)
			if err != nil {
				return nil, fmt.Errorf("weight of helper %s: %w", curve.HelperName(h), err)
			}
			w[i] = v
			sq += v * v
		}
		norm := math.Sqrt(sq)
		for i := range w {
			w[i] /= norm
		}
	default:
		for i := range w {
			w[i] = 1
		}
	}
	return w, nil
}

// yieldPoints collects the yields the helpers quote, for guess generation.
func yieldPoints(p Problem) []YieldPoint {
	var pts []YieldPoint
	for _, h := range p.Helpers {
		yq, ok := h.(curve.YieldQuoted)
		if !ok {
			continue
		}
		t, y, err := yq.QuotedYield(p.Reference, p.Options.DayCount)
		if err != nil || t <= 0 || math.IsNaN(y) {
			continue
		}
		pts = append(pts, YieldPoint{T: t, Yield: y})
	}
	return pts
}

// Fit minimizes the weighted squared quote errors of p.Helpers over the
// parameters of p.Method. Running out of iterations is not an error: the
// best parameters are returned with Converged false.
func Fit(p Problem) (*Results, error) {
	opts, err := p.Options.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("Fit: %w", err)
	}
	p.Options = opts
	if p.Method == nil {
		return nil, fmt.Errorf("Fit: nil method: %w", ErrInvalidMethod)
	}
	if err := p.Method.validate(); err != nil {
		return nil, fmt.Errorf("Fit: %w", err)
	}
	if s, ok := p.Method.(Spread); ok {
		if err := s.aligned(p.Reference, opts.DayCount); err != nil {
			return nil, fmt.Errorf("Fit: %w", err)
		}
	}
	size := p.Method.Size()
	if size == 0 {
		return nil, fmt.Errorf("Fit: %s has no free parameters: %w", p.Method.Name(), ErrInvalidMethod)
	}
	if len(p.Helpers) == 0 {
		return nil, fmt.Errorf("Fit: %w", curve.ErrNoHelpers)
	}
	if len(p.Helpers) < size {
		return nil, fmt.Errorf("Fit: %d helpers for %d parameters of %s: %w", len(p.Helpers), size, p.Method.Name(), ErrTooFewHelpers)
	}
	if len(opts.L2) > 0 && len(opts.L2) != size {
		return nil, fmt.Errorf("Fit: %d l2 penalties for %d parameters: %w", len(opts.L2), size, curve.ErrInvalidOptions)
	}

	w, err := weights(p)
	if err != nil {
		return nil, fmt.Errorf("Fit: %w", err)
	}

	var start []float64
	switch {
	case len(p.Start) == size:
		start = append(start, p.Start...)
	case len(opts.Guess) > 0:
		if len(opts.Guess) != size {
			return nil, fmt.Errorf("Fit: guess has %d entries, %s needs %d: %w", len(opts.Guess), p.Method.Name(), size, curve.ErrInvalidOptions)
		}
		start = append(start, opts.Guess...)
	default:
		start = p.Method.Guess(yieldPoints(p))
	}

	nHelpers := len(p.Helpers)
	m := nHelpers
	if len(opts.L2) > 0 {
		m += size
	}
	residuals := func(dst, x []float64) error {
		f, err := newFunction(p.Reference, opts.DayCount, p.Method, x, opts.MinCutoff, opts.MaxCutoff)
		if err != nil {
			return err
		}
		for i, h := range p.Helpers {
			e, err := curve.QuoteError(h, f)
			if err != nil {
				return fmt.Errorf("helper %s: %w", curve.HelperName(h), err)
			}
			dst[i] = w[i] * e
		}
		for j, l := range opts.L2 {
			dst[nHelpers+j] = math.Sqrt(l) * (x[j] - start[j])
		}
		return nil
	}

	res, err := solver.Minimize(residuals, m, start, solver.Options{
		Method:        opts.Optimizer,
		Accuracy:      opts.Accuracy,
		MaxIterations: opts.MaxIterations,
	})
	if err != nil {
		return nil, fmt.Errorf("Fit: %s: %w", p.Method.Name(), err)
	}

	r := make([]float64, m)
	if err := residuals(r, res.X); err != nil {
		return nil, fmt.Errorf("Fit: %s: residuals at solution: %w", p.Method.Name(), err)
	}
	return &Results{
		Method:      p.Method.Name(),
		Solution:    res.X,
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
		Status:      res.Status,
		Converged:   res.Converged,
		Cost:        res.Cost,
		Residuals:   r[:nHelpers],
		Weights:     w,
		Reason:      res.Reason,
	}, nil
}
