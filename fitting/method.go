// Package fitting fits a parametric discount function to a set of
// instruments by nonlinear least squares on their quote errors.
package fitting

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/termfit/curve"
	"github.com/meenmo/termfit/lazy"
	"github.com/meenmo/termfit/utils"
)

var (
	// ErrInvalidMethod is returned for inconsistent fitting method settings.
	ErrInvalidMethod = errors.New("invalid fitting method")
	// ErrTooFewHelpers is returned when there are fewer instruments than free parameters.
	ErrTooFewHelpers = errors.New("fewer helpers than free parameters")
)

// YieldPoint is an observed continuously compounded yield at time T.
type YieldPoint struct {
	T     float64
	Yield float64
}

// Method is a family of discount functions d(x, t). The set of methods is
// closed: ExponentialSplines, Polynomial, NelsonSiegel, Svensson,
// CubicBSplines and Spread.
type Method interface {
	// Name labels the method in logs and metrics.
	Name() string
	// Size is the number of free parameters.
	Size() int
	// Guess returns a starting point from observed yields.
	Guess(points []YieldPoint) []float64
	// Discount evaluates the unnormalized discount function.
	Discount(x []float64, t float64) (float64, error)

	validate() error
	dependencies() []lazy.Dependency
}

// averageYield is the mean of the observed yields, or 3% without observations.
func averageYield(points []YieldPoint) float64 {
	if len(points) == 0 {
		return 0.03
	}
	var s float64
	for _, p := range points {
		s += p.Yield
	}
	return s / float64(len(points))
}

// shortLong returns the yields at the shortest and longest observation.
func shortLong(points []YieldPoint) (float64, float64) {
	if len(points) == 0 {
		return 0.03, 0.03
	}
	sorted := append([]YieldPoint(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })
	return sorted[0].Yield, sorted[len(sorted)-1].Yield
}

// ExponentialSplines is d(t) = Σ_{i=1..n} c_i exp(-i κ t).
//
// With ConstrainAtZero, c_1 = 1 - Σ_{i>1} c_i and is not a parameter.
// The decay κ is the last parameter unless FixedKappa is set.
type ExponentialSplines struct {
	// Coefficients is n; zero means 9.
	Coefficients    int
	FixedKappa      *float64
	ConstrainAtZero bool
}

func (m ExponentialSplines) n() int {
	if m.Coefficients == 0 {
		return 9
	}
	return m.Coefficients
}

func (m ExponentialSplines) Name() string { return "exponential-splines" }

func (m ExponentialSplines) Size() int {
	size := m.n()
	if m.ConstrainAtZero {
		size--
	}
	if m.FixedKappa == nil {
		size++
	}
	return size
}

func (m ExponentialSplines) validate() error {
	if m.n() < 1 {
		return fmt.Errorf("exponential splines with %d coefficients: %w", m.n(), ErrInvalidMethod)
	}
	if m.FixedKappa != nil && !(*m.FixedKappa > 0) {
		return fmt.Errorf("exponential splines kappa %v: %w", *m.FixedKappa, ErrInvalidMethod)
	}
	return nil
}

func (m ExponentialSplines) dependencies() []lazy.Dependency { return nil }

func (m ExponentialSplines) Guess(points []YieldPoint) []float64 {
	x := make([]float64, m.Size())
	if !m.ConstrainAtZero {
		x[0] = 1
	}
	if m.FixedKappa == nil {
		x[len(x)-1] = math.Max(averageYield(points), 0.01)
	}
	return x
}

func (m ExponentialSplines) Discount(x []float64, t float64) (float64, error) {
	kappa := 0.0
	coeffs := x
	if m.FixedKappa != nil {
		kappa = *m.FixedKappa
	} else {
		kappa = x[len(x)-1]
		coeffs = x[:len(x)-1]
	}

	var d float64
	if m.ConstrainAtZero {
		sum := 0.0
		for i, c := range coeffs {
			d += c * math.Exp(-kappa*float64(i+2)*t)
			sum += c
		}
		d += (1 - sum) * math.Exp(-kappa*t)
	} else {
		for i, c := range coeffs {
			d += c * math.Exp(-kappa*float64(i+1)*t)
		}
	}
	return d, nil
}

// Polynomial is d(t) = Σ_{i=0..Degree} a_i t^i; with ConstrainAtZero, a_0 = 1.
type Polynomial struct {
	Degree          int
	ConstrainAtZero bool
}

func (m Polynomial) Name() string { return "polynomial" }

func (m Polynomial) Size() int {
	if m.ConstrainAtZero {
		return m.Degree
	}
	return m.Degree + 1
}

func (m Polynomial) validate() error {
	if m.Degree < 1 {
		return fmt.Errorf("polynomial degree %d: %w", m.Degree, ErrInvalidMethod)
	}
	return nil
}

func (m Polynomial) dependencies() []lazy.Dependency { return nil }

// Guess starts from the linearization 1 - y t.
func (m Polynomial) Guess(points []YieldPoint) []float64 {
	x := make([]float64, m.Size())
	y := averageYield(points)
	if m.ConstrainAtZero {
		x[0] = -y
	} else {
		x[0] = 1
		x[1] = -y
	}
	return x
}

func (m Polynomial) Discount(x []float64, t float64) (float64, error) {
	coeffs := x
	if m.ConstrainAtZero {
		coeffs = append([]float64{1}, x...)
	}
	// Horner
	d := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		d = d*t + coeffs[i]
	}
	return d, nil
}

// loading is (1 - exp(-k t)) / (k t), continuous at k t = 0.
func loading(k, t float64) float64 {
	kt := k * t
	if math.Abs(kt) < 1e-12 {
		return 1 - kt/2
	}
	return -math.Expm1(-kt) / kt
}

// NelsonSiegel is d(t) = exp(-z(t) t) with
// z(t) = β0 + (β1 + β2) L(κ, t) - β2 exp(-κ t), L(κ, t) = (1 - e^{-κt})/(κt).
// Parameters are [β0, β1, β2, κ], or [β0, β1, β2] with FixedKappa.
type NelsonSiegel struct {
	FixedKappa *float64
}

func (m NelsonSiegel) Name() string { return "nelson-siegel" }

func (m NelsonSiegel) Size() int {
	if m.FixedKappa != nil {
		return 3
	}
	return 4
}

func (m NelsonSiegel) validate() error {
	if m.FixedKappa != nil && !(*m.FixedKappa > 0) {
		return fmt.Errorf("nelson-siegel kappa %v: %w", *m.FixedKappa, ErrInvalidMethod)
	}
	return nil
}

func (m NelsonSiegel) dependencies() []lazy.Dependency { return nil }

// Guess sets the level to the long yield and the slope to short minus long.
func (m NelsonSiegel) Guess(points []YieldPoint) []float64 {
	short, long := shortLong(points)
	x := []float64{long, short - long, 0}
	if m.FixedKappa == nil {
		x = append(x, 0.3)
	}
	return x
}

func (m NelsonSiegel) Discount(x []float64, t float64) (float64, error) {
	kappa := 0.0
	if m.FixedKappa != nil {
		kappa = *m.FixedKappa
	} else {
		kappa = x[3]
	}
	z := x[0] + (x[1]+x[2])*loading(kappa, t) - x[2]*math.Exp(-kappa*t)
	return math.Exp(-z * t), nil
}

// Svensson extends NelsonSiegel with a second hump:
// z(t) += β3 (L(κ2, t) - exp(-κ2 t)).
// Parameters are [β0, β1, β2, β3, κ1, κ2], with fixed decays removed.
type Svensson struct {
	FixedKappa1 *float64
	FixedKappa2 *float64
}

func (m Svensson) Name() string { return "svensson" }

func (m Svensson) Size() int {
	size := 4
	if m.FixedKappa1 == nil {
		size++
	}
	if m.FixedKappa2 == nil {
		size++
	}
	return size
}

func (m Svensson) validate() error {
	for _, k := range []*float64{m.FixedKappa1, m.FixedKappa2} {
		if k != nil && !(*k > 0) {
			return fmt.Errorf("svensson kappa %v: %w", *k, ErrInvalidMethod)
		}
	}
	return nil
}

func (m Svensson) dependencies() []lazy.Dependency { return nil }

func (m Svensson) Guess(points []YieldPoint) []float64 {
	short, long := shortLong(points)
	x := []float64{long, short - long, 0, 0}
	if m.FixedKappa1 == nil {
		x = append(x, 0.3)
	}
	if m.FixedKappa2 == nil {
		x = append(x, 0.08)
	}
	return x
}

func (m Svensson) kappas(x []float64) (float64, float64) {
	i := 4
	var k1, k2 float64
	if m.FixedKappa1 != nil {
		k1 = *m.FixedKappa1
	} else {
		k1 = x[i]
		i++
	}
	if m.FixedKappa2 != nil {
		k2 = *m.FixedKappa2
	} else {
		k2 = x[i]
	}
	return k1, k2
}

func (m Svensson) Discount(x []float64, t float64) (float64, error) {
	k1, k2 := m.kappas(x)
	z := x[0] + (x[1]+x[2])*loading(k1, t) - x[2]*math.Exp(-k1*t) +
		x[3]*(loading(k2, t)-math.Exp(-k2*t))
	return math.Exp(-z * t), nil
}

// Spread multiplies a base method's discount function by a reference curve:
// d(t) = d_base(x, t) · D_ref(t). Both are measured from the same reference date.
type Spread struct {
	Base      Method
	Reference curve.YieldCurve
}

func (m Spread) Name() string {
	if m.Base == nil {
		return "spread"
	}
	return "spread-" + m.Base.Name()
}

func (m Spread) Size() int { return m.Base.Size() }

func (m Spread) validate() error {
	if m.Base == nil || m.Reference == nil {
		return fmt.Errorf("spread needs a base method and a reference curve: %w", ErrInvalidMethod)
	}
	if _, nested := m.Base.(Spread); nested {
		return fmt.Errorf("spread of a spread: %w", ErrInvalidMethod)
	}
	return m.Base.validate()
}

// aligned reports whether the reference curve measures time from ref with
// dayCount, so that t means the same on both curves.
func (m Spread) aligned(ref time.Time, dayCount string) error {
	if d := m.Reference.ReferenceDate(); !d.Equal(ref) {
		return fmt.Errorf("spread reference curve starts %s, fit starts %s: %w",
			d.Format(utils.DateLayout), ref.Format(utils.DateLayout), ErrInvalidMethod)
	}
	if dc := m.Reference.DayCount(); dc != dayCount {
		return fmt.Errorf("spread reference curve day count %s, fit %s: %w", dc, dayCount, ErrInvalidMethod)
	}
	return nil
}

func (m Spread) dependencies() []lazy.Dependency {
	return append([]lazy.Dependency{m.Reference}, m.Base.dependencies()...)
}

// Guess fits the base method to yields in excess of the reference zero rates.
func (m Spread) Guess(points []YieldPoint) []float64 {
	spreads := make([]YieldPoint, 0, len(points))
	for _, p := range points {
		z, err := m.Reference.ZeroRate(p.T)
		if err != nil {
			continue
		}
		spreads = append(spreads, YieldPoint{T: p.T, Yield: p.Yield - z})
	}
	if len(spreads) == 0 {
		spreads = []YieldPoint{{T: 1, Yield: 0}}
	}
	return m.Base.Guess(spreads)
}

func (m Spread) Discount(x []float64, t float64) (float64, error) {
	base, err := m.Base.Discount(x, t)
	if err != nil {
		return 0, err
	}
	ref, err := m.Reference.Discount(t)
	if err != nil {
		return 0, err
	}
	return base * ref, nil
}
