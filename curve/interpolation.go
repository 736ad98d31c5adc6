package curve

import (
	"fmt"
	"math"
	"sort"
)

// Interpolation selects how discount factors are interpolated between nodes.
type Interpolation int

const (
	// LogLinearDiscount interpolates log discount factors linearly in time
	// (piecewise flat forward rates).
	LogLinearDiscount Interpolation = iota
	// LinearZero interpolates continuously compounded zero rates linearly in time.
	LinearZero
)

func (i Interpolation) String() string {
	switch i {
	case LogLinearDiscount:
		return "log-linear-discount"
	case LinearZero:
		return "linear-zero"
	default:
		return fmt.Sprintf("Interpolation(%d)", int(i))
	}
}

// ParseInterpolation maps a configuration name to an Interpolation.
func ParseInterpolation(name string) (Interpolation, error) {
	switch name {
	case "", "log-linear-discount", "loglinear":
		return LogLinearDiscount, nil
	case "linear-zero", "linearzero":
		return LinearZero, nil
	}
	return 0, fmt.Errorf("ParseInterpolation: unknown interpolation %q: %w", name, ErrInvalidOptions)
}

// Extrapolation selects the behaviour past the last node.
type Extrapolation int

const (
	// ExtrapolateFlatForward continues the last segment's forward rate.
	ExtrapolateFlatForward Extrapolation = iota
	// ExtrapolateNone fails queries past the last node.
	ExtrapolateNone
)

// bracketOrBoundary returns i such that times[i-1] < t <= times[i], clamped to
// the first or last segment when t lies outside. len(times) must be >= 2.
func bracketOrBoundary(times []float64, t float64) int {
	idx := sort.SearchFloat64s(times, t)
	if idx <= 0 {
		return 1
	}
	if idx >= len(times) {
		return len(times) - 1
	}
	return idx
}

// interpolate evaluates the discount factor at t from nodes (times[0] == 0,
// discounts[0] == 1). t beyond the last node extrapolates the last segment's
// forward rate.
func interpolate(method Interpolation, times, discounts []float64, t float64) float64 {
	if len(times) == 1 {
		return discounts[0]
	}
	last := len(times) - 1
	if t > times[last] {
		fwd := math.Log(discounts[last-1]/discounts[last]) / (times[last] - times[last-1])
		return discounts[last] * math.Exp(-fwd*(t-times[last]))
	}

	i := bracketOrBoundary(times, t)
	if times[i] == t {
		return discounts[i]
	}
	t1, t2 := times[i-1], times[i]
	df1, df2 := discounts[i-1], discounts[i]

	switch method {
	case LinearZero:
		z2 := -math.Log(df2) / t2
		z1 := z2
		if t1 > 0 {
			z1 = -math.Log(df1) / t1
		}
		z := z1 + (z2-z1)*(t-t1)/(t2-t1)
		return math.Exp(-z * t)
	default:
		forwardRate := math.Log(df1/df2) / (t2 - t1)
		return df1 * math.Exp(-forwardRate*(t-t1))
	}
}
