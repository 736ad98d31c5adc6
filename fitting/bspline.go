package fitting

import (
	"fmt"
	"math"

	"github.com/meenmo/termfit/lazy"
)

const splineDegree = 3

// CubicBSplines is d(t) = Σ c_i B_{i,3}(t) over a fixed knot vector, with
// len(Knots) - 4 basis functions.
//
// With ConstrainAtZero, the coefficient of the basis function largest at
// t = 0 is solved from d(0) = 1 and is not a parameter.
type CubicBSplines struct {
	Knots           []float64
	ConstrainAtZero bool
}

func (m CubicBSplines) Name() string { return "cubic-bsplines" }

func (m CubicBSplines) basisCount() int { return len(m.Knots) - splineDegree - 1 }

func (m CubicBSplines) Size() int {
	if m.ConstrainAtZero {
		return m.basisCount() - 1
	}
	return m.basisCount()
}

func (m CubicBSplines) validate() error {
	if len(m.Knots) < 8 {
		return fmt.Errorf("cubic b-splines need at least 8 knots, got %d: %w", len(m.Knots), ErrInvalidMethod)
	}
	for i := 1; i < len(m.Knots); i++ {
		if m.Knots[i] < m.Knots[i-1] {
			return fmt.Errorf("cubic b-spline knots decrease at %d: %w", i, ErrInvalidMethod)
		}
	}
	if m.ConstrainAtZero {
		if _, b0 := m.pivot(); math.Abs(b0) < 1e-12 {
			return fmt.Errorf("no cubic b-spline basis function is non-zero at t=0: %w", ErrInvalidMethod)
		}
	}
	return nil
}

func (m CubicBSplines) dependencies() []lazy.Dependency { return nil }

// basis evaluates B_{i,p}(t) with the Cox-de Boor recursion.
func (m CubicBSplines) basis(i, p int, t float64) float64 {
	k := m.Knots
	if p == 0 {
		if k[i] <= t && t < k[i+1] {
			return 1
		}
		return 0
	}
	var left, right float64
	if d := k[i+p] - k[i]; d > 0 {
		left = (t - k[i]) / d * m.basis(i, p-1, t)
	}
	if d := k[i+p+1] - k[i+1]; d > 0 {
		right = (k[i+p+1] - t) / d * m.basis(i+1, p-1, t)
	}
	return left + right
}

// pivot is the basis function eliminated by the constraint at zero, and its value at 0.
func (m CubicBSplines) pivot() (int, float64) {
	best, value := 0, 0.0
	for i := 0; i < m.basisCount(); i++ {
		if b := m.basis(i, splineDegree, 0); math.Abs(b) > math.Abs(value) {
			best, value = i, b
		}
	}
	return best, value
}

// coefficients expands the parameter vector to one coefficient per basis function.
func (m CubicBSplines) coefficients(x []float64) []float64 {
	if !m.ConstrainAtZero {
		return x
	}
	j, bj := m.pivot()
	c := make([]float64, m.basisCount())
	sum := 0.0
	for i, k := 0, 0; i < len(c); i++ {
		if i == j {
			continue
		}
		c[i] = x[k]
		sum += c[i] * m.basis(i, splineDegree, 0)
		k++
	}
	c[j] = (1 - sum) / bj
	return c
}

// Guess sets each coefficient to exp(-y·g_i) at the basis function's Greville abscissa.
func (m CubicBSplines) Guess(points []YieldPoint) []float64 {
	y := averageYield(points)
	j := -1
	if m.ConstrainAtZero {
		j, _ = m.pivot()
	}
	x := make([]float64, 0, m.Size())
	for i := 0; i < m.basisCount(); i++ {
		if i == j {
			continue
		}
		g := (m.Knots[i+1] + m.Knots[i+2] + m.Knots[i+3]) / 3
		x = append(x, math.Exp(-y*g))
	}
	return x
}

func (m CubicBSplines) Discount(x []float64, t float64) (float64, error) {
	c := m.coefficients(x)
	var d float64
	for i, ci := range c {
		if ci == 0 {
			continue
		}
		d += ci * m.basis(i, splineDegree, t)
	}
	return d, nil
}
