// Package solver contains the numerical kernels used by curve construction:
// one-dimensional root finders for bootstrapping and yield solving, and
// least-squares minimizers for global curve fitting.
package solver

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoBracket is returned when the function has the same sign at both ends of the search interval.
	ErrNoBracket = errors.New("root not bracketed")
	// ErrMaxIterations is returned when a root finder exhausts its iteration budget.
	ErrMaxIterations = errors.New("maximum iterations exceeded")
)

const eps = 2.220446049250313e-16

// Func is a scalar function that may fail to evaluate.
type Func func(x float64) (float64, error)

// Brent finds x in [lo, hi] with |f(x)| <= accuracy.
//
// f(lo) and f(hi) must differ in sign. Steps are inverse quadratic
// interpolation or secant when they stay inside the bracket and shrink it
// fast enough, bisection otherwise. guess, if inside (lo, hi), is tried
// first and replaces the nearer end when it keeps a sign change.
// Errors returned by f abort the search and are wrapped.
func Brent(f Func, lo, hi, guess, accuracy float64, maxIter int) (float64, error) {
	if lo > hi {
		lo, hi = hi, lo
	}
	if maxIter <= 0 {
		return 0, fmt.Errorf("Brent: maxIter must be positive, got %d", maxIter)
	}

	flo, err := f(lo)
	if err != nil {
		return 0, fmt.Errorf("Brent: f(%g): %w", lo, err)
	}
	if math.Abs(flo) <= accuracy {
		return lo, nil
	}
	fhi, err := f(hi)
	if err != nil {
		return 0, fmt.Errorf("Brent: f(%g): %w", hi, err)
	}
	if math.Abs(fhi) <= accuracy {
		return hi, nil
	}
	if sameSign(flo, fhi) {
		return 0, fmt.Errorf("Brent: f(%g)=%g, f(%g)=%g: %w", lo, flo, hi, fhi, ErrNoBracket)
	}

	// Narrow the bracket with the guess when it is usable.
	if guess > lo && guess < hi {
		fg, err := f(guess)
		if err != nil {
			return 0, fmt.Errorf("Brent: f(%g): %w", guess, err)
		}
		if math.Abs(fg) <= accuracy {
			return guess, nil
		}
		if sameSign(fg, flo) {
			lo, flo = guess, fg
		} else {
			hi, fhi = guess, fg
		}
	}

	a, fa := lo, flo
	b, fb := hi, fhi
	c, fc := b, fb
	var d, e float64

	for iter := 0; iter < maxIter; iter++ {
		if sameSign(fb, fc) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol := 2*eps*math.Abs(b) + 0.5*eps
		xm := 0.5 * (c - b)
		if math.Abs(fb) <= accuracy || math.Abs(xm) <= tol {
			return b, nil
		}

		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			s := fb / fa
			var p, q float64
			if a == c {
				// secant
				p = 2 * xm * s
				q = 1 - s
			} else {
				// inverse quadratic
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			if 2*p < math.Min(3*xm*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else {
			b += math.Copysign(tol, xm)
		}
		fb, err = f(b)
		if err != nil {
			return 0, fmt.Errorf("Brent: f(%g): %w", b, err)
		}
	}
	return b, fmt.Errorf("Brent: |f(%g)|=%g after %d iterations: %w", b, math.Abs(fb), maxIter, ErrMaxIterations)
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
