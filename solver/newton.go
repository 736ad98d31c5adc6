package solver

import (
	"fmt"
	"math"
)

// FuncDeriv returns f(x) and f'(x).
type FuncDeriv func(x float64) (f, df float64, err error)

// NewtonSafe is Newton-Raphson kept inside the bracket [lo, hi].
//
// A Newton step that would leave the bracket, or that does not halve the
// previous step, is replaced by bisection. Stops when |f(x)| <= accuracy.
func NewtonSafe(f FuncDeriv, lo, hi, guess, accuracy float64, maxIter int) (float64, error) {
	if lo > hi {
		lo, hi = hi, lo
	}
	flo, _, err := f(lo)
	if err != nil {
		return 0, fmt.Errorf("NewtonSafe: f(%g): %w", lo, err)
	}
	if math.Abs(flo) <= accuracy {
		return lo, nil
	}
	fhi, _, err := f(hi)
	if err != nil {
		return 0, fmt.Errorf("NewtonSafe: f(%g): %w", hi, err)
	}
	if math.Abs(fhi) <= accuracy {
		return hi, nil
	}
	if sameSign(flo, fhi) {
		return 0, fmt.Errorf("NewtonSafe: f(%g)=%g, f(%g)=%g: %w", lo, flo, hi, fhi, ErrNoBracket)
	}

	// Orient so that f(xl) < 0.
	xl, xh := lo, hi
	if flo > 0 {
		xl, xh = hi, lo
	}

	x := guess
	if !(x > math.Min(lo, hi) && x < math.Max(lo, hi)) {
		x = 0.5 * (lo + hi)
	}
	dxOld := math.Abs(hi - lo)
	dx := dxOld

	fx, dfx, err := f(x)
	if err != nil {
		return 0, fmt.Errorf("NewtonSafe: f(%g): %w", x, err)
	}
	for iter := 0; iter < maxIter; iter++ {
		if math.Abs(fx) <= accuracy {
			return x, nil
		}
		outside := ((x-xh)*dfx-fx)*((x-xl)*dfx-fx) > 0
		slow := math.Abs(2*fx) > math.Abs(dxOld*dfx)
		if outside || slow || dfx == 0 {
			dxOld = dx
			dx = 0.5 * (xh - xl)
			x = xl + dx
		} else {
			dxOld = dx
			dx = fx / dfx
			x -= dx
		}
		if math.Abs(dx) <= 2*eps*math.Abs(x) {
			return x, nil
		}
		fx, dfx, err = f(x)
		if err != nil {
			return 0, fmt.Errorf("NewtonSafe: f(%g): %w", x, err)
		}
		if fx < 0 {
			xl = x
		} else {
			xh = x
		}
	}
	return x, fmt.Errorf("NewtonSafe: |f(%g)|=%g after %d iterations: %w", x, math.Abs(fx), maxIter, ErrMaxIterations)
}
