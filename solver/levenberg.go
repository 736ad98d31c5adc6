package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	lmInitialLambda = 1e-3
	lmMaxLambda     = 1e16
	lmRelativeStall = 1e-12
	lmMaxRejections = 20
)

// levenbergMarquardt minimizes |r(x)|^2 with a damped Gauss-Newton step
// (J'J + lambda*diag(J'J)) dx = -J'r, using a central-difference Jacobian.
// One iteration is one Jacobian evaluation followed by an accepted step.
func levenbergMarquardt(f Residuals, m int, x0 []float64, opts Options) (*Result, error) {
	n := len(x0)
	c := newCounter(f, m)

	x := append([]float64(nil), x0...)
	r := make([]float64, m)
	if err := c.residuals(r, x); err != nil {
		return nil, fmt.Errorf("Minimize: residuals at starting point: %w", err)
	}
	cost := floats.Dot(r, r)
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return nil, fmt.Errorf("Minimize: non-finite cost %v at starting point", cost)
	}

	res := &Result{X: x, Cost: cost}
	if cost <= opts.Accuracy {
		res.Status = StatusConverged
		res.Evaluations = c.evals
		return res, nil
	}

	maxEvals := opts.MaxEvaluations
	if maxEvals <= 0 {
		maxEvals = 50 * opts.MaxIterations * (n + 1)
	}

	var (
		jac    = mat.NewDense(m, n, nil)
		jtj    = mat.NewSymDense(n, nil)
		damped = mat.NewSymDense(n, nil)
		grad   = mat.NewVecDense(n, nil)
		step   = mat.NewVecDense(n, nil)
		chol   mat.Cholesky
		trial  = make([]float64, n)
		rTrial = make([]float64, m)
		lambda = lmInitialLambda
	)
	jacSettings := &fd.JacobianSettings{Formula: fd.Central}
	jacFunc := func(y, x []float64) {
		if err := c.residuals(y, x); err != nil && c.err == nil {
			c.err = err
		}
	}

	for res.Iterations < opts.MaxIterations {
		if c.evals >= maxEvals {
			res.Status = StatusMaxIterations
			break
		}
		c.err = nil
		fd.Jacobian(jac, jacFunc, x, jacSettings)
		if c.err != nil {
			res.Status = StatusStationary
			res.Reason = fmt.Sprintf("jacobian: %v", c.err)
			break
		}
		jtj.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), mat.NewVecDense(m, r))
		if mat.Norm(grad, math.Inf(1)) == 0 {
			res.Status = StatusStationary
			res.Reason = "zero gradient"
			break
		}

		accepted := false
		for rejected := 0; rejected < lmMaxRejections && lambda < lmMaxLambda; rejected++ {
			damped.CopySym(jtj)
			for i := 0; i < n; i++ {
				d := jtj.At(i, i)
				if d <= 0 {
					d = 1
				}
				damped.SetSym(i, i, jtj.At(i, i)+lambda*d)
			}
			if !chol.Factorize(damped) {
				lambda *= 10
				continue
			}
			if err := chol.SolveVecTo(step, grad); err != nil {
				lambda *= 10
				continue
			}
			for i := 0; i < n; i++ {
				trial[i] = x[i] - step.AtVec(i)
			}
			err := c.residuals(rTrial, trial)
			trialCost := math.Inf(1)
			if err == nil {
				trialCost = floats.Dot(rTrial, rTrial)
			}
			if math.IsNaN(trialCost) || trialCost >= cost {
				lambda *= 10
				continue
			}

			accepted = true
			improvement := cost - trialCost
			copy(x, trial)
			copy(r, rTrial)
			cost = trialCost
			lambda = math.Max(lambda/10, 1e-12)
			res.Iterations++
			if cost <= opts.Accuracy {
				res.Status = StatusConverged
			} else if improvement <= lmRelativeStall*(cost+improvement) {
				res.Status = StatusStationary
				res.Reason = "relative cost reduction below threshold"
			}
			break
		}
		if !accepted {
			res.Status = StatusStationary
			res.Reason = fmt.Sprintf("no descent step (lambda %g)", lambda)
			break
		}
		if res.Status != StatusNone {
			break
		}
	}
	if res.Status == StatusNone {
		res.Status = StatusMaxIterations
	}
	res.X = x
	res.Cost = cost
	res.Evaluations = c.evals
	return res, nil
}
