package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Method selects the multivariate minimizer.
type Method int

const (
	// Simplex is Nelder-Mead, the zero Method.
	Simplex Method = iota
	LevenbergMarquardt
	BFGS
)

func (m Method) String() string {
	switch m {
	case LevenbergMarquardt:
		return "levenberg-marquardt"
	case Simplex:
		return "simplex"
	case BFGS:
		return "bfgs"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod maps a configuration name to a Method.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "", "simplex", "nelder-mead":
		return Simplex, nil
	case "lm", "levenberg-marquardt":
		return LevenbergMarquardt, nil
	case "bfgs":
		return BFGS, nil
	}
	return 0, fmt.Errorf("ParseMethod: unknown optimizer %q", name)
}

// Status is the reason a minimization stopped.
type Status int

const (
	StatusNone Status = iota
	// StatusConverged: cost reached the requested accuracy.
	StatusConverged
	// StatusStationary: no further progress possible above the requested accuracy.
	StatusStationary
	// StatusMaxIterations: iteration or evaluation budget exhausted.
	StatusMaxIterations
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusStationary:
		return "stationary"
	case StatusMaxIterations:
		return "max-iterations"
	default:
		return "none"
	}
}

// Residuals fills dst (length m) with the residual vector at x.
type Residuals func(dst, x []float64) error

// Options controls Minimize.
type Options struct {
	Method Method
	// Accuracy is the target for the cost (sum of squared residuals).
	Accuracy float64
	// MaxIterations bounds the major iterations of the chosen method.
	MaxIterations int
	// MaxEvaluations bounds residual evaluations; 0 picks a multiple of MaxIterations.
	MaxEvaluations int
}

// Result is the outcome of Minimize. X holds the best point found even when
// Converged is false.
type Result struct {
	X           []float64
	Cost        float64
	Iterations  int
	Evaluations int
	Status      Status
	Converged   bool
	// Reason carries the optimizer's own explanation for stopping, if any.
	Reason string
}

// Minimize minimizes the sum of squared residuals over x, starting at x0.
//
// Exhausting the budget or stalling above Accuracy is not an error: the
// result carries the best point and its Status. Errors are returned for
// invalid input and for residual evaluation failures at the starting point.
func Minimize(f Residuals, m int, x0 []float64, opts Options) (*Result, error) {
	if len(x0) == 0 {
		return nil, errors.New("Minimize: no free parameters")
	}
	if m <= 0 {
		return nil, errors.New("Minimize: no residuals")
	}
	if opts.MaxIterations <= 0 {
		return nil, fmt.Errorf("Minimize: MaxIterations must be positive, got %d", opts.MaxIterations)
	}
	if opts.Accuracy < 0 || math.IsNaN(opts.Accuracy) {
		return nil, fmt.Errorf("Minimize: invalid accuracy %v", opts.Accuracy)
	}

	var res *Result
	var err error
	switch opts.Method {
	case LevenbergMarquardt:
		res, err = levenbergMarquardt(f, m, x0, opts)
	case Simplex, BFGS:
		res, err = gonumMinimize(f, m, x0, opts)
	default:
		return nil, fmt.Errorf("Minimize: unknown method %v", opts.Method)
	}
	if err != nil {
		return nil, err
	}
	res.Converged = res.Status == StatusConverged
	if res.Converged && res.Cost > opts.Accuracy {
		// Optimizers may report success on their own criteria.
		res.Converged = false
		res.Status = StatusStationary
	}
	return res, nil
}

// counter wraps a Residuals with an evaluation count and a cost function.
type counter struct {
	f     Residuals
	r     []float64
	evals int
	err   error
}

func newCounter(f Residuals, m int) *counter {
	return &counter{f: f, r: make([]float64, m)}
}

func (c *counter) residuals(dst, x []float64) error {
	c.evals++
	return c.f(dst, x)
}

// cost returns the sum of squares at x, or +Inf when evaluation fails or
// produces non-finite residuals. The first failure is kept in c.err.
func (c *counter) cost(x []float64) float64 {
	if err := c.residuals(c.r, x); err != nil {
		if c.err == nil {
			c.err = err
		}
		return math.Inf(1)
	}
	s := floats.Dot(c.r, c.r)
	if math.IsNaN(s) {
		return math.Inf(1)
	}
	return s
}

// thresholdConverger stops as soon as the cost reaches the accuracy and
// otherwise defers to gonum's FunctionConverge.
type thresholdConverger struct {
	accuracy float64
	inner    optimize.FunctionConverge
}

func (t *thresholdConverger) Init(dim int) {
	t.inner.Init(dim)
}

func (t *thresholdConverger) Converged(loc *optimize.Location) optimize.Status {
	if loc.F <= t.accuracy {
		return optimize.FunctionThreshold
	}
	return t.inner.Converged(loc)
}

func gonumMinimize(f Residuals, m int, x0 []float64, opts Options) (*Result, error) {
	c := newCounter(f, m)
	if start := c.cost(x0); math.IsInf(start, 1) {
		if c.err != nil {
			return nil, fmt.Errorf("Minimize: residuals at starting point: %w", c.err)
		}
		return nil, errors.New("Minimize: non-finite cost at starting point")
	}

	problem := optimize.Problem{Func: c.cost}
	var method optimize.Method
	switch opts.Method {
	case Simplex:
		method = &optimize.NelderMead{}
	case BFGS:
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, c.cost, x, &fd.Settings{Formula: fd.Central})
		}
		method = &optimize.BFGS{}
	}

	maxEvals := opts.MaxEvaluations
	if maxEvals <= 0 {
		maxEvals = 50 * opts.MaxIterations * (len(x0) + 1)
	}
	settings := &optimize.Settings{
		MajorIterations: opts.MaxIterations,
		FuncEvaluations: maxEvals,
		Converger: &thresholdConverger{
			accuracy: opts.Accuracy,
			inner: optimize.FunctionConverge{
				Absolute:   1e-14,
				Relative:   1e-12,
				Iterations: 50,
			},
		},
	}

	out, err := optimize.Minimize(problem, x0, settings, method)
	if out == nil {
		return nil, fmt.Errorf("Minimize: %v: %w", opts.Method, err)
	}

	res := &Result{
		X:           append([]float64(nil), out.X...),
		Cost:        out.F,
		Iterations:  out.Stats.MajorIterations,
		Evaluations: c.evals,
	}
	switch {
	case out.F <= opts.Accuracy:
		res.Status = StatusConverged
	case out.Status == optimize.IterationLimit || out.Status == optimize.FunctionEvaluationLimit:
		res.Status = StatusMaxIterations
	default:
		res.Status = StatusStationary
	}
	if err != nil {
		res.Reason = err.Error()
	} else {
		res.Reason = out.Status.String()
	}
	return res, nil
}
