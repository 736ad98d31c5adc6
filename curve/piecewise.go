package curve

import (
	"fmt"
	"time"

	"github.com/meenmo/termfit/lazy"
	"github.com/meenmo/termfit/logging"
	"github.com/meenmo/termfit/metrics"
	"github.com/meenmo/termfit/utils"
)

// PiecewiseCurve is a discount curve bootstrapped from helpers. It recomputes
// lazily when a helper quote, a relinked handle or its evaluation date changes.
type PiecewiseCurve struct {
	anchor  Anchor
	helpers []Helper
	opts    BootstrapOptions
	cache   *lazy.Cache[*nodeCurve]
}

// NewPiecewiseCurve validates the helpers and bootstraps the curve once. Any
// failure is returned; no partially built curve is exposed.
func NewPiecewiseCurve(anchor Anchor, helpers []Helper, opts BootstrapOptions) (*PiecewiseCurve, error) {
	if err := anchor.validate(); err != nil {
		return nil, fmt.Errorf("NewPiecewiseCurve: %w", err)
	}
	if len(helpers) == 0 {
		return nil, fmt.Errorf("NewPiecewiseCurve: %w", ErrNoHelpers)
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("NewPiecewiseCurve: %w", err)
	}

	deps := make([]lazy.Dependency, 0, len(helpers)+1)
	if d := anchor.Dependency(); d != nil {
		deps = append(deps, d)
	}
	for i, h := range helpers {
		if h == nil || h.Quote() == nil {
			return nil, fmt.Errorf("NewPiecewiseCurve: helper %d has no quote handle: %w", i, ErrInvalidOptions)
		}
		deps = append(deps, h.Quote())
	}

	c := &PiecewiseCurve{
		anchor:  anchor,
		helpers: append([]Helper(nil), helpers...),
		opts:    opts,
		cache:   lazy.New[*nodeCurve](deps...),
	}
	if _, err := c.snapshot(); err != nil {
		return nil, fmt.Errorf("NewPiecewiseCurve: %w", err)
	}
	return c, nil
}

func (c *PiecewiseCurve) snapshot() (*nodeCurve, error) {
	return c.cache.Get(func(*nodeCurve, bool) (*nodeCurve, error) {
		start := time.Now()
		ref := c.anchor.Date()
		nc, err := bootstrap(ref, c.helpers, c.opts)
		if err != nil {
			metrics.Default.BootstrapFailures.Inc()
			logging.Get().Warn("bootstrap failed", "reference_date", ref.Format(utils.DateLayout), "error", err)
			return nil, err
		}
		elapsed := time.Since(start)
		metrics.Default.Recalculations.WithLabelValues("bootstrap").Inc()
		metrics.Default.RecalcDuration.WithLabelValues("bootstrap").Observe(elapsed.Seconds())
		logging.Get().Debug("curve bootstrapped",
			"reference_date", ref.Format(utils.DateLayout),
			"pillars", len(c.helpers),
			"elapsed", elapsed,
		)
		return nc, nil
	})
}

// Calculate brings the curve up to date.
func (c *PiecewiseCurve) Calculate() error {
	_, err := c.snapshot()
	return err
}

// ReferenceDate is the date at which the discount factor is 1.
func (c *PiecewiseCurve) ReferenceDate() time.Time { return c.anchor.Date() }

// DayCount is the convention measuring curve time.
func (c *PiecewiseCurve) DayCount() string { return c.opts.DayCount }

// Version changes whenever any input of the curve changes.
func (c *PiecewiseCurve) Version() uint64 { return c.cache.Version() }

// State reports whether the cached nodes are current.
func (c *PiecewiseCurve) State() lazy.State { return c.cache.State() }

// Helpers returns the instruments the curve is built from.
func (c *PiecewiseCurve) Helpers() []Helper { return append([]Helper(nil), c.helpers...) }

// MaxDate is the last pillar date.
func (c *PiecewiseCurve) MaxDate() (time.Time, error) {
	nc, err := c.snapshot()
	if err != nil {
		return time.Time{}, err
	}
	return nc.dates[len(nc.dates)-1], nil
}

// Nodes returns the solved nodes, the reference date first.
func (c *PiecewiseCurve) Nodes() ([]Node, error) {
	nc, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return nc.nodes(), nil
}

// Discount returns the discount factor t years after the reference date.
func (c *PiecewiseCurve) Discount(t float64) (float64, error) {
	nc, err := c.snapshot()
	if err != nil {
		return 0, err
	}
	return nc.discount(t)
}

// DiscountAt returns the discount factor at date d.
func (c *PiecewiseCurve) DiscountAt(d time.Time) (float64, error) {
	nc, err := c.snapshot()
	if err != nil {
		return 0, err
	}
	return nc.DiscountAt(d)
}

// ZeroRate is the continuously compounded zero rate to t.
func (c *PiecewiseCurve) ZeroRate(t float64) (float64, error) {
	nc, err := c.snapshot()
	if err != nil {
		return 0, err
	}
	return nc.zeroRate(t)
}
