package curve

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/termfit/utils"
)

// ParRate is the fixed rate that prices a bullet at par on the schedule
// dates[0] (start) to dates[len-1] (maturity), with coupons paid on every
// later date and accrued with dayCount:
//
//	(D(start) - D(maturity)) / Σ α_i D(t_i)
func ParRate(c Discounter, dates []time.Time, dayCount string) (float64, error) {
	if len(dates) < 2 {
		return 0, fmt.Errorf("ParRate: need at least two dates, got %d", len(dates))
	}
	if i := utils.IsStrictlyIncreasing(dates); i >= 0 {
		return 0, fmt.Errorf("ParRate: date %d (%s): %w", i, dates[i].Format(utils.DateLayout), ErrUnsortedPillars)
	}
	first, err := c.DiscountAt(dates[0])
	if err != nil {
		return 0, fmt.Errorf("ParRate: %w", err)
	}
	var annuity, last float64
	for i := 1; i < len(dates); i++ {
		d, err := c.DiscountAt(dates[i])
		if err != nil {
			return 0, fmt.Errorf("ParRate: %w", err)
		}
		annuity += utils.YearFraction(dates[i-1], dates[i], dayCount) * d
		last = d
	}
	if annuity == 0 {
		return 0, fmt.Errorf("ParRate: zero annuity")
	}
	return (first - last) / annuity, nil
}

// ForwardRate is the continuously compounded forward rate between t1 and t2.
func ForwardRate(c YieldCurve, t1, t2 float64) (float64, error) {
	if !(t2 > t1) {
		return 0, fmt.Errorf("ForwardRate: t2=%v not after t1=%v", t2, t1)
	}
	d1, err := c.Discount(t1)
	if err != nil {
		return 0, fmt.Errorf("ForwardRate: %w", err)
	}
	d2, err := c.Discount(t2)
	if err != nil {
		return 0, fmt.Errorf("ForwardRate: %w", err)
	}
	return math.Log(d1/d2) / (t2 - t1), nil
}

// Calculator is a curve that can be brought up to date explicitly.
type Calculator interface {
	Calculate() error
}

// Refresh recomputes independent curves concurrently and returns the first
// error. Curves sharing a dependency chain still serialize on their own locks.
func Refresh(ctx context.Context, curves ...Calculator) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range curves {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return c.Calculate()
		})
	}
	return g.Wait()
}
