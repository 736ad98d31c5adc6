package bond

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/termfit/solver"
	"github.com/meenmo/termfit/utils"
)

const (
	yieldAccuracy = 1e-12
	yieldMaxIter  = 100
	yieldFloor    = -0.5
	yieldCeiling  = 2.0
)

// Yield solves for the yield, compounded at the coupon frequency, at which
// the bond's dirty price equals cleanPrice plus accrued interest at settlement.
func Yield(b *FixedRateBond, cleanPrice float64, settlement time.Time) (float64, error) {
	cfs := b.CashflowsAfter(settlement)
	if len(cfs) == 0 {
		return 0, fmt.Errorf("Yield: bond expired at %s: %w", settlement.Format(utils.DateLayout), ErrInvalidBond)
	}
	target := cleanPrice + b.AccruedInterest(settlement)
	freq := 12 / float64(b.terms.FrequencyMonths)

	f := func(y float64) (float64, float64, error) {
		p, dp := dirtyPriceAndDeriv(y, freq, settlement, b.terms.DayCount, cfs)
		return p - target, dp, nil
	}
	y, err := solver.NewtonSafe(f, yieldFloor, yieldCeiling, 0.03, yieldAccuracy*b.terms.Face, yieldMaxIter)
	if err != nil {
		return 0, fmt.Errorf("Yield: %w", err)
	}
	return y, nil
}

// ModifiedDuration is -(dP/dy)/P at the given yield.
func ModifiedDuration(b *FixedRateBond, y float64, settlement time.Time) (float64, error) {
	cfs := b.CashflowsAfter(settlement)
	if len(cfs) == 0 {
		return 0, fmt.Errorf("ModifiedDuration: bond expired at %s: %w", settlement.Format(utils.DateLayout), ErrInvalidBond)
	}
	freq := 12 / float64(b.terms.FrequencyMonths)
	p, dp := dirtyPriceAndDeriv(y, freq, settlement, b.terms.DayCount, cfs)
	if p <= 0 {
		return 0, fmt.Errorf("ModifiedDuration: non-positive price %v at yield %v", p, y)
	}
	return -dp / p, nil
}

// dirtyPriceAndDeriv returns (price, dPrice/dy) with periodic compounding:
//
//	price = Σ CF_k (1 + y/f)^(-f t_k)
//	dP/dy = Σ -t_k CF_k (1 + y/f)^(-f t_k - 1)
func dirtyPriceAndDeriv(y, freq float64, settlement time.Time, dayCount string, cfs []Cashflow) (float64, float64) {
	base := 1 + y/freq
	var price, deriv float64
	for _, cf := range cfs {
		t := utils.YearFraction(settlement, cf.Date, dayCount)
		amt := cf.Amount()
		disc := math.Pow(base, -freq*t)
		price += amt * disc
		deriv += -t * amt * disc / base
	}
	return price, deriv
}
