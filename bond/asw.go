package bond

import (
	"fmt"
	"time"

	"github.com/meenmo/termfit/utils"
)

// Discounter is the curve view spreads are measured against.
type Discounter interface {
	DiscountAt(d time.Time) (float64, error)
}

type ASWInput struct {
	SettlementDate time.Time
	DirtyPrice     float64
	Bond           *FixedRateBond

	// FloatFrequencyMonths and FloatDayCount describe the floating leg the
	// spread is paid on. Zero values mean the bond's own frequency and ACT/360.
	FloatFrequencyMonths int
	FloatDayCount        string

	Curve Discounter
}

type ASWResult struct {
	SpreadBP float64
	PVBondRF float64
	PV01     float64
}

// ComputeASWSpread computes the par asset swap spread (in bp) of a bond
// against a curve, with every value forwarded to settlement:
//
//	ASW = (PV_bond^{curve} - P_dirty) / PV01
//
// where PV01 is the value of receiving 1bp on the floating leg from
// settlement to maturity. A bond priced exactly on the curve has zero spread.
func ComputeASWSpread(in ASWInput) (ASWResult, error) {
	if in.SettlementDate.IsZero() {
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: SettlementDate is required")
	}
	if in.DirtyPrice <= 0 {
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: DirtyPrice must be positive")
	}
	if in.Curve == nil {
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: Curve is required")
	}
	if in.Bond == nil {
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: Bond is required")
	}
	cfs := in.Bond.CashflowsAfter(in.SettlementDate)
	if len(cfs) == 0 {
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: bond expired at %s: %w", in.SettlementDate.Format(utils.DateLayout), ErrInvalidBond)
	}
	freq := in.FloatFrequencyMonths
	if freq == 0 {
		freq = in.Bond.terms.FrequencyMonths
	}
	if freq < 0 {
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: float frequency %d months", freq)
	}
	dayCount := in.FloatDayCount
	if dayCount == "" {
		dayCount = utils.Act360
	}

	dSettle, err := in.Curve.DiscountAt(in.SettlementDate)
	if err != nil {
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: %w", err)
	}

	pvBondRF := 0.0
	for _, cf := range cfs {
		d, err := in.Curve.DiscountAt(cf.Date)
		if err != nil {
			return ASWResult{}, fmt.Errorf("ComputeASWSpread: %w", err)
		}
		pvBondRF += cf.Amount() * d
	}
	pvBondRF /= dSettle

	maturity := in.Bond.terms.Maturity
	dates := []time.Time{maturity}
	for k := 1; ; k++ {
		d := utils.AddMonth(maturity, -k*freq)
		if !d.After(in.SettlementDate) {
			break
		}
		dates = append([]time.Time{d}, dates...)
	}
	dates = append([]time.Time{in.SettlementDate}, dates...)

	pv01 := 0.0
	for i := 1; i < len(dates); i++ {
		d, err := in.Curve.DiscountAt(dates[i])
		if err != nil {
			return ASWResult{}, fmt.Errorf("ComputeASWSpread: %w", err)
		}
		accrual := utils.YearFraction(dates[i-1], dates[i], dayCount)
		pv01 += in.Bond.terms.Face * accrual * 1e-4 * d
	}
	pv01 /= dSettle
	if pv01 == 0 {
		return ASWResult{}, fmt.Errorf("ComputeASWSpread: PV01 is zero")
	}

	spreadBP := (pvBondRF - in.DirtyPrice) / pv01
	return ASWResult{
		SpreadBP: spreadBP,
		PVBondRF: pvBondRF,
		PV01:     pv01,
	}, nil
}
