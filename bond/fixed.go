package bond

import (
	"fmt"
	"time"

	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/utils"
)

// Terms describes a plain fixed-rate bullet bond.
type Terms struct {
	Issue    time.Time
	Maturity time.Time
	// Coupon is the annual rate as a decimal (0.025 for 2.5%).
	Coupon float64
	// FrequencyMonths is the coupon period length; 12 is annual.
	FrequencyMonths int
	DayCount        string
	Calendar        calendar.CalendarID
	// PaymentConvention adjusts payment dates; accrual dates stay unadjusted.
	PaymentConvention calendar.Convention
	// Face is the notional the coupons accrue on; zero means 100.
	Face float64
	// Redemption is paid with the last coupon, as a percentage of Face; zero means 100.
	Redemption float64
}

// FixedRateBond holds the generated schedule of a fixed-rate bond.
type FixedRateBond struct {
	terms     Terms
	cashflows []Cashflow
}

// NewFixedRateBond validates terms and builds the schedule by rolling
// backward from maturity, leaving any short stub at the front.
func NewFixedRateBond(terms Terms) (*FixedRateBond, error) {
	if terms.Issue.IsZero() || terms.Maturity.IsZero() {
		return nil, fmt.Errorf("NewFixedRateBond: issue and maturity are required: %w", ErrInvalidBond)
	}
	if !terms.Maturity.After(terms.Issue) {
		return nil, fmt.Errorf("NewFixedRateBond: maturity %s not after issue %s: %w",
			terms.Maturity.Format(utils.DateLayout), terms.Issue.Format(utils.DateLayout), ErrInvalidBond)
	}
	if terms.FrequencyMonths <= 0 || terms.FrequencyMonths > 12 {
		return nil, fmt.Errorf("NewFixedRateBond: frequency %d months: %w", terms.FrequencyMonths, ErrInvalidBond)
	}
	if terms.Coupon < 0 {
		return nil, fmt.Errorf("NewFixedRateBond: negative coupon %v: %w", terms.Coupon, ErrInvalidBond)
	}
	if terms.Face == 0 {
		terms.Face = 100
	}
	if terms.Redemption == 0 {
		terms.Redemption = 100
	}
	if terms.DayCount == "" {
		terms.DayCount = utils.Act365F
	}
	if terms.PaymentConvention == "" {
		terms.PaymentConvention = calendar.Unadjusted
	}

	b := &FixedRateBond{terms: terms}
	b.cashflows = b.generateCashflows()
	return b, nil
}

func (b *FixedRateBond) generateCashflows() []Cashflow {
	t := b.terms

	// Unadjusted dates rolled from maturity; each date is computed from the
	// maturity directly so month-end clamping does not drift.
	dates := []time.Time{t.Maturity}
	for k := 1; ; k++ {
		d := utils.AddMonth(t.Maturity, -k*t.FrequencyMonths)
		if !d.After(t.Issue) {
			break
		}
		dates = append([]time.Time{d}, dates...)
	}
	dates = append([]time.Time{t.Issue}, dates...)

	cfs := make([]Cashflow, 0, len(dates)-1)
	for i := 0; i < len(dates)-1; i++ {
		start, end := dates[i], dates[i+1]
		alpha := utils.YearFraction(start, end, t.DayCount)
		cf := Cashflow{
			Date:         calendar.AdjustWith(t.Calendar, end, t.PaymentConvention),
			AccrualStart: start,
			AccrualEnd:   end,
			Accrual:      alpha,
			Coupon:       t.Face * t.Coupon * alpha,
		}
		if i == len(dates)-2 {
			cf.Principal = t.Face * t.Redemption / 100
		}
		cfs = append(cfs, cf)
	}
	return cfs
}

// Terms returns the bond's terms with defaults filled in.
func (b *FixedRateBond) Terms() Terms {
	return b.terms
}

// Cashflows returns the full schedule.
func (b *FixedRateBond) Cashflows() []Cashflow {
	return append([]Cashflow(nil), b.cashflows...)
}

// MaturityDate is the (adjusted) date of the final payment.
func (b *FixedRateBond) MaturityDate() time.Time {
	return b.cashflows[len(b.cashflows)-1].Date
}

// CashflowsAfter returns the payments strictly after settlement.
func (b *FixedRateBond) CashflowsAfter(settlement time.Time) []Cashflow {
	var out []Cashflow
	for _, cf := range b.cashflows {
		if cf.Date.After(settlement) {
			out = append(out, cf)
		}
	}
	return out
}

// AccruedInterest is the coupon accrued from the start of the current period to settlement.
func (b *FixedRateBond) AccruedInterest(settlement time.Time) float64 {
	for _, cf := range b.cashflows {
		if !settlement.Before(cf.AccrualStart) && settlement.Before(cf.AccrualEnd) {
			return b.terms.Face * b.terms.Coupon * utils.YearFraction(cf.AccrualStart, settlement, b.terms.DayCount)
		}
	}
	return 0
}

// IsExpired reports whether every payment is on or before settlement.
func (b *FixedRateBond) IsExpired(settlement time.Time) bool {
	return !b.MaturityDate().After(settlement)
}
