package helpers

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/termfit/bond"
	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/curve"
	"github.com/meenmo/termfit/quote"
	"github.com/meenmo/termfit/utils"
)

// FixedRateBond is a bond quoted on its clean price per 100 face.
type FixedRateBond struct {
	price          *quote.Handle
	settlementDays int
	bond           *bond.FixedRateBond
}

// NewFixedRateBond builds the bond schedule from terms. Settlement is
// settlementDays business days after the curve's reference date.
func NewFixedRateBond(price *quote.Handle, settlementDays int, terms bond.Terms) (*FixedRateBond, error) {
	v, err := checkHandle(price)
	if err != nil {
		return nil, fmt.Errorf("NewFixedRateBond: %w", err)
	}
	if v <= 0 {
		return nil, fmt.Errorf("NewFixedRateBond: non-positive price %v for %q: %w", v, price.Name(), quote.ErrInvalidQuote)
	}
	if settlementDays < 0 {
		return nil, fmt.Errorf("NewFixedRateBond: negative settlement days: %w", ErrInvalidHelper)
	}
	b, err := bond.NewFixedRateBond(terms)
	if err != nil {
		return nil, fmt.Errorf("NewFixedRateBond: %w", err)
	}
	return &FixedRateBond{price: price, settlementDays: settlementDays, bond: b}, nil
}

func (h *FixedRateBond) Quote() *quote.Handle { return h.price }

// Bond returns the underlying schedule.
func (h *FixedRateBond) Bond() *bond.FixedRateBond { return h.bond }

// SettlementDate is the settlement date for a curve referenced at ref.
func (h *FixedRateBond) SettlementDate(ref time.Time) time.Time {
	return calendar.AddBusinessDays(h.bond.Terms().Calendar, ref, h.settlementDays)
}

func (h *FixedRateBond) PillarDate(time.Time) time.Time { return h.bond.MaturityDate() }

func (h *FixedRateBond) LatestRelevantDate(time.Time) time.Time { return h.bond.MaturityDate() }

// ImpliedQuote is the clean price implied by c:
// Σ amount·D(cf)/D(settlement) over payments after settlement, less accrued.
func (h *FixedRateBond) ImpliedQuote(c curve.Discounter) (float64, error) {
	settle := h.SettlementDate(c.ReferenceDate())
	cfs := h.bond.CashflowsAfter(settle)
	if len(cfs) == 0 {
		return 0, fmt.Errorf("bond %q expired at %s: %w", h.price.Name(), settle.Format(utils.DateLayout), bond.ErrInvalidBond)
	}
	dSettle, err := c.DiscountAt(settle)
	if err != nil {
		return 0, err
	}
	var dirty float64
	for _, cf := range cfs {
		d, err := c.DiscountAt(cf.Date)
		if err != nil {
			return 0, err
		}
		dirty += cf.Amount() * d
	}
	return dirty/dSettle - h.bond.AccruedInterest(settle), nil
}

// Yield is the bond's yield at the quoted price, compounded at the coupon frequency.
func (h *FixedRateBond) Yield(ref time.Time) (float64, error) {
	price, err := h.price.Value()
	if err != nil {
		return 0, err
	}
	return bond.Yield(h.bond, price, h.SettlementDate(ref))
}

// NaturalWeight is the inverse modified duration at the quoted price.
func (h *FixedRateBond) NaturalWeight(ref time.Time) (float64, error) {
	y, err := h.Yield(ref)
	if err != nil {
		return 0, err
	}
	dur, err := bond.ModifiedDuration(h.bond, y, h.SettlementDate(ref))
	if err != nil {
		return 0, err
	}
	if dur <= 0 {
		return 0, fmt.Errorf("bond %q: non-positive duration %v", h.price.Name(), dur)
	}
	return 1 / dur, nil
}

// QuotedYield converts the quoted yield to continuous compounding at the
// maturity's curve time.
func (h *FixedRateBond) QuotedYield(ref time.Time, dayCount string) (float64, float64, error) {
	y, err := h.Yield(ref)
	if err != nil {
		return 0, 0, err
	}
	freq := 12 / float64(h.bond.Terms().FrequencyMonths)
	t := utils.YearFraction(ref, h.bond.MaturityDate(), dayCount)
	return t, freq * math.Log1p(y/freq), nil
}

// AssetSwapSpread is the bond's par asset swap spread over c at the quoted
// price, paid annually on ACT/360. Fitted curves leave a residual spread per
// bond; a curve that reprices the bond exactly gives zero.
func (h *FixedRateBond) AssetSwapSpread(c curve.Discounter) (bond.ASWResult, error) {
	price, err := h.price.Value()
	if err != nil {
		return bond.ASWResult{}, err
	}
	settle := h.SettlementDate(c.ReferenceDate())
	return bond.ComputeASWSpread(bond.ASWInput{
		SettlementDate:       settle,
		DirtyPrice:           price + h.bond.AccruedInterest(settle),
		Bond:                 h.bond,
		FloatFrequencyMonths: 12,
		Curve:                c,
	})
}
