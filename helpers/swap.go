package helpers

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/curve"
	"github.com/meenmo/termfit/quote"
	"github.com/meenmo/termfit/utils"
)

// SwapTerms describes the fixed leg of a par swap discounted on the curve
// being built.
type SwapTerms struct {
	TenorMonths          int
	FixedFrequencyMonths int
	SettlementDays       int
	DayCount             string
	Calendar             calendar.CalendarID
}

// Swap is quoted on its par rate as a decimal.
type Swap struct {
	rate  *quote.Handle
	terms SwapTerms
}

// NewSwap validates the swap terms. DayCount "" means 30/360.
func NewSwap(rate *quote.Handle, terms SwapTerms) (*Swap, error) {
	if _, err := checkHandle(rate); err != nil {
		return nil, fmt.Errorf("NewSwap: %w", err)
	}
	if terms.TenorMonths <= 0 {
		return nil, fmt.Errorf("NewSwap: tenor %d months: %w", terms.TenorMonths, ErrInvalidHelper)
	}
	if terms.FixedFrequencyMonths <= 0 || terms.FixedFrequencyMonths > terms.TenorMonths {
		return nil, fmt.Errorf("NewSwap: fixed frequency %d months: %w", terms.FixedFrequencyMonths, ErrInvalidHelper)
	}
	if terms.SettlementDays < 0 {
		return nil, fmt.Errorf("NewSwap: negative settlement days: %w", ErrInvalidHelper)
	}
	if terms.DayCount == "" {
		terms.DayCount = utils.Thirty
	}
	return &Swap{rate: rate, terms: terms}, nil
}

func (h *Swap) Quote() *quote.Handle { return h.rate }

// schedule returns the adjusted fixed-leg dates, start first. Dates are
// rolled backward from the unadjusted maturity so coupons align with it.
func (h *Swap) schedule(ref time.Time) []time.Time {
	cal := h.terms.Calendar
	start := calendar.AddBusinessDays(cal, ref, h.terms.SettlementDays)
	maturity := utils.AddMonth(start, h.terms.TenorMonths)

	unadjusted := []time.Time{maturity}
	for k := 1; ; k++ {
		d := utils.AddMonth(maturity, -k*h.terms.FixedFrequencyMonths)
		if !d.After(start) {
			break
		}
		unadjusted = append([]time.Time{d}, unadjusted...)
	}
	dates := make([]time.Time, 0, len(unadjusted)+1)
	dates = append(dates, start)
	for _, d := range unadjusted {
		dates = append(dates, calendar.Adjust(cal, d))
	}
	return dates
}

func (h *Swap) PillarDate(ref time.Time) time.Time {
	s := h.schedule(ref)
	return s[len(s)-1]
}

func (h *Swap) LatestRelevantDate(ref time.Time) time.Time {
	return h.PillarDate(ref)
}

// ImpliedQuote is the par rate (D(start) - D(end)) / Σ α_i D(t_i).
func (h *Swap) ImpliedQuote(c curve.Discounter) (float64, error) {
	return curve.ParRate(c, h.schedule(c.ReferenceDate()), h.terms.DayCount)
}

// QuotedYield treats the par rate as an annually compounded yield to maturity.
func (h *Swap) QuotedYield(ref time.Time, dayCount string) (float64, float64, error) {
	r, err := h.rate.Value()
	if err != nil {
		return 0, 0, err
	}
	return utils.YearFraction(ref, h.PillarDate(ref), dayCount), math.Log1p(r), nil
}
