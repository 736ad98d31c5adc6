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

// DepositTerms describes a money-market deposit.
type DepositTerms struct {
	TenorMonths    int
	SettlementDays int
	DayCount       string
	Calendar       calendar.CalendarID
	Convention     calendar.Convention
}

// Deposit is quoted on a simple rate as a decimal.
type Deposit struct {
	rate  *quote.Handle
	terms DepositTerms
}

// NewDeposit validates the deposit terms. DayCount "" means ACT/360.
func NewDeposit(rate *quote.Handle, terms DepositTerms) (*Deposit, error) {
	if _, err := checkHandle(rate); err != nil {
		return nil, fmt.Errorf("NewDeposit: %w", err)
	}
	if terms.TenorMonths <= 0 {
		return nil, fmt.Errorf("NewDeposit: tenor %d months: %w", terms.TenorMonths, ErrInvalidHelper)
	}
	if terms.SettlementDays < 0 {
		return nil, fmt.Errorf("NewDeposit: negative settlement days: %w", ErrInvalidHelper)
	}
	if terms.DayCount == "" {
		terms.DayCount = utils.Act360
	}
	if terms.Convention == "" {
		terms.Convention = calendar.ModifiedFollowing
	}
	return &Deposit{rate: rate, terms: terms}, nil
}

func (h *Deposit) Quote() *quote.Handle { return h.rate }

func (h *Deposit) dates(ref time.Time) (time.Time, time.Time) {
	start := calendar.AddBusinessDays(h.terms.Calendar, ref, h.terms.SettlementDays)
	end := calendar.Advance(h.terms.Calendar, start, h.terms.TenorMonths, h.terms.Convention)
	return start, end
}

func (h *Deposit) PillarDate(ref time.Time) time.Time {
	_, end := h.dates(ref)
	return end
}

func (h *Deposit) LatestRelevantDate(ref time.Time) time.Time {
	return h.PillarDate(ref)
}

// ImpliedQuote is (D(start)/D(end) - 1)/α.
func (h *Deposit) ImpliedQuote(c curve.Discounter) (float64, error) {
	start, end := h.dates(c.ReferenceDate())
	ds, err := c.DiscountAt(start)
	if err != nil {
		return 0, err
	}
	de, err := c.DiscountAt(end)
	if err != nil {
		return 0, err
	}
	alpha := utils.YearFraction(start, end, h.terms.DayCount)
	return (ds/de - 1) / alpha, nil
}

// QuotedYield is the continuously compounded equivalent of the deposit rate.
func (h *Deposit) QuotedYield(ref time.Time, dayCount string) (float64, float64, error) {
	r, err := h.rate.Value()
	if err != nil {
		return 0, 0, err
	}
	start, end := h.dates(ref)
	alpha := utils.YearFraction(start, end, h.terms.DayCount)
	t := utils.YearFraction(ref, end, dayCount)
	if t <= 0 {
		return 0, 0, fmt.Errorf("deposit %q ends at reference date", h.rate.Name())
	}
	return t, math.Log1p(r*alpha) / t, nil
}
