// Package marketdata reads market snapshots and turns them into quotes and
// curve helpers.
//
// Rates and prices are carried as decimal strings in JSON ("0.0425", "99.875")
// and converted to float64 only when a quote is created.
package marketdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/termfit/bond"
	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/curve"
	"github.com/meenmo/termfit/helpers"
	"github.com/meenmo/termfit/quote"
	"github.com/meenmo/termfit/utils"
)

// ErrInvalidSnapshot is returned for snapshots that cannot be turned into helpers.
var ErrInvalidSnapshot = errors.New("invalid market snapshot")

// Snapshot is the JSON input schema.
type Snapshot struct {
	CurveDate      string          `json:"curve_date"`
	SettlementDays int             `json:"settlement_days,omitempty"`
	Calendar       string          `json:"calendar,omitempty"`
	Holidays       []string        `json:"holidays,omitempty"`
	Bonds          []BondQuote     `json:"bonds,omitempty"`
	Deposits       []DepositQuote  `json:"deposits,omitempty"`
	Swaps          []SwapQuote     `json:"swaps,omitempty"`
	Reference      *ReferenceCurve `json:"reference,omitempty"`
}

// BondQuote is a fixed-rate bond quoted on clean price.
type BondQuote struct {
	Name            string          `json:"name"`
	Issue           string          `json:"issue"`
	Maturity        string          `json:"maturity"`
	Coupon          decimal.Decimal `json:"coupon"`
	FrequencyMonths int             `json:"frequency_months,omitempty"`
	DayCount        string          `json:"day_count,omitempty"`
	Convention      string          `json:"convention,omitempty"`
	SettlementDays  int             `json:"settlement_days,omitempty"`
	Price           decimal.Decimal `json:"price"`
}

// DepositQuote is a deposit quoted on a simple rate.
type DepositQuote struct {
	Name     string          `json:"name"`
	Tenor    string          `json:"tenor"`
	DayCount string          `json:"day_count,omitempty"`
	Rate     decimal.Decimal `json:"rate"`
}

// SwapQuote is a par swap quoted on its fixed rate.
type SwapQuote struct {
	Name            string          `json:"name"`
	Tenor           string          `json:"tenor"`
	FrequencyMonths int             `json:"frequency_months,omitempty"`
	DayCount        string          `json:"day_count,omitempty"`
	Rate            decimal.Decimal `json:"rate"`
}

// ReferenceCurve is a flat curve that spread fits are measured against.
type ReferenceCurve struct {
	Rate     decimal.Decimal `json:"rate"`
	DayCount string          `json:"day_count,omitempty"`
}

// Read decodes one snapshot.
func Read(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("marketdata.Read: %w", err)
	}
	return &s, nil
}

// Market holds the quotes and helpers built from a snapshot. Quotes are keyed
// by instrument name so callers can move them after the curves are built.
type Market struct {
	CurveDate time.Time
	Calendar  calendar.CalendarID
	Quotes    map[string]*quote.Quote

	// Bonds are sorted by maturity.
	Bonds []curve.Helper
	// Short are deposits and swaps, sorted by pillar.
	Short []curve.Helper

	ReferenceRate *quote.Handle
	ReferenceDC   string
}

// Build creates one quote per instrument and wraps it in a helper.
func (s *Snapshot) Build() (*Market, error) {
	curveDate, err := utils.ParseDate(s.CurveDate)
	if err != nil {
		return nil, fmt.Errorf("Build: curve_date: %w", err)
	}
	cal := calendar.Null
	if s.Calendar != "" {
		cal = calendar.CalendarID(strings.ToUpper(s.Calendar))
	}
	if len(s.Holidays) > 0 {
		if cal == calendar.Null {
			return nil, fmt.Errorf("Build: holidays on the null calendar: %w", ErrInvalidSnapshot)
		}
		days := make([]time.Time, 0, len(s.Holidays))
		for _, h := range s.Holidays {
			d, err := utils.ParseDate(h)
			if err != nil {
				return nil, fmt.Errorf("Build: holiday: %w", err)
			}
			days = append(days, d)
		}
		calendar.RegisterHolidays(cal, days...)
	}
	m := &Market{CurveDate: curveDate, Calendar: cal, Quotes: make(map[string]*quote.Quote)}

	handle := func(name string, v decimal.Decimal) (*quote.Handle, error) {
		if name == "" {
			return nil, fmt.Errorf("instrument without name: %w", ErrInvalidSnapshot)
		}
		if _, dup := m.Quotes[name]; dup {
			return nil, fmt.Errorf("duplicate instrument %q: %w", name, ErrInvalidSnapshot)
		}
		q := quote.New(name, v.InexactFloat64())
		m.Quotes[name] = q
		return quote.NewHandle(q), nil
	}

	for _, b := range s.Bonds {
		h, err := b.helper(cal, handle)
		if err != nil {
			return nil, fmt.Errorf("Build: bond %q: %w", b.Name, err)
		}
		m.Bonds = append(m.Bonds, h)
	}
	for _, d := range s.Deposits {
		months, err := utils.ParseTenorMonths(d.Tenor)
		if err != nil {
			return nil, fmt.Errorf("Build: deposit %q: %w", d.Name, err)
		}
		rate, err := handle(d.Name, d.Rate)
		if err != nil {
			return nil, fmt.Errorf("Build: deposit %q: %w", d.Name, err)
		}
		h, err := helpers.NewDeposit(rate, helpers.DepositTerms{
			TenorMonths:    months,
			SettlementDays: s.SettlementDays,
			DayCount:       d.DayCount,
			Calendar:       cal,
		})
		if err != nil {
			return nil, fmt.Errorf("Build: %w", err)
		}
		m.Short = append(m.Short, h)
	}
	for _, sw := range s.Swaps {
		months, err := utils.ParseTenorMonths(sw.Tenor)
		if err != nil {
			return nil, fmt.Errorf("Build: swap %q: %w", sw.Name, err)
		}
		rate, err := handle(sw.Name, sw.Rate)
		if err != nil {
			return nil, fmt.Errorf("Build: swap %q: %w", sw.Name, err)
		}
		freq := sw.FrequencyMonths
		if freq == 0 {
			freq = 12
		}
		h, err := helpers.NewSwap(rate, helpers.SwapTerms{
			TenorMonths:          months,
			FixedFrequencyMonths: freq,
			SettlementDays:       s.SettlementDays,
			DayCount:             sw.DayCount,
			Calendar:             cal,
		})
		if err != nil {
			return nil, fmt.Errorf("Build: %w", err)
		}
		m.Short = append(m.Short, h)
	}
	if s.Reference != nil {
		m.ReferenceRate = quote.NewHandle(quote.New("reference", s.Reference.Rate.InexactFloat64()))
		m.ReferenceDC = s.Reference.DayCount
	}

	sortByPillar(m.Bonds, curveDate)
	sortByPillar(m.Short, curveDate)
	return m, nil
}

func (b BondQuote) helper(cal calendar.CalendarID, handle func(string, decimal.Decimal) (*quote.Handle, error)) (curve.Helper, error) {
	issue, err := utils.ParseDate(b.Issue)
	if err != nil {
		return nil, err
	}
	maturity, err := utils.ParseDate(b.Maturity)
	if err != nil {
		return nil, err
	}
	if b.DayCount != "" && !utils.KnownDayCount(b.DayCount) {
		return nil, fmt.Errorf("day count %q: %w", b.DayCount, ErrInvalidSnapshot)
	}
	freq := b.FrequencyMonths
	if freq == 0 {
		freq = 12
	}
	price, err := handle(b.Name, b.Price)
	if err != nil {
		return nil, err
	}
	return helpers.NewFixedRateBond(price, b.SettlementDays, bond.Terms{
		Issue:             issue,
		Maturity:          maturity,
		Coupon:            b.Coupon.InexactFloat64(),
		FrequencyMonths:   freq,
		DayCount:          b.DayCount,
		Calendar:          cal,
		PaymentConvention: calendar.Convention(strings.ToUpper(b.Convention)),
	})
}

func sortByPillar(hs []curve.Helper, ref time.Time) {
	sort.SliceStable(hs, func(i, j int) bool {
		return hs[i].PillarDate(ref).Before(hs[j].PillarDate(ref))
	})
}
