package helpers_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meenmo/termfit/bond"
	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/curve"
	"github.com/meenmo/termfit/helpers"
	"github.com/meenmo/termfit/quote"
	"github.com/meenmo/termfit/utils"
)

var refDate = utils.MustParseDate("2024-03-15")

func flatCurve(t *testing.T, r float64) *curve.FlatForward {
	t.Helper()
	ff, err := curve.NewFlatForward(curve.Fixed(refDate), quote.Link("flat", r), utils.Act365F)
	if err != nil {
		t.Fatalf("NewFlatForward: %v", err)
	}
	return ff
}

func bondTerms(maturity string, coupon float64) bond.Terms {
	return bond.Terms{
		Issue:           refDate,
		Maturity:        utils.MustParseDate(maturity),
		Coupon:          coupon,
		FrequencyMonths: 12,
		DayCount:        utils.Thirty,
		Calendar:        calendar.Null,
	}
}

func TestConstructionErrors(t *testing.T) {
	t.Parallel()

	terms := bondTerms("2029-03-15", 0.04)
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"nil handle", func() error { _, err := helpers.NewDeposit(nil, helpers.DepositTerms{TenorMonths: 3}); return err }(), helpers.ErrInvalidHelper},
		{"empty handle", func() error { _, err := helpers.NewSwap(quote.NewHandle(nil), helpers.SwapTerms{TenorMonths: 24, FixedFrequencyMonths: 12}); return err }(), quote.ErrEmptyHandle},
		{"invalid quote", func() error { _, err := helpers.NewFixedRateBond(quote.Link("b", math.NaN()), 0, terms); return err }(), quote.ErrInvalidQuote},
		{"zero price", func() error { _, err := helpers.NewFixedRateBond(quote.Link("b", 0), 0, terms); return err }(), quote.ErrInvalidQuote},
		{"negative tenor", func() error { _, err := helpers.NewDeposit(quote.Link("d", 0.05), helpers.DepositTerms{TenorMonths: -3}); return err }(), helpers.ErrInvalidHelper},
		{"zero frequency", func() error { _, err := helpers.NewSwap(quote.Link("s", 0.05), helpers.SwapTerms{TenorMonths: 24}); return err }(), helpers.ErrInvalidHelper},
		{"maturity before issue", func() error {
			_, err := helpers.NewFixedRateBond(quote.Link("b", 100), 0, bondTerms("2023-03-15", 0.04))
			return err
		}(), bond.ErrInvalidBond},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, tc.err, tc.want)
		}
	}

	// Negative rates are valid quotes for rate helpers.
	if _, err := helpers.NewDeposit(quote.Link("d", -0.005), helpers.DepositTerms{TenorMonths: 3}); err != nil {
		t.Fatalf("negative deposit rate: %v", err)
	}
}

func TestDeposit_ImpliedQuote(t *testing.T) {
	t.Parallel()

	ff := flatCurve(t, 0.04)
	h, err := helpers.NewDeposit(quote.Link("dep-6m", 0.04), helpers.DepositTerms{TenorMonths: 6, Calendar: calendar.Null})
	if err != nil {
		t.Fatalf("NewDeposit: %v", err)
	}
	end := utils.MustParseDate("2024-09-15")
	if got := h.PillarDate(refDate); !got.Equal(end) {
		t.Fatalf("pillar: got %s want %s", got.Format(utils.DateLayout), end.Format(utils.DateLayout))
	}
	days := utils.Days(refDate, end)
	want := math.Expm1(0.04*days/365) / (days / 360)
	got, err := h.ImpliedQuote(ff)
	if err != nil {
		t.Fatalf("ImpliedQuote: %v", err)
	}
	if math.Abs(got-want) > 1e-14 {
		t.Fatalf("implied rate: got %v want %v", got, want)
	}

	tq, y, err := h.QuotedYield(refDate, utils.Act365F)
	if err != nil {
		t.Fatalf("QuotedYield: %v", err)
	}
	if math.Abs(tq-days/365) > 1e-15 || math.Abs(y-math.Log1p(0.04*days/360)/tq) > 1e-15 {
		t.Fatalf("quoted yield: got (%v, %v)", tq, y)
	}
}

func TestSwap_ImpliedQuote(t *testing.T) {
	t.Parallel()

	ff := flatCurve(t, 0.03)
	h, err := helpers.NewSwap(quote.Link("swp-5y", 0.03), helpers.SwapTerms{TenorMonths: 60, FixedFrequencyMonths: 12, Calendar: calendar.Null})
	if err != nil {
		t.Fatalf("NewSwap: %v", err)
	}
	var annuity, last float64
	for k := 1; k <= 5; k++ {
		d := math.Exp(-0.03 * utils.Days(refDate, utils.AddMonth(refDate, 12*k)) / 365)
		annuity += d
		last = d
	}
	want := (1 - last) / annuity
	got, err := h.ImpliedQuote(ff)
	if err != nil {
		t.Fatalf("ImpliedQuote: %v", err)
	}
	if math.Abs(got-want) > 1e-14 {
		t.Fatalf("par rate: got %v want %v", got, want)
	}
	if got := h.PillarDate(refDate); !got.Equal(utils.MustParseDate("2029-03-15")) {
		t.Fatalf("pillar: got %s", got.Format(utils.DateLayout))
	}
}

func TestFixedRateBond_ImpliedQuote(t *testing.T) {
	t.Parallel()

	ff := flatCurve(t, 0.035)
	h, err := helpers.NewFixedRateBond(quote.Link("bond-5y", 100), 2, bondTerms("2029-03-15", 0.04))
	if err != nil {
		t.Fatalf("NewFixedRateBond: %v", err)
	}
	settle := h.SettlementDate(refDate)
	if want := refDate.AddDate(0, 0, 2); !settle.Equal(want) {
		t.Fatalf("settlement: got %s want %s", settle.Format(utils.DateLayout), want.Format(utils.DateLayout))
	}

	disc := func(d time.Time) float64 { return math.Exp(-0.035 * utils.Days(refDate, d) / 365) }
	var dirty float64
	for _, cf := range h.Bond().Cashflows() {
		dirty += cf.Amount() * disc(cf.Date)
	}
	want := dirty/disc(settle) - h.Bond().AccruedInterest(settle)
	got, err := h.ImpliedQuote(ff)
	if err != nil {
		t.Fatalf("ImpliedQuote: %v", err)
	}
	if math.Abs(got-want) > 1e-10 {
		t.Fatalf("clean price: got %v want %v", got, want)
	}
	if acc := h.Bond().AccruedInterest(settle); math.Abs(acc-4*2.0/360) > 1e-12 {
		t.Fatalf("accrued: got %v want %v", acc, 4*2.0/360)
	}

	w, err := h.NaturalWeight(refDate)
	if err != nil {
		t.Fatalf("NaturalWeight: %v", err)
	}
	y, _ := h.Yield(refDate)
	dur, _ := bond.ModifiedDuration(h.Bond(), y, settle)
	if math.Abs(w-1/dur) > 1e-12 || w <= 0 {
		t.Fatalf("natural weight: got %v want %v", w, 1/dur)
	}

	asw, err := h.AssetSwapSpread(ff)
	if err != nil {
		t.Fatalf("AssetSwapSpread: %v", err)
	}
	if spread := (want - 100) / asw.PV01; math.Abs(asw.SpreadBP-spread) > 1e-8 {
		t.Fatalf("asset swap spread: got %v want %v", asw.SpreadBP, spread)
	}

	_, cy, err := h.QuotedYield(refDate, utils.Act365F)
	if err != nil || math.Abs(cy-math.Log1p(y)) > 1e-15 {
		t.Fatalf("quoted yield: got %v, %v want %v", cy, err, math.Log1p(y))
	}
}

func TestFixedRateBond_Expired(t *testing.T) {
	t.Parallel()

	h, err := helpers.NewFixedRateBond(quote.Link("bond-1y", 100), 0, bondTerms("2025-03-15", 0.04))
	if err != nil {
		t.Fatalf("NewFixedRateBond: %v", err)
	}
	later, _ := curve.NewFlatForward(curve.Fixed(utils.MustParseDate("2025-06-16")), quote.Link("flat", 0.03), "")
	if _, err := h.ImpliedQuote(later); !errors.Is(err, bond.ErrInvalidBond) {
		t.Fatalf("expired bond: got %v want ErrInvalidBond", err)
	}
}
