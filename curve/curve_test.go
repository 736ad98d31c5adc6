package curve_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/curve"
	"github.com/meenmo/termfit/helpers"
	"github.com/meenmo/termfit/lazy"
	"github.com/meenmo/termfit/metrics"
	"github.com/meenmo/termfit/quote"
	"github.com/meenmo/termfit/utils"
)

var refDate = utils.MustParseDate("2024-03-15")

func deposit(t *testing.T, name string, months int, rate float64) (*helpers.Deposit, *quote.Quote) {
	t.Helper()
	q := quote.New(name, rate)
	h, err := helpers.NewDeposit(quote.NewHandle(q), helpers.DepositTerms{TenorMonths: months, Calendar: calendar.Null})
	if err != nil {
		t.Fatalf("NewDeposit(%s): %v", name, err)
	}
	return h, q
}

func depositCurve(t *testing.T, opts curve.BootstrapOptions) (*curve.PiecewiseCurve, []curve.Helper, []*quote.Quote) {
	t.Helper()
	var hs []curve.Helper
	var qs []*quote.Quote
	for _, d := range []struct {
		months int
		rate   float64
	}{{3, 0.050}, {6, 0.051}, {12, 0.052}} {
		h, q := deposit(t, "dep", d.months, d.rate)
		hs = append(hs, h)
		qs = append(qs, q)
	}
	c, err := curve.NewPiecewiseCurve(curve.Fixed(refDate), hs, opts)
	if err != nil {
		t.Fatalf("NewPiecewiseCurve: %v", err)
	}
	return c, hs, qs
}

func TestPiecewise_RepricesHelpers(t *testing.T) {
	t.Parallel()

	for _, interp := range []curve.Interpolation{curve.LogLinearDiscount, curve.LinearZero} {
		c, hs, _ := depositCurve(t, curve.BootstrapOptions{Interpolation: interp})
		for i, h := range hs {
			e, err := curve.QuoteError(h, c)
			if err != nil {
				t.Fatalf("%s helper %d: %v", interp, i, err)
			}
			if math.Abs(e) > 1e-10 {
				t.Fatalf("%s helper %d: quote error %v", interp, i, e)
			}
		}
		if d, _ := c.Discount(0); d != 1 {
			t.Fatalf("%s: discount at 0: got %v want 1", interp, d)
		}
		nodes, err := c.Nodes()
		if err != nil {
			t.Fatalf("Nodes: %v", err)
		}
		if len(nodes) != 4 || !nodes[0].Date.Equal(refDate) || nodes[0].Discount != 1 {
			t.Fatalf("%s: nodes: got %+v", interp, nodes)
		}
		maxDate, _ := c.MaxDate()
		if want := utils.MustParseDate("2025-03-15"); !maxDate.Equal(want) {
			t.Fatalf("%s: max date: got %s want %s", interp, maxDate.Format(utils.DateLayout), want.Format(utils.DateLayout))
		}
	}
}

func TestPiecewise_Interpolation(t *testing.T) {
	t.Parallel()

	ll, _, _ := depositCurve(t, curve.BootstrapOptions{})
	nodes, _ := ll.Nodes()
	n1, n2 := nodes[1], nodes[2]
	mid := (n1.Time + n2.Time) / 2
	got, _ := ll.Discount(mid)
	if want := math.Sqrt(n1.Discount * n2.Discount); math.Abs(got-want) > 1e-14 {
		t.Fatalf("log-linear midpoint: got %v want %v", got, want)
	}

	lz, _, _ := depositCurve(t, curve.BootstrapOptions{Interpolation: curve.LinearZero})
	nodes, _ = lz.Nodes()
	n1, n2 = nodes[1], nodes[2]
	mid = (n1.Time + n2.Time) / 2
	z1 := -math.Log(n1.Discount) / n1.Time
	z2 := -math.Log(n2.Discount) / n2.Time
	zr, _ := lz.ZeroRate(mid)
	if want := (z1 + z2) / 2; math.Abs(zr-want) > 1e-12 {
		t.Fatalf("linear-zero midpoint: got %v want %v", zr, want)
	}
}

func TestPiecewise_Extrapolation(t *testing.T) {
	t.Parallel()

	c, _, _ := depositCurve(t, curve.BootstrapOptions{})
	nodes, _ := c.Nodes()
	a, b := nodes[len(nodes)-2], nodes[len(nodes)-1]
	lastFwd := math.Log(a.Discount/b.Discount) / (b.Time - a.Time)
	fwd, err := curve.ForwardRate(c, b.Time+1, b.Time+2)
	if err != nil {
		t.Fatalf("ForwardRate: %v", err)
	}
	if math.Abs(fwd-lastFwd) > 1e-12 {
		t.Fatalf("extrapolated forward: got %v want %v", fwd, lastFwd)
	}

	strict, _, _ := depositCurve(t, curve.BootstrapOptions{Extrapolation: curve.ExtrapolateNone})
	if _, err := strict.Discount(b.Time + 0.5); !errors.Is(err, curve.ErrBeyondMaxDate) {
		t.Fatalf("discount past max: got %v want ErrBeyondMaxDate", err)
	}
	if _, err := strict.DiscountAt(b.Date.AddDate(0, 0, 1)); !errors.Is(err, curve.ErrBeyondMaxDate) {
		t.Fatalf("discount at date past max: got %v want ErrBeyondMaxDate", err)
	}
	if _, err := strict.DiscountAt(refDate.AddDate(0, 0, -1)); !errors.Is(err, curve.ErrBeforeReference) {
		t.Fatalf("discount before reference: got %v want ErrBeforeReference", err)
	}
	if _, err := strict.Discount(-0.1); !errors.Is(err, curve.ErrBeforeReference) {
		t.Fatalf("negative time: got %v want ErrBeforeReference", err)
	}
}

func TestPiecewise_ConstructionErrors(t *testing.T) {
	t.Parallel()

	if _, err := curve.NewPiecewiseCurve(curve.Fixed(refDate), nil, curve.BootstrapOptions{}); !errors.Is(err, curve.ErrNoHelpers) {
		t.Fatalf("no helpers: got %v want ErrNoHelpers", err)
	}

	h6, _ := deposit(t, "dep-6m", 6, 0.05)
	h3, _ := deposit(t, "dep-3m", 3, 0.05)
	h3b, _ := deposit(t, "dep-3m-bis", 3, 0.05)
	for name, hs := range map[string][]curve.Helper{
		"decreasing": {h6, h3},
		"duplicate":  {h3, h3b},
	} {
		_, err := curve.NewPiecewiseCurve(curve.Fixed(refDate), hs, curve.BootstrapOptions{})
		if !errors.Is(err, curve.ErrUnsortedPillars) {
			t.Fatalf("%s: got %v want ErrUnsortedPillars", name, err)
		}
		var pe *curve.PillarError
		if !errors.As(err, &pe) || pe.Index != 1 {
			t.Fatalf("%s: got %v want PillarError at index 1", name, err)
		}
	}

	bad := []curve.BootstrapOptions{
		{MinForwardRate: 0.5, MaxForwardRate: 0.1},
		{Accuracy: -1},
		{Interpolation: curve.Interpolation(7)},
	}
	for _, o := range bad {
		if _, err := curve.NewPiecewiseCurve(curve.Fixed(refDate), []curve.Helper{h3}, o); !errors.Is(err, curve.ErrInvalidOptions) {
			t.Fatalf("options %+v: got %v want ErrInvalidOptions", o, err)
		}
	}
	if _, err := curve.NewPiecewiseCurve(curve.Anchor{}, []curve.Helper{h3}, curve.BootstrapOptions{}); !errors.Is(err, curve.ErrInvalidOptions) {
		t.Fatalf("zero anchor: got %v want ErrInvalidOptions", err)
	}
}

func TestPiecewise_BracketFailure(t *testing.T) {
	t.Parallel()

	before := testutil.ToFloat64(metrics.Default.BootstrapFailures)
	h, _ := deposit(t, "dep-3m", 3, 9.0)
	_, err := curve.NewPiecewiseCurve(curve.Fixed(refDate), []curve.Helper{h}, curve.BootstrapOptions{})
	var pe *curve.PillarError
	if !errors.As(err, &pe) || pe.Index != 0 || pe.Helper != "dep-3m" {
		t.Fatalf("got %v want PillarError for dep-3m", err)
	}
	if after := testutil.ToFloat64(metrics.Default.BootstrapFailures); after < before+1 {
		t.Fatalf("bootstrap failures: got %v want >= %v", after, before+1)
	}
}

func TestPiecewise_LazyRecalculation(t *testing.T) {
	t.Parallel()

	c, _, qs := depositCurve(t, curve.BootstrapOptions{})
	rateHandle := quote.Link("flat", 0.03)
	flat, err := curve.NewFlatForward(curve.Fixed(refDate), rateHandle, "")
	if err != nil {
		t.Fatalf("NewFlatForward: %v", err)
	}

	v0, fv0 := c.Version(), flat.Version()
	d0, _ := c.Discount(1)
	if c.State() != lazy.Fresh {
		t.Fatalf("state: got %s want %s", c.State(), lazy.Fresh)
	}

	if err := qs[2].Set(0.06); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if c.State() != lazy.Stale {
		t.Fatalf("state after quote change: got %s want %s", c.State(), lazy.Stale)
	}
	if c.Version() == v0 {
		t.Fatalf("version unchanged after quote change")
	}
	if flat.Version() != fv0 {
		t.Fatalf("independent curve version moved")
	}
	d1, _ := c.Discount(1)
	if !(d1 < d0) {
		t.Fatalf("discount at 1y after rate rise: got %v want < %v", d1, d0)
	}
	if c.State() != lazy.Fresh {
		t.Fatalf("state after query: got %s want %s", c.State(), lazy.Fresh)
	}

	// A failing recalculation is reported and the curve recovers once the
	// quote is fixed.
	if err := qs[2].Set(9.0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Calculate(); err == nil {
		t.Fatalf("Calculate with unbracketable quote: expected error")
	}
	if _, err := c.Discount(1); err == nil {
		t.Fatalf("Discount after failed recalculation: expected error")
	}
	if err := qs[2].Set(0.06); err != nil {
		t.Fatalf("Set: %v", err)
	}
	d2, err := c.Discount(1)
	if err != nil || math.Abs(d2-d1) > 1e-15 {
		t.Fatalf("Discount after recovery: got %v, %v want %v", d2, err, d1)
	}

	qs[0].Invalidate()
	if err := c.Calculate(); !errors.Is(err, quote.ErrInvalidQuote) {
		t.Fatalf("invalidated quote: got %v want ErrInvalidQuote", err)
	}
}

func TestFlatForward(t *testing.T) {
	t.Parallel()

	h := quote.Link("flat", 0.03)
	ff, err := curve.NewFlatForward(curve.Fixed(refDate), h, utils.Act365F)
	if err != nil {
		t.Fatalf("NewFlatForward: %v", err)
	}
	d, _ := ff.Discount(2)
	if want := math.Exp(-0.06); math.Abs(d-want) > 1e-15 {
		t.Fatalf("discount: got %v want %v", d, want)
	}
	d, _ = ff.DiscountAt(refDate.AddDate(0, 0, 365))
	if want := math.Exp(-0.03); math.Abs(d-want) > 1e-15 {
		t.Fatalf("discount at date: got %v want %v", d, want)
	}

	v := ff.Version()
	h.LinkTo(quote.New("flat-2", 0.04))
	if ff.Version() == v {
		t.Fatalf("version unchanged after relink")
	}
	z, _ := ff.ZeroRate(5)
	if z != 0.04 {
		t.Fatalf("zero rate after relink: got %v want 0.04", z)
	}

	if _, err := curve.NewFlatForward(curve.Fixed(refDate), nil, ""); !errors.Is(err, curve.ErrInvalidOptions) {
		t.Fatalf("nil handle: got %v want ErrInvalidOptions", err)
	}
}

func TestParRate(t *testing.T) {
	t.Parallel()

	ff, _ := curve.NewFlatForward(curve.Fixed(refDate), quote.Link("flat", 0.03), utils.Act365F)
	end := refDate.AddDate(0, 0, 365)
	r, err := curve.ParRate(ff, []time.Time{refDate, end}, utils.Act365F)
	if err != nil {
		t.Fatalf("ParRate: %v", err)
	}
	if want := math.Expm1(0.03); math.Abs(r-want) > 1e-14 {
		t.Fatalf("one-period par rate: got %v want %v", r, want)
	}

	if _, err := curve.ParRate(ff, []time.Time{refDate}, utils.Act365F); err == nil {
		t.Fatalf("single date: expected error")
	}
	if _, err := curve.ParRate(ff, []time.Time{end, refDate}, utils.Act365F); !errors.Is(err, curve.ErrUnsortedPillars) {
		t.Fatalf("unsorted dates: got %v want ErrUnsortedPillars", err)
	}
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	a, _, _ := depositCurve(t, curve.BootstrapOptions{})
	b, _, qs := depositCurve(t, curve.BootstrapOptions{Interpolation: curve.LinearZero})
	if err := curve.Refresh(context.Background(), a, b); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := qs[1].Set(9.0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	err := curve.Refresh(context.Background(), a, b)
	var pe *curve.PillarError
	if !errors.As(err, &pe) {
		t.Fatalf("Refresh with failing curve: got %v want PillarError", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := curve.Refresh(ctx, a); !errors.Is(err, context.Canceled) {
		t.Fatalf("Refresh with cancelled context: got %v want context.Canceled", err)
	}
}
