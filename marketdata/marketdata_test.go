package marketdata_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/helpers"
	"github.com/meenmo/termfit/marketdata"
	"github.com/meenmo/termfit/utils"
)

func TestParBonds_Ladder(t *testing.T) {
	t.Parallel()

	today := utils.MustParseDate("2024-03-15")
	m, err := marketdata.ParBonds(today).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Bonds) != marketdata.ParBondCount {
		t.Fatalf("bonds: got %d want %d", len(m.Bonds), marketdata.ParBondCount)
	}
	last := m.Bonds[len(m.Bonds)-1].(*helpers.FixedRateBond)
	if got, want := last.Bond().MaturityDate(), utils.MustParseDate("2054-03-15"); !got.Equal(want) {
		t.Fatalf("last maturity: got %s want %s", got.Format(utils.DateLayout), want.Format(utils.DateLayout))
	}
	if got := last.Bond().Terms().Coupon; got != 0.055 {
		t.Fatalf("last coupon: got %v want 0.055", got)
	}
	if got := len(last.Bond().Cashflows()); got != 30 {
		t.Fatalf("last cashflows: got %d want 30", got)
	}
	q := m.Quotes["bond-10y"]
	if q == nil {
		t.Fatalf("quote bond-10y missing")
	}
	if v, _ := q.Value(); v != 100 {
		t.Fatalf("price: got %v want 100", v)
	}
}

func TestRead_RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(marketdata.ParBonds(utils.MustParseDate("2024-03-15"))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(buf.String(), `"coupon":"0.0425"`) {
		t.Fatalf("coupon should be a decimal string: %s", buf.String())
	}
	s, err := marketdata.Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(s.Bonds) != marketdata.ParBondCount || s.Bonds[9].Coupon.String() != "0.0425" {
		t.Fatalf("decoded bonds: got %+v", s.Bonds)
	}
}

func TestBuild_ShortEndAndReference(t *testing.T) {
	t.Parallel()

	in := `{
  "curve_date": "2024-03-15",
  "settlement_days": 2,
  "calendar": "usd",
  "deposits": [{"name": "dep-6m", "tenor": "6M", "rate": "0.051"}, {"name": "dep-3m", "tenor": "3M", "rate": "0.0525"}],
  "swaps": [{"name": "swp-2y", "tenor": "2Y", "rate": "0.0465"}],
  "reference": {"rate": "0.04"}
}`
	s, err := marketdata.Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	m, err := s.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Short) != 3 {
		t.Fatalf("short helpers: got %d want 3", len(m.Short))
	}
	if got := m.Short[0].Quote().Name(); got != "dep-3m" {
		t.Fatalf("first pillar: got %s want dep-3m", got)
	}
	if m.ReferenceRate == nil {
		t.Fatalf("reference rate missing")
	}
	if v, _ := m.ReferenceRate.Value(); v != 0.04 {
		t.Fatalf("reference rate: got %v want 0.04", v)
	}
}

func TestBuild_Holidays(t *testing.T) {
	t.Parallel()

	in := `{
  "curve_date": "2024-03-15",
  "settlement_days": 1,
  "calendar": "holtest",
  "holidays": ["2024-03-18"],
  "deposits": [{"name": "dep-3m", "tenor": "3M", "rate": "0.05"}]
}`
	s, err := marketdata.Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	m, err := s.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !calendar.IsBusinessDay(m.Calendar, utils.MustParseDate("2024-03-19")) || calendar.IsBusinessDay(m.Calendar, utils.MustParseDate("2024-03-18")) {
		t.Fatalf("holiday not registered on %s", m.Calendar)
	}
	// Settles Tuesday after the Monday holiday.
	want := utils.MustParseDate("2024-06-19")
	if got := m.Short[0].PillarDate(m.CurveDate); !got.Equal(want) {
		t.Fatalf("pillar: got %s want %s", got.Format(utils.DateLayout), want.Format(utils.DateLayout))
	}
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"bad date":   `{"curve_date": "15/03/2024"}`,
		"duplicate":  `{"curve_date": "2024-03-15", "deposits": [{"name": "d", "tenor": "3M", "rate": "0.05"}, {"name": "d", "tenor": "6M", "rate": "0.05"}]}`,
		"bad tenor":  `{"curve_date": "2024-03-15", "swaps": [{"name": "s", "tenor": "2Q", "rate": "0.05"}]}`,
		"zero price": `{"curve_date": "2024-03-15", "bonds": [{"name": "b", "issue": "2024-03-15", "maturity": "2026-03-15", "coupon": "0.02", "price": "0"}]}`,
		"day count":  `{"curve_date": "2024-03-15", "bonds": [{"name": "b", "issue": "2024-03-15", "maturity": "2026-03-15", "coupon": "0.02", "day_count": "BUS/252", "price": "100"}]}`,
		"null hols":  `{"curve_date": "2024-03-15", "holidays": ["2024-03-18"]}`,
		"bad hol":    `{"curve_date": "2024-03-15", "calendar": "target", "holidays": ["18.03.2024"]}`,
	}
	for name, in := range cases {
		s, err := marketdata.Read(strings.NewReader(in))
		if err != nil {
			t.Fatalf("%s: Read: %v", name, err)
		}
		if _, err := s.Build(); err == nil {
			t.Fatalf("%s: expected Build error", name)
		}
	}

	s, _ := marketdata.Read(strings.NewReader(`{"curve_date": "2024-03-15", "bonds": [{"name": "", "issue": "2024-03-15", "maturity": "2026-03-15", "coupon": "0.02", "price": "100"}]}`))
	if _, err := s.Build(); !errors.Is(err, marketdata.ErrInvalidSnapshot) {
		t.Fatalf("unnamed bond: got %v want ErrInvalidSnapshot", err)
	}

	if _, err := marketdata.Read(strings.NewReader(`{"curve_date": "2024-03-15", "futures": []}`)); err == nil {
		t.Fatalf("unknown field: expected Read error")
	}
}
