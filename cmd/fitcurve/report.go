package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/config"
	"github.com/meenmo/termfit/curve"
	"github.com/meenmo/termfit/fitting"
	"github.com/meenmo/termfit/helpers"
	"github.com/meenmo/termfit/marketdata"
	"github.com/meenmo/termfit/settings"
	"github.com/meenmo/termfit/utils"
)

// Report is the JSON output for one evaluation date.
type Report struct {
	EvaluationDate string        `json:"evaluation_date"`
	ReferenceDate  string        `json:"reference_date"`
	Curves         []CurveReport `json:"curves"`
	Bonds          []BondReport  `json:"bonds"`
	Error          string        `json:"error,omitempty"`
}

// CurveReport summarizes how one curve was built.
type CurveReport struct {
	Name       string `json:"name"`
	Converged  bool   `json:"converged"`
	Status     string `json:"status,omitempty"`
	Iterations int    `json:"iterations,omitempty"`
	Cost       string `json:"cost,omitempty"`
}

// BondReport lists a bond's par rate (percent) on every curve.
type BondReport struct {
	Name       string                     `json:"name"`
	CouponPct  decimal.Decimal            `json:"coupon_pct"`
	ParRatePct map[string]decimal.Decimal `json:"par_rate_pct"`
	// ASWSpreadBP is the bond's asset swap spread over each curve.
	ASWSpreadBP map[string]decimal.Decimal `json:"asw_spread_bp"`
}

type namedCurve struct {
	name  string
	curve curve.Discounter
	calc  curve.Calculator
}

// session holds the curves built from one market and the evaluation date
// they track.
type session struct {
	eval   *settings.EvaluationDate
	cal    calendar.CalendarID
	bonds  []curve.Helper
	curves []namedCurve
}

func newSession(snap *marketdata.Snapshot, cfg *config.Config) (*session, error) {
	m, err := snap.Build()
	if err != nil {
		return nil, err
	}
	s := &session{eval: settings.NewEvaluationDate(m.CurveDate), cal: m.Calendar, bonds: m.Bonds}
	anchor := curve.Tracking(s.eval, snap.SettlementDays, m.Calendar)

	bootOpts, err := cfg.BootstrapOptions()
	if err != nil {
		return nil, err
	}
	boot := append(append([]curve.Helper(nil), m.Short...), m.Bonds...)
	if len(boot) > 0 {
		pc, err := curve.NewPiecewiseCurve(anchor, boot, bootOpts)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		s.curves = append(s.curves, namedCurve{name: "bootstrap", curve: pc, calc: pc})
	}

	if len(m.Bonds) == 0 {
		return s, nil
	}
	fitOpts, err := cfg.FitOptions()
	if err != nil {
		return nil, err
	}
	methods, err := cfg.Methods()
	if err != nil {
		return nil, err
	}
	if m.ReferenceRate != nil {
		dc := m.ReferenceDC
		if dc == "" {
			dc = fitOpts.DayCount
		}
		ref, err := curve.NewFlatForward(anchor, m.ReferenceRate, dc)
		if err != nil {
			return nil, err
		}
		methods = append(methods, fitting.Spread{Base: fitting.NelsonSiegel{}, Reference: ref})
	}
	for _, method := range methods {
		fc, err := fitting.NewCurve(anchor, m.Bonds, method, fitOpts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", method.Name(), err)
		}
		s.curves = append(s.curves, namedCurve{name: method.Name(), curve: fc, calc: fc})
	}
	return s, nil
}

func (s *session) refresh(ctx context.Context) error {
	calcs := make([]curve.Calculator, len(s.curves))
	for i, c := range s.curves {
		calcs[i] = c.calc
	}
	return curve.Refresh(ctx, calcs...)
}

func (s *session) advance(months int) time.Time {
	return s.eval.Advance(s.cal, months, calendar.ModifiedFollowing)
}

func (s *session) report(ctx context.Context) Report {
	r := Report{EvaluationDate: s.eval.Date().Format(utils.DateLayout)}
	if err := s.refresh(ctx); err != nil {
		r.Error = err.Error()
		return r
	}
	if len(s.curves) > 0 {
		r.ReferenceDate = s.curves[0].curve.ReferenceDate().Format(utils.DateLayout)
	}

	for _, c := range s.curves {
		cr := CurveReport{Name: c.name, Converged: true}
		if fc, ok := c.curve.(*fitting.Curve); ok {
			res, err := fc.Results()
			if err != nil {
				r.Error = err.Error()
				return r
			}
			cr.Converged = res.Converged
			cr.Status = res.Status.String()
			cr.Iterations = res.Iterations
			cr.Cost = fmt.Sprintf("%.3e", res.Cost)
		}
		r.Curves = append(r.Curves, cr)
	}

	for _, h := range s.bonds {
		bh := h.(*helpers.FixedRateBond)
		b := bh.Bond()
		br := BondReport{
			Name:        curve.HelperName(h),
			CouponPct:   decimal.NewFromFloat(b.Terms().Coupon * 100).Round(4),
			ParRatePct:  make(map[string]decimal.Decimal, len(s.curves)),
			ASWSpreadBP: make(map[string]decimal.Decimal, len(s.curves)),
		}
		for _, c := range s.curves {
			ref := c.curve.ReferenceDate()
			dates := []time.Time{ref}
			for _, cf := range b.CashflowsAfter(ref) {
				dates = append(dates, cf.Date)
			}
			rate, err := curve.ParRate(c.curve, dates, b.Terms().DayCount)
			if err != nil {
				r.Error = fmt.Sprintf("%s on %s: %v", br.Name, c.name, err)
				return r
			}
			br.ParRatePct[c.name] = decimal.NewFromFloat(rate * 100).Round(4)

			asw, err := bh.AssetSwapSpread(c.curve)
			if err != nil {
				r.Error = fmt.Sprintf("%s on %s: %v", br.Name, c.name, err)
				return r
			}
			br.ASWSpreadBP[c.name] = decimal.NewFromFloat(asw.SpreadBP).Round(2)
		}
		r.Bonds = append(r.Bonds, br)
	}
	return r
}
