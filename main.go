package main

import (
	"fmt"
	"os"
	"time"

	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/curve"
	"github.com/meenmo/termfit/fitting"
	"github.com/meenmo/termfit/helpers"
	"github.com/meenmo/termfit/marketdata"
	"github.com/meenmo/termfit/settings"
	"github.com/meenmo/termfit/utils"
)

func main() {
	today := utils.MustParseDate("2024-03-15")
	m, err := marketdata.ParBonds(today).Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	eval := settings.NewEvaluationDate(today)
	anchor := curve.Tracking(eval, 0, calendar.Null)

	names := []string{"bootstrap"}
	curves := []curve.Discounter{}

	boot, err := curve.NewPiecewiseCurve(anchor, m.Bonds, curve.BootstrapOptions{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	curves = append(curves, boot)

	methods := []fitting.Method{
		fitting.ExponentialSplines{ConstrainAtZero: true},
		fitting.Polynomial{Degree: 3, ConstrainAtZero: true},
		fitting.NelsonSiegel{},
		fitting.Svensson{},
		fitting.CubicBSplines{Knots: []float64{-30, -20, 0, 5, 10, 15, 20, 25, 30, 40, 50}, ConstrainAtZero: true},
	}
	for _, method := range methods {
		fc, err := fitting.NewCurve(anchor, m.Bonds, method, fitting.Options{})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		names = append(names, method.Name())
		curves = append(curves, fc)
		res, err := fc.Results()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("%-20s iterations %4d  cost %.3e  converged %v\n", method.Name(), res.Iterations, res.Cost, res.Converged)
	}

	printTable(today, names, curves, m.Bonds)

	next := eval.Advance(calendar.Null, 23, calendar.ModifiedFollowing)
	fmt.Printf("\nEvaluation date moved to %s; quotes unchanged\n", next.Format(utils.DateLayout))
	printTable(next, names, curves, m.Bonds)
}

func printTable(ref time.Time, names []string, curves []curve.Discounter, bonds []curve.Helper) {
	fmt.Printf("\n%-9s", "coupon")
	for _, n := range names {
		fmt.Printf(" %12.12s", n)
	}
	fmt.Println()
	for _, h := range bonds {
		b := h.(*helpers.FixedRateBond).Bond()
		dates := []time.Time{ref}
		for _, cf := range b.CashflowsAfter(ref) {
			dates = append(dates, cf.Date)
		}
		fmt.Printf("%8.3f%%", b.Terms().Coupon*100)
		for _, c := range curves {
			r, err := curve.ParRate(c, dates, b.Terms().DayCount)
			if err != nil {
				fmt.Printf(" %12s", "error")
				continue
			}
			fmt.Printf(" %11.3f%%", r*100)
		}
		fmt.Println()
	}
}
