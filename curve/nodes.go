package curve

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/termfit/utils"
)

// Node is a solved point of a piecewise curve.
type Node struct {
	Date     time.Time
	Time     float64
	Discount float64
}

// zeroRateDt is the horizon used for the zero rate at t = 0.
const zeroRateDt = 1e-4

// nodeCurve is an immutable snapshot of a piecewise curve. It is also the
// in-progress curve during bootstrapping, with extrapolation off.
type nodeCurve struct {
	ref           time.Time
	dayCount      string
	interp        Interpolation
	extrapolation Extrapolation
	dates         []time.Time
	times         []float64
	discounts     []float64
}

func newNodeCurve(ref time.Time, dayCount string, interp Interpolation, extrapolation Extrapolation, capacity int) *nodeCurve {
	nc := &nodeCurve{
		ref:           ref,
		dayCount:      dayCount,
		interp:        interp,
		extrapolation: extrapolation,
		dates:         make([]time.Time, 1, capacity+1),
		times:         make([]float64, 1, capacity+1),
		discounts:     make([]float64, 1, capacity+1),
	}
	nc.dates[0] = ref
	nc.discounts[0] = 1
	return nc
}

func (nc *nodeCurve) push(d time.Time, t, df float64) {
	nc.dates = append(nc.dates, d)
	nc.times = append(nc.times, t)
	nc.discounts = append(nc.discounts, df)
}

func (nc *nodeCurve) ReferenceDate() time.Time { return nc.ref }

func (nc *nodeCurve) timeFromReference(d time.Time) float64 {
	return utils.YearFraction(nc.ref, d, nc.dayCount)
}

func (nc *nodeCurve) maxTime() float64 { return nc.times[len(nc.times)-1] }

func (nc *nodeCurve) discount(t float64) (float64, error) {
	if t < 0 || math.IsNaN(t) {
		return 0, fmt.Errorf("discount at t=%v: %w", t, ErrBeforeReference)
	}
	if t == 0 {
		return 1, nil
	}
	if nc.extrapolation == ExtrapolateNone && t > nc.maxTime() {
		return 0, fmt.Errorf("discount at t=%v past %v: %w", t, nc.maxTime(), ErrBeyondMaxDate)
	}
	return interpolate(nc.interp, nc.times, nc.discounts, t), nil
}

func (nc *nodeCurve) DiscountAt(d time.Time) (float64, error) {
	if d.Before(nc.ref) {
		return 0, fmt.Errorf("discount at %s before %s: %w", d.Format(utils.DateLayout), nc.ref.Format(utils.DateLayout), ErrBeforeReference)
	}
	if nc.extrapolation == ExtrapolateNone && d.After(nc.dates[len(nc.dates)-1]) {
		return 0, fmt.Errorf("discount at %s past %s: %w", d.Format(utils.DateLayout), nc.dates[len(nc.dates)-1].Format(utils.DateLayout), ErrBeyondMaxDate)
	}
	return nc.discount(nc.timeFromReference(d))
}

func (nc *nodeCurve) zeroRate(t float64) (float64, error) {
	if t == 0 {
		t = zeroRateDt
	}
	df, err := nc.discount(t)
	if err != nil {
		return 0, err
	}
	return -math.Log(df) / t, nil
}

func (nc *nodeCurve) nodes() []Node {
	out := make([]Node, len(nc.dates))
	for i := range nc.dates {
		out[i] = Node{Date: nc.dates[i], Time: nc.times[i], Discount: nc.discounts[i]}
	}
	return out
}
