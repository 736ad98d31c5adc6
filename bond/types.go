package bond

import (
	"errors"
	"time"
)

// ErrInvalidBond is returned for inconsistent bond terms.
var ErrInvalidBond = errors.New("invalid bond")

// Cashflow is a single dated cash payment for a bond.
//
// Amounts are per Face, not per 100 unless Face is 100.
type Cashflow struct {
	Date         time.Time
	AccrualStart time.Time
	AccrualEnd   time.Time
	// Accrual is the year fraction of the coupon period in the bond's day count.
	Accrual   float64
	Coupon    float64
	Principal float64
}

func (c Cashflow) Amount() float64 {
	return c.Coupon + c.Principal
}
