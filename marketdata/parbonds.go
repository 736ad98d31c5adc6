package marketdata

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/utils"
)

// ParBondCount is the size of the par bond ladder.
const ParBondCount = 15

// ParBonds is a ladder of annual 30/360 bonds issued on curveDate, maturing
// every two years out to 30 years, with coupons from 2% in 25bp steps, all
// priced at 100.
func ParBonds(curveDate time.Time) *Snapshot {
	s := &Snapshot{
		CurveDate: curveDate.Format(utils.DateLayout),
		Calendar:  string(calendar.Null),
		Bonds:     make([]BondQuote, 0, ParBondCount),
	}
	for i := 0; i < ParBondCount; i++ {
		years := 2 * (i + 1)
		s.Bonds = append(s.Bonds, BondQuote{
			Name:            fmt.Sprintf("bond-%dy", years),
			Issue:           curveDate.Format(utils.DateLayout),
			Maturity:        utils.AddMonth(curveDate, 12*years).Format(utils.DateLayout),
			Coupon:          decimal.New(int64(200+25*i), -4),
			FrequencyMonths: 12,
			DayCount:        utils.Thirty,
			Convention:      string(calendar.ModifiedFollowing),
			Price:           decimal.NewFromInt(100),
		})
	}
	return s
}
