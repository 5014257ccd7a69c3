package engine

import (
	"igbridge/internal/gateway/exchange"
	"igbridge/internal/instrument"

	"github.com/shopspring/decimal"
)

// Levels holds the computed stop and limit prices for an opening order. A nil
// pointer means no level of that kind is attached; zero is a legitimate price
// and must never stand in for "absent".
type Levels struct {
	Stop  *float64
	Limit *float64
}

// ComputeLevels derives stop and limit levels from the live snapshot and the
// instrument's configured offsets. Offsets are expressed in points and scaled
// by the instrument's point size; PriceAdjust compensates for the expected
// slippage between decision time and venue fill time and shifts the stop
// towards the entry.
//
//	BUY:  stop = bid − stopOffset·pt + priceAdjust·pt,  limit = offer + limitOffset·pt
//	SELL: stop = offer + stopOffset·pt − priceAdjust·pt, limit = bid − limitOffset·pt
//
// A zero offset yields a nil level.
func ComputeLevels(rule instrument.Rule, dir exchange.Direction, snap exchange.Snapshot) Levels {
	point := decimal.NewFromFloat(rule.PointSize)
	if point.Sign() <= 0 {
		point = decimal.NewFromInt(1)
	}
	bid := decimal.NewFromFloat(snap.Bid)
	offer := decimal.NewFromFloat(snap.Offer)
	stopOff := decimal.NewFromFloat(rule.StopOffset).Mul(point)
	limitOff := decimal.NewFromFloat(rule.LimitOffset).Mul(point)
	adjust := decimal.NewFromFloat(rule.PriceAdjust).Mul(point)

	var lv Levels
	if rule.StopOffset != 0 {
		var stop decimal.Decimal
		if dir == exchange.DirectionBuy {
			stop = bid.Sub(stopOff).Add(adjust)
		} else {
			stop = offer.Add(stopOff).Sub(adjust)
		}
		lv.Stop = decimalPtr(stop)
	}
	if rule.LimitOffset != 0 {
		var limit decimal.Decimal
		if dir == exchange.DirectionBuy {
			limit = offer.Add(limitOff)
		} else {
			limit = bid.Sub(limitOff)
		}
		lv.Limit = decimalPtr(limit)
	}
	return lv
}

func decimalPtr(d decimal.Decimal) *float64 {
	f, _ := d.Float64()
	return &f
}
