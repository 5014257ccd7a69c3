package engine

import (
	"testing"

	"igbridge/internal/gateway/exchange"
	"igbridge/internal/instrument"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brentRule() instrument.Rule {
	return instrument.Rule{
		DisplayName: "Oil - Brent Crude",
		SearchTerm:  "brent",
		StopOffset:  150,
		LimitOffset: 25,
		PriceAdjust: 2.8,
		PointSize:   0.01,
	}
}

func TestComputeLevelsBuy(t *testing.T) {
	snap := exchange.Snapshot{Bid: 80.00, Offer: 80.05}
	lv := ComputeLevels(brentRule(), exchange.DirectionBuy, snap)
	require.NotNil(t, lv.Stop)
	require.NotNil(t, lv.Limit)
	// stop = 80.00 - 150*0.01 + 2.8*0.01, limit = 80.05 + 25*0.01
	assert.InDelta(t, 78.528, *lv.Stop, 1e-9)
	assert.InDelta(t, 80.30, *lv.Limit, 1e-9)
}

func TestComputeLevelsSellMirrorsBuy(t *testing.T) {
	snap := exchange.Snapshot{Bid: 80.00, Offer: 80.05}
	lv := ComputeLevels(brentRule(), exchange.DirectionSell, snap)
	require.NotNil(t, lv.Stop)
	require.NotNil(t, lv.Limit)
	assert.InDelta(t, 80.05+1.5-0.028, *lv.Stop, 1e-9)
	assert.InDelta(t, 80.00-0.25, *lv.Limit, 1e-9)
}

func TestComputeLevelsZeroOffsetsYieldNil(t *testing.T) {
	rule := brentRule()
	rule.StopOffset = 0
	rule.LimitOffset = 0
	lv := ComputeLevels(rule, exchange.DirectionBuy, exchange.Snapshot{Bid: 100, Offer: 100.5})
	assert.Nil(t, lv.Stop, "zero stop offset must not become a stop at price zero")
	assert.Nil(t, lv.Limit)
}

func TestComputeLevelsIndexPointSize(t *testing.T) {
	rule := instrument.Rule{StopOffset: 150, LimitOffset: 50, PriceAdjust: 4, PointSize: 1}
	lv := ComputeLevels(rule, exchange.DirectionBuy, exchange.Snapshot{Bid: 15000, Offer: 15002})
	require.NotNil(t, lv.Stop)
	require.NotNil(t, lv.Limit)
	assert.InDelta(t, 15000-150+4, *lv.Stop, 1e-9)
	assert.InDelta(t, 15002+50, *lv.Limit, 1e-9)
}
