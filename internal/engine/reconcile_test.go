package engine

import (
	"testing"

	"igbridge/internal/gateway/exchange"
	"igbridge/internal/instrument"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flipRule(name string) instrument.Rule {
	return instrument.Rule{
		DisplayName: name,
		Policy:      instrument.PolicyFlipOnOpposite,
		PointSize:   1,
	}
}

func explicitRule(name string) instrument.Rule {
	return instrument.Rule{
		DisplayName: name,
		Policy:      instrument.PolicyExplicitClose,
		PointSize:   1,
	}
}

func testCtxLevels() (OrderContext, Levels) {
	stop, limit := 78.5, 80.3
	oc := OrderContext{Epic: "CC.D.LCO.UNC.IP", Expiry: "JUN-26", Currency: "GBP", Size: 2}
	return oc, Levels{Stop: &stop, Limit: &limit}
}

func TestReconcileFlipOpensWhenFlat(t *testing.T) {
	oc, lv := testCtxLevels()
	d := Reconcile(SideBuy, flipRule("Oil - Brent Crude"), nil, oc, lv)
	require.Equal(t, DecisionOpenOnly, d.Kind)
	require.NotNil(t, d.Open)
	assert.Equal(t, exchange.DirectionBuy, d.Open.Direction)
	assert.Equal(t, oc.Size, d.Open.Size)
	assert.Equal(t, lv.Stop, d.Open.StopLevel)
}

func TestReconcileFlipSameDirectionIsDuplicateNoAction(t *testing.T) {
	oc, lv := testCtxLevels()
	positions := []exchange.Position{{DealID: "D1", Direction: exchange.DirectionBuy, InstrumentName: "Oil - Brent Crude"}}
	d := Reconcile(SideBuy, flipRule("Oil - Brent Crude"), positions, oc, lv)
	assert.Equal(t, DecisionNoAction, d.Kind)
	assert.True(t, d.Duplicate)
}

func TestReconcileFlipOppositeClosesThenOpens(t *testing.T) {
	oc, lv := testCtxLevels()
	positions := []exchange.Position{{DealID: "D1", Direction: exchange.DirectionBuy, InstrumentName: "Germany 30"}}
	d := Reconcile(SideSell, flipRule("Germany 30"), positions, oc, lv)
	require.Equal(t, DecisionCloseThenOpen, d.Kind)
	require.NotNil(t, d.Close)
	require.NotNil(t, d.Open)
	assert.Equal(t, "D1", d.Close.DealID)
	assert.Equal(t, exchange.DirectionSell, d.Close.Direction)
	assert.Equal(t, exchange.DirectionSell, d.Open.Direction)
	assert.Equal(t, oc.Size, d.Close.Size)
}

func TestReconcileFlipRejectsCloseVocabulary(t *testing.T) {
	oc, lv := testCtxLevels()
	d := Reconcile(SideCloseBuy, flipRule("Oil - Brent Crude"), nil, oc, lv)
	assert.Equal(t, DecisionReject, d.Kind)
}

func TestReconcileIsDeterministic(t *testing.T) {
	oc, lv := testCtxLevels()
	positions := []exchange.Position{{DealID: "D9", Direction: exchange.DirectionSell, InstrumentName: "Germany 30"}}
	first := Reconcile(SideBuy, flipRule("Germany 30"), positions, oc, lv)
	second := Reconcile(SideBuy, flipRule("Germany 30"), positions, oc, lv)
	assert.Equal(t, first, second)
}

func TestMatchPositionComparesNamePrefix(t *testing.T) {
	oc, lv := testCtxLevels()
	positions := []exchange.Position{
		{DealID: "D1", Direction: exchange.DirectionBuy, InstrumentName: "Chicago Wheat (Mar-26)"},
	}
	d := Reconcile(SideBuy, explicitRule("Chicago Wheat"), positions, oc, lv)
	assert.Equal(t, DecisionNoAction, d.Kind)
	assert.True(t, d.Duplicate)
}

func TestReconcileExplicitCloseOpensOnlyWhenFlat(t *testing.T) {
	oc, lv := testCtxLevels()
	d := Reconcile(SideSell, explicitRule("Chicago Wheat"), nil, oc, lv)
	require.Equal(t, DecisionOpenOnly, d.Kind)
	assert.Equal(t, exchange.DirectionSell, d.Open.Direction)
}

func TestReconcileExplicitCloseNoPosition(t *testing.T) {
	oc, lv := testCtxLevels()
	d := Reconcile(SideCloseSell, explicitRule("Chicago Wheat"), nil, oc, lv)
	assert.Equal(t, DecisionNoAction, d.Kind)
	assert.False(t, d.Duplicate)
}

func TestReconcileExplicitCloseDirectionRules(t *testing.T) {
	oc, lv := testCtxLevels()
	long := []exchange.Position{{DealID: "D1", Direction: exchange.DirectionBuy, InstrumentName: "Chicago Wheat"}}
	short := []exchange.Position{{DealID: "D2", Direction: exchange.DirectionSell, InstrumentName: "Chicago Wheat"}}

	// CLOSE_SELL exits a long with a SELL order.
	d := Reconcile(SideCloseSell, explicitRule("Chicago Wheat"), long, oc, lv)
	require.Equal(t, DecisionCloseOnly, d.Kind)
	assert.Equal(t, exchange.DirectionSell, d.Close.Direction)
	assert.Equal(t, "D1", d.Close.DealID)

	// CLOSE_BUY exits a short with a BUY order.
	d = Reconcile(SideCloseBuy, explicitRule("Chicago Wheat"), short, oc, lv)
	require.Equal(t, DecisionCloseOnly, d.Kind)
	assert.Equal(t, exchange.DirectionBuy, d.Close.Direction)

	// Direction mismatch yields no action, no close attempted.
	d = Reconcile(SideCloseBuy, explicitRule("Chicago Wheat"), long, oc, lv)
	assert.Equal(t, DecisionNoAction, d.Kind)
	assert.Nil(t, d.Close)
}
