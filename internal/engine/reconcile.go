package engine

import (
	"fmt"

	"igbridge/internal/gateway/exchange"
	"igbridge/internal/instrument"
)

// OrderContext carries the venue-resolved contract data an order needs.
type OrderContext struct {
	Epic     string
	Expiry   string
	Currency string
	Size     float64
}

// Reconcile classifies a signal against the venue's open positions and
// decides the required sequence of venue actions. It is a pure function of
// its inputs: replaying the same signal against unchanged venue state yields
// the same decision.
func Reconcile(side Side, rule instrument.Rule, positions []exchange.Position, oc OrderContext, lv Levels) Decision {
	pos := matchPosition(rule.DisplayName, positions)
	switch rule.Policy {
	case instrument.PolicyFlipOnOpposite:
		return reconcileFlip(side, rule, pos, oc, lv)
	case instrument.PolicyExplicitClose:
		return reconcileExplicitClose(side, rule, pos, oc, lv)
	default:
		return Decision{Kind: DecisionReject, Reason: fmt.Sprintf("instrument %q has no policy configured", rule.DisplayName)}
	}
}

// matchPosition finds the open position whose instrument name starts with the
// rule's display name. Venues decorate reported names, so only the leading
// substring of the display name's length is compared.
func matchPosition(displayName string, positions []exchange.Position) *exchange.Position {
	for i := range positions {
		name := positions[i].InstrumentName
		if len(name) >= len(displayName) && name[:len(displayName)] == displayName {
			return &positions[i]
		}
	}
	return nil
}

// reconcileFlip handles instruments whose side vocabulary is BUY/SELL only:
// an opposite-direction signal closes the open position and opens anew.
func reconcileFlip(side Side, rule instrument.Rule, pos *exchange.Position, oc OrderContext, lv Levels) Decision {
	if side.IsClose() {
		return Decision{Kind: DecisionReject, Reason: fmt.Sprintf("%s does not accept %s signals", rule.DisplayName, side)}
	}
	dir := side.Direction()
	if pos == nil {
		return Decision{Kind: DecisionOpenOnly, Open: openSpec(dir, oc, lv)}
	}
	if pos.Direction == dir {
		return Decision{Kind: DecisionNoAction, Duplicate: true, Reason: fmt.Sprintf("%s already positioned %s", rule.DisplayName, dir)}
	}
	// Both legs use the configured size rather than the venue-reported
	// historical size, which may be stale by the time the close lands.
	return Decision{
		Kind:  DecisionCloseThenOpen,
		Close: closeSpec(pos, dir, oc),
		Open:  openSpec(dir, oc, lv),
	}
}

// reconcileExplicitClose handles instruments that require CLOSE_BUY or
// CLOSE_SELL to exit: BUY/SELL only opens, and only when flat.
func reconcileExplicitClose(side Side, rule instrument.Rule, pos *exchange.Position, oc OrderContext, lv Levels) Decision {
	if !side.IsClose() {
		if pos != nil {
			return Decision{Kind: DecisionNoAction, Duplicate: true, Reason: fmt.Sprintf("%s already positioned", rule.DisplayName)}
		}
		return Decision{Kind: DecisionOpenOnly, Open: openSpec(side.Direction(), oc, lv)}
	}
	if pos == nil {
		return Decision{Kind: DecisionNoAction, Reason: fmt.Sprintf("%s has no existing position to close", rule.DisplayName)}
	}
	closeDir := side.Direction()
	if pos.Direction != closeDir.Opposite() {
		return Decision{Kind: DecisionNoAction, Reason: fmt.Sprintf("%s open position is %s, not closable by %s", rule.DisplayName, pos.Direction, side)}
	}
	return Decision{Kind: DecisionCloseOnly, Close: closeSpec(pos, closeDir, oc)}
}

func openSpec(dir exchange.Direction, oc OrderContext, lv Levels) *exchange.OrderSpec {
	return &exchange.OrderSpec{
		Epic:         oc.Epic,
		Expiry:       oc.Expiry,
		Direction:    dir,
		Size:         oc.Size,
		StopLevel:    lv.Stop,
		LimitLevel:   lv.Limit,
		CurrencyCode: oc.Currency,
	}
}

func closeSpec(pos *exchange.Position, closeDir exchange.Direction, oc OrderContext) *exchange.CloseSpec {
	return &exchange.CloseSpec{
		DealID:    pos.DealID,
		Expiry:    oc.Expiry,
		Direction: closeDir,
		Size:      oc.Size,
	}
}
