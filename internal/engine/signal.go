// Package engine contains the signal-to-order reconciliation core: given an
// inbound trading signal and the venue's view of open positions, it decides
// the required action, computes price levels, and executes it against the
// venue. The engine is stateless between invocations; venue state is
// re-derived on every signal.
package engine

import (
	"fmt"
	"strings"

	"igbridge/internal/gateway/exchange"
)

// Side is the instruction carried by a signal. BUY/SELL open (or flip,
// policy-dependent); CLOSE_BUY/CLOSE_SELL name the direction of the closing
// order, so CLOSE_BUY exits a short and CLOSE_SELL exits a long.
type Side string

const (
	SideBuy       Side = "BUY"
	SideSell      Side = "SELL"
	SideCloseBuy  Side = "CLOSE_BUY"
	SideCloseSell Side = "CLOSE_SELL"
)

// ParseSide normalises a raw side string. Matching is case-insensitive.
func ParseSide(raw string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(raw))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	case SideCloseBuy:
		return SideCloseBuy, nil
	case SideCloseSell:
		return SideCloseSell, nil
	default:
		return "", fmt.Errorf("unknown signal side %q", raw)
	}
}

// IsClose reports whether the side is an explicit close instruction.
func (s Side) IsClose() bool {
	return s == SideCloseBuy || s == SideCloseSell
}

// Direction is the dealing direction of the order this side produces.
func (s Side) Direction() exchange.Direction {
	switch s {
	case SideBuy, SideCloseBuy:
		return exchange.DirectionBuy
	default:
		return exchange.DirectionSell
	}
}

// Signal is one inbound trade instruction. Side is kept raw until the engine
// validates it so a malformed side is reported as a validation failure rather
// than dropped at the transport edge.
type Signal struct {
	Ticker  string
	Side    string
	Token   string
	TraceID string
}
