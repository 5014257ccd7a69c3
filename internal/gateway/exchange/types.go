// Package exchange defines the venue-facing types and capability interfaces
// the engine consumes. The engine never talks HTTP itself; it sees only these
// shapes, so a different brokerage backend can be swapped in behind them.
package exchange

import "time"

// Direction is the dealing direction of an order or position.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Opposite returns the closing direction for a position held in d.
func (d Direction) Opposite() Direction {
	if d == DirectionBuy {
		return DirectionSell
	}
	return DirectionBuy
}

// Position is a venue-owned open position. The engine only ever reads it.
type Position struct {
	DealID         string
	Direction      Direction
	Size           float64
	InstrumentName string
	Epic           string
	Expiry         string
}

// Snapshot is the live bid/offer pair for an instrument. It must be fetched
// fresh for every decision and never cached across invocations.
type Snapshot struct {
	Bid   float64
	Offer float64
}

// Details is the dealable-contract metadata resolved for an instrument.
type Details struct {
	Epic        string
	Expiry      string
	LotSize     float64
	MinDealSize float64
	SizeUnit    string
	Currencies  []string
}

// InstrumentQuery drives venue-side instrument resolution.
type InstrumentQuery struct {
	SearchTerm  string
	DisplayName string
	Class       string
}

// Resolved identifies a tradable contract.
type Resolved struct {
	Epic   string
	Expiry string
}

// OrderSpec describes one opening market order. Stop and limit levels are
// pointers: nil means no level attached, which is different from a level at
// price zero.
type OrderSpec struct {
	Epic         string
	Expiry       string
	Direction    Direction
	Size         float64
	StopLevel    *float64
	LimitLevel   *float64
	CurrencyCode string
}

// CloseSpec describes one closing market order against an existing deal.
type CloseSpec struct {
	DealID    string
	Expiry    string
	Direction Direction
	Size      float64
}

// DealRef is the venue-issued token used to poll an order's confirmation.
type DealRef string

// Deal confirmation statuses and rejection reasons the engine distinguishes.
const (
	DealStatusAccepted          = "ACCEPTED"
	DealStatusRejected          = "REJECTED"
	ReasonMarketOffline         = "MARKET_OFFLINE"
	ReasonMarketClosedWithEdits = "MARKET_CLOSED_WITH_EDITS"
)

// Confirmation is the venue's verdict on a submitted order.
type Confirmation struct {
	DealStatus string
	Reason     string
	DealID     string
	Level      float64
}

// MarketClosed reports whether a rejection was down to the market being
// offline or closed rather than the order itself.
func (c Confirmation) MarketClosed() bool {
	return c.DealStatus == DealStatusRejected &&
		(c.Reason == ReasonMarketOffline || c.Reason == ReasonMarketClosedWithEdits)
}

// Session carries the venue security tokens with their expiry. The gateway
// refreshes it transparently; callers treat it as an opaque value.
type Session struct {
	CST           string
	SecurityToken string
	ExpiresAt     time.Time
}

// Valid reports whether the session can still authenticate requests.
func (s Session) Valid() bool {
	return s.CST != "" && s.SecurityToken != "" && time.Now().Before(s.ExpiresAt)
}
