package exchange

import (
	"context"
	"errors"
	"fmt"
)

// VenueGateway is the full dealing capability the engine requires. The
// concrete IG client implements it; tests substitute a mock.
type VenueGateway interface {
	// Authenticate establishes (or refreshes) a dealing session.
	Authenticate(ctx context.Context) (Session, error)
	// OpenPositions lists the account's currently open positions.
	OpenPositions(ctx context.Context) ([]Position, error)
	// ResolveInstrument finds the tradable contract for a catalog rule.
	ResolveInstrument(ctx context.Context, q InstrumentQuery) (Resolved, error)
	// MarketDetails fetches contract metadata plus a fresh price snapshot.
	MarketDetails(ctx context.Context, epic string) (Details, Snapshot, error)
	// SubmitOrder places an opening market order.
	SubmitOrder(ctx context.Context, spec OrderSpec) (DealRef, error)
	// ClosePosition places a closing market order against an open deal.
	ClosePosition(ctx context.Context, spec CloseSpec) (DealRef, error)
	// Confirmation polls the outcome of a submitted order.
	Confirmation(ctx context.Context, ref DealRef) (Confirmation, error)
}

// TransportError is a non-success HTTP response from the venue. The original
// status code is preserved so callers can pass it through to their own caller.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("venue returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("venue returned status %d: %s", e.StatusCode, e.Body)
}

// TransportStatus extracts the venue HTTP status from err, or 0.
func TransportStatus(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}
