package engine

import (
	"fmt"

	"igbridge/internal/gateway/exchange"
)

// ValidationError rejects a signal before any venue call is made: bad token,
// unknown ticker, malformed side. No side effects have occurred.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// PolicyNoAction reports that the per-instrument policy decided no venue
// mutation is required (already positioned, nothing to close).
type PolicyNoAction struct {
	Reason string
}

func (e *PolicyNoAction) Error() string { return e.Reason }

// VenueRejected means the order reached the venue and was declined. The
// venue's reason is preserved verbatim; MarketClosed marks the offline and
// closed-with-edits reasons that are not the order's fault.
type VenueRejected struct {
	Leg          LegKind
	Reason       string
	MarketClosed bool
}

func (e *VenueRejected) Error() string {
	if e.MarketClosed {
		return fmt.Sprintf("%s order rejected: market offline", e.Leg)
	}
	return fmt.Sprintf("%s order rejected: %s", e.Leg, e.Reason)
}

// VenueFailed is an undetermined outcome: the transport failed or the venue
// answered with something the engine does not recognise. The caller must be
// told placement failed so a human can check rather than assume either state.
type VenueFailed struct {
	Leg        LegKind
	StatusCode int
	Unknown    bool
	Err        error
}

func (e *VenueFailed) Error() string {
	if e.Unknown {
		return fmt.Sprintf("%s order outcome unknown: %v", e.Leg, e.Err)
	}
	return fmt.Sprintf("%s order placement failure: %v", e.Leg, e.Err)
}

func (e *VenueFailed) Unwrap() error { return e.Err }

// PartialFailure is the flip gone half-way: the close leg was confirmed but
// the open leg failed, leaving the account flat where the caller expected a
// new position. It must never be mistaken for a clean no-op.
type PartialFailure struct {
	CloseRef exchange.DealRef
	Err      error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("position closed (ref %s) but new position not opened: %v", e.CloseRef, e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }
