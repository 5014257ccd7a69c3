package engine

import "igbridge/internal/gateway/exchange"

// DecisionKind tags the variant of a reconciliation decision.
type DecisionKind int

const (
	DecisionNoAction DecisionKind = iota
	DecisionReject
	DecisionOpenOnly
	DecisionCloseOnly
	DecisionCloseThenOpen
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionNoAction:
		return "no_action"
	case DecisionReject:
		return "reject"
	case DecisionOpenOnly:
		return "open_only"
	case DecisionCloseOnly:
		return "close_only"
	case DecisionCloseThenOpen:
		return "close_then_open"
	default:
		return "unknown"
	}
}

// Decision is the reconciler's verdict for one signal. Close and Open are set
// according to the kind; Reason explains NoAction and Reject outcomes.
// Duplicate marks the specific no-action case of a signal matching an already
// open same-direction position, which may be treated as success per rule.
type Decision struct {
	Kind      DecisionKind
	Reason    string
	Duplicate bool
	Close     *exchange.CloseSpec
	Open      *exchange.OrderSpec
}
