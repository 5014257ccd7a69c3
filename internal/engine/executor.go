package engine

import (
	"context"
	"fmt"
	"time"

	"igbridge/internal/gateway/exchange"
	"igbridge/internal/logger"
)

// ExecStatus is the lifecycle state of an execution.
type ExecStatus string

const (
	StatusPending   ExecStatus = "PENDING"
	StatusSubmitted ExecStatus = "SUBMITTED"
	StatusConfirmed ExecStatus = "CONFIRMED"
	StatusRejected  ExecStatus = "REJECTED"
	StatusFailed    ExecStatus = "FAILED"
)

// LegKind names one atomic order within a decision.
type LegKind string

const (
	LegClose LegKind = "close"
	LegOpen  LegKind = "open"
)

// LegResult is the terminal state of one submitted leg.
type LegResult struct {
	Leg    LegKind
	Status ExecStatus
	Ref    exchange.DealRef
	Reason string
}

// ExecutionResult is the outcome of executing a whole decision.
type ExecutionResult struct {
	Status ExecStatus
	Close  *LegResult
	Open   *LegResult
}

// OrderPlacer is the slice of the venue gateway the executor needs.
type OrderPlacer interface {
	SubmitOrder(ctx context.Context, spec exchange.OrderSpec) (exchange.DealRef, error)
	ClosePosition(ctx context.Context, spec exchange.CloseSpec) (exchange.DealRef, error)
	Confirmation(ctx context.Context, ref exchange.DealRef) (exchange.Confirmation, error)
}

// Executor turns a decision into venue calls and polls each leg's
// confirmation to a terminal state. confirmAttempts of 1 keeps the
// single-poll contract; higher values retry a not-yet-terminal confirmation
// before declaring the outcome unknown.
type Executor struct {
	venue           OrderPlacer
	confirmAttempts int
	confirmBackoff  time.Duration
}

// NewExecutor builds an executor over the given order placer.
func NewExecutor(venue OrderPlacer, confirmAttempts int, confirmBackoff time.Duration) *Executor {
	if confirmAttempts <= 0 {
		confirmAttempts = 1
	}
	if confirmBackoff <= 0 {
		confirmBackoff = 500 * time.Millisecond
	}
	return &Executor{venue: venue, confirmAttempts: confirmAttempts, confirmBackoff: confirmBackoff}
}

// Execute runs the decision's legs in order. For a close-then-open the close
// leg must reach Confirmed before the open leg is attempted; a rejected or
// failed close terminates the whole operation with that leg's result, so the
// engine never doubles exposure by opening against an unconfirmed close.
func (e *Executor) Execute(ctx context.Context, d Decision) (ExecutionResult, error) {
	switch d.Kind {
	case DecisionOpenOnly:
		leg, err := e.runLeg(ctx, LegOpen, d)
		return ExecutionResult{Status: leg.Status, Open: &leg}, err
	case DecisionCloseOnly:
		leg, err := e.runLeg(ctx, LegClose, d)
		return ExecutionResult{Status: leg.Status, Close: &leg}, err
	case DecisionCloseThenOpen:
		closeLeg, err := e.runLeg(ctx, LegClose, d)
		if err != nil {
			return ExecutionResult{Status: closeLeg.Status, Close: &closeLeg}, err
		}
		openLeg, err := e.runLeg(ctx, LegOpen, d)
		res := ExecutionResult{Status: openLeg.Status, Close: &closeLeg, Open: &openLeg}
		if err != nil {
			return res, &PartialFailure{CloseRef: closeLeg.Ref, Err: err}
		}
		return res, nil
	default:
		return ExecutionResult{Status: StatusPending}, fmt.Errorf("decision %s is not executable", d.Kind)
	}
}

func (e *Executor) runLeg(ctx context.Context, leg LegKind, d Decision) (LegResult, error) {
	res := LegResult{Leg: leg, Status: StatusPending}
	var (
		ref exchange.DealRef
		err error
	)
	if leg == LegClose {
		ref, err = e.venue.ClosePosition(ctx, *d.Close)
	} else {
		ref, err = e.venue.SubmitOrder(ctx, *d.Open)
	}
	if err != nil {
		res.Status = StatusFailed
		return res, &VenueFailed{Leg: leg, StatusCode: exchange.TransportStatus(err), Err: err}
	}
	res.Ref = ref
	res.Status = StatusSubmitted

	for attempt := 1; ; attempt++ {
		conf, err := e.venue.Confirmation(ctx, ref)
		if err != nil {
			res.Status = StatusFailed
			return res, &VenueFailed{Leg: leg, StatusCode: exchange.TransportStatus(err), Err: err}
		}
		switch conf.DealStatus {
		case exchange.DealStatusAccepted:
			res.Status = StatusConfirmed
			return res, nil
		case exchange.DealStatusRejected:
			res.Status = StatusRejected
			res.Reason = conf.Reason
			return res, &VenueRejected{Leg: leg, Reason: conf.Reason, MarketClosed: conf.MarketClosed()}
		}
		if attempt >= e.confirmAttempts {
			res.Status = StatusFailed
			return res, &VenueFailed{
				Leg:     leg,
				Unknown: true,
				Err:     fmt.Errorf("confirmation still %q after %d attempt(s)", conf.DealStatus, attempt),
			}
		}
		logger.Debugf("engine: %s leg ref=%s confirmation %q, retrying (%d/%d)", leg, ref, conf.DealStatus, attempt, e.confirmAttempts)
		select {
		case <-ctx.Done():
			res.Status = StatusFailed
			return res, &VenueFailed{Leg: leg, Unknown: true, Err: ctx.Err()}
		case <-time.After(e.confirmBackoff):
		}
	}
}
