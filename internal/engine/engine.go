package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"igbridge/internal/gateway/exchange"
	"igbridge/internal/instrument"
	"igbridge/internal/logger"
)

// Catalog is the instrument lookup the engine consumes.
type Catalog interface {
	Lookup(ticker string) (instrument.Rule, bool)
}

// TextNotifier receives human-readable notes about executions. Optional.
type TextNotifier interface {
	SendText(text string) error
}

// Params configures a new Engine.
type Params struct {
	Token           string
	Catalog         Catalog
	Venue           exchange.VenueGateway
	ConfirmAttempts int
	ConfirmBackoff  time.Duration
	Notifier        TextNotifier
}

// Engine runs the per-signal pipeline: authenticate, fetch venue truth,
// reconcile, compute levels, execute. Signals for the same instrument are
// serialized with a per-instrument lock because the query-then-act sequence
// against the venue is not atomic.
type Engine struct {
	token    string
	catalog  Catalog
	venue    exchange.VenueGateway
	exec     *Executor
	notifier TextNotifier

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New constructs the engine.
func New(p Params) (*Engine, error) {
	if p.Token == "" {
		return nil, fmt.Errorf("engine requires a webhook token")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("engine requires an instrument catalog")
	}
	if p.Venue == nil {
		return nil, fmt.Errorf("engine requires a venue gateway")
	}
	return &Engine{
		token:    p.Token,
		catalog:  p.Catalog,
		venue:    p.Venue,
		exec:     NewExecutor(p.Venue, p.ConfirmAttempts, p.ConfirmBackoff),
		notifier: p.Notifier,
	}, nil
}

// Outcome is the result contract returned to the transport layer: 200 only on
// a confirmed execution, 400 for validation failures, policy no-actions and
// recognised venue rejections, and the venue's own status for transport
// failures.
type Outcome struct {
	StatusCode int
	Message    string
}

// Process handles one signal end to end.
func (e *Engine) Process(ctx context.Context, sig Signal) Outcome {
	// Token mismatch is rejected before anything touches the venue.
	if sig.Token != e.token {
		logger.Warnf("engine: signal with bad token trace=%s ticker=%s", sig.TraceID, sig.Ticker)
		return outcomeFromError(&ValidationError{Reason: "webhook token mismatch"})
	}
	side, err := ParseSide(sig.Side)
	if err != nil {
		return outcomeFromError(&ValidationError{Reason: err.Error()})
	}
	rule, ok := e.catalog.Lookup(sig.Ticker)
	if !ok {
		return outcomeFromError(&ValidationError{Reason: fmt.Sprintf("ticker %q not recognised", sig.Ticker)})
	}

	// One reconciliation at a time per instrument.
	lock := e.instrumentLock(rule.DisplayName)
	lock.Lock()
	defer lock.Unlock()

	outcome, err := e.process(ctx, sig, side, rule)
	if err != nil {
		logger.Warnf("engine: trace=%s %s %s -> %v", sig.TraceID, rule.DisplayName, side, err)
		return outcomeFromError(err)
	}
	return outcome
}

func (e *Engine) process(ctx context.Context, sig Signal, side Side, rule instrument.Rule) (Outcome, error) {
	if _, err := e.venue.Authenticate(ctx); err != nil {
		return Outcome{}, &VenueFailed{StatusCode: exchange.TransportStatus(err), Err: err}
	}
	positions, err := e.venue.OpenPositions(ctx)
	if err != nil {
		return Outcome{}, &VenueFailed{StatusCode: exchange.TransportStatus(err), Err: err}
	}

	// Reuse an open position's contract when one exists; otherwise resolve a
	// fresh dated contract from the venue's market list.
	resolved := exchange.Resolved{}
	if pos := matchPosition(rule.DisplayName, positions); pos != nil {
		resolved.Epic, resolved.Expiry = pos.Epic, pos.Expiry
	} else {
		resolved, err = e.venue.ResolveInstrument(ctx, exchange.InstrumentQuery{
			SearchTerm:  rule.SearchTerm,
			DisplayName: rule.DisplayName,
			Class:       rule.Class,
		})
		if err != nil {
			return Outcome{}, &VenueFailed{StatusCode: exchange.TransportStatus(err), Err: err}
		}
	}
	details, snap, err := e.venue.MarketDetails(ctx, resolved.Epic)
	if err != nil {
		return Outcome{}, &VenueFailed{StatusCode: exchange.TransportStatus(err), Err: err}
	}

	currency := rule.CurrencyOverride
	if currency == "" {
		if len(details.Currencies) == 0 {
			return Outcome{}, &VenueFailed{Err: fmt.Errorf("venue reported no dealing currency for %s", resolved.Epic)}
		}
		currency = details.Currencies[0]
	}
	oc := OrderContext{
		Epic:     resolved.Epic,
		Expiry:   resolved.Expiry,
		Currency: currency,
		Size:     rule.SizeMultiplier * details.MinDealSize,
	}
	lv := ComputeLevels(rule, side.Direction(), snap)

	decision := Reconcile(side, rule, positions, oc, lv)
	logger.Infof("engine: trace=%s %s %s -> %s", sig.TraceID, rule.DisplayName, side, decision.Kind)
	switch decision.Kind {
	case DecisionReject:
		return Outcome{}, &ValidationError{Reason: decision.Reason}
	case DecisionNoAction:
		if decision.Duplicate && rule.OnDuplicate == instrument.DuplicateSuccess {
			return Outcome{StatusCode: http.StatusOK, Message: decision.Reason}, nil
		}
		return Outcome{}, &PolicyNoAction{Reason: decision.Reason}
	}

	result, err := e.exec.Execute(ctx, decision)
	if err != nil {
		e.notifyFailure(rule, side, err)
		return Outcome{}, err
	}
	msg := successMessage(rule, side, decision, result)
	e.notify(msg)
	return Outcome{StatusCode: http.StatusOK, Message: msg}, nil
}

func successMessage(rule instrument.Rule, side Side, d Decision, res ExecutionResult) string {
	switch d.Kind {
	case DecisionCloseOnly:
		return fmt.Sprintf("%s position closed successfully.", rule.DisplayName)
	case DecisionCloseThenOpen:
		return fmt.Sprintf("%s position flipped to %s successfully.", rule.DisplayName, side)
	default:
		return fmt.Sprintf("%s %s position opened successfully.", rule.DisplayName, side)
	}
}

func (e *Engine) instrumentLock(displayName string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	if e.locks == nil {
		e.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := e.locks[displayName]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[displayName] = lock
	}
	return lock
}

func (e *Engine) notify(text string) {
	if e.notifier == nil {
		return
	}
	go func() {
		if err := e.notifier.SendText(text); err != nil {
			logger.Warnf("engine: notification failed: %v", err)
		}
	}()
}

func (e *Engine) notifyFailure(rule instrument.Rule, side Side, err error) {
	var pf *PartialFailure
	if errors.As(err, &pf) {
		// The account is flat where the caller expected a position; this is
		// the one failure worth waking somebody up for.
		e.notify(fmt.Sprintf("ATTENTION %s: %v", rule.DisplayName, pf))
	}
}

// outcomeFromError maps the engine error taxonomy onto the result contract.
func outcomeFromError(err error) Outcome {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return Outcome{StatusCode: http.StatusBadRequest, Message: ve.Reason}
	}
	var pe *PolicyNoAction
	if errors.As(err, &pe) {
		return Outcome{StatusCode: http.StatusBadRequest, Message: pe.Reason}
	}
	var pf *PartialFailure
	if errors.As(err, &pf) {
		inner := outcomeFromError(pf.Err)
		return Outcome{StatusCode: inner.StatusCode, Message: pf.Error()}
	}
	var vr *VenueRejected
	if errors.As(err, &vr) {
		if vr.MarketClosed {
			return Outcome{StatusCode: http.StatusBadRequest, Message: "Market offline."}
		}
		return Outcome{StatusCode: http.StatusBadRequest, Message: vr.Error()}
	}
	var vf *VenueFailed
	if errors.As(err, &vf) {
		status := vf.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		return Outcome{StatusCode: status, Message: vf.Error()}
	}
	return Outcome{StatusCode: http.StatusInternalServerError, Message: err.Error()}
}
