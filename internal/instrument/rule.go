// Package instrument holds the static per-instrument trading rules the engine
// consults when turning a webhook signal into venue orders. Rules are keyed by
// the venue's display name; multiple ticker codes may alias one instrument.
package instrument

import (
	"fmt"
	"strings"
)

// Policy selects how signals interact with an existing position.
type Policy string

const (
	// PolicyFlipOnOpposite treats BUY/SELL as the full side vocabulary: an
	// opposite-direction signal closes the open position and opens a new one.
	PolicyFlipOnOpposite Policy = "flip_on_opposite"
	// PolicyExplicitClose requires CLOSE_BUY/CLOSE_SELL to exit; BUY/SELL only
	// ever opens, and only when flat.
	PolicyExplicitClose Policy = "explicit_close"
)

// DuplicateHandling decides the response when a signal arrives for a direction
// that is already positioned: reject with 400, or treat the no-op as success.
type DuplicateHandling string

const (
	DuplicateReject  DuplicateHandling = "reject"
	DuplicateSuccess DuplicateHandling = "success"
)

// Rule is the full trading configuration for one instrument. Offsets are in
// points; PointSize converts points to price units (0.01 for instruments
// quoted in hundredths, 1 for index points).
type Rule struct {
	DisplayName      string            `toml:"display_name" yaml:"display_name"`
	SearchTerm       string            `toml:"search_term" yaml:"search_term"`
	Class            string            `toml:"class" yaml:"class"`
	SizeMultiplier   float64           `toml:"size_multiplier" yaml:"size_multiplier"`
	StopOffset       float64           `toml:"stop_offset" yaml:"stop_offset"`
	LimitOffset      float64           `toml:"limit_offset" yaml:"limit_offset"`
	PriceAdjust      float64           `toml:"price_adjust" yaml:"price_adjust"`
	PointSize        float64           `toml:"point_size" yaml:"point_size"`
	CurrencyOverride string            `toml:"currency" yaml:"currency"`
	Policy           Policy            `toml:"policy" yaml:"policy"`
	OnDuplicate      DuplicateHandling `toml:"on_duplicate" yaml:"on_duplicate"`
	Tickers          []string          `toml:"tickers" yaml:"tickers"`
}

// Validate checks the rule is self-consistent.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.DisplayName) == "" {
		return fmt.Errorf("instrument rule requires display_name")
	}
	if strings.TrimSpace(r.SearchTerm) == "" {
		return fmt.Errorf("instrument %q requires search_term", r.DisplayName)
	}
	if len(r.Tickers) == 0 {
		return fmt.Errorf("instrument %q requires at least one ticker", r.DisplayName)
	}
	if r.SizeMultiplier <= 0 {
		return fmt.Errorf("instrument %q requires size_multiplier > 0", r.DisplayName)
	}
	if r.PointSize <= 0 {
		return fmt.Errorf("instrument %q requires point_size > 0", r.DisplayName)
	}
	switch r.Policy {
	case PolicyFlipOnOpposite, PolicyExplicitClose:
	default:
		return fmt.Errorf("instrument %q has unknown policy %q", r.DisplayName, r.Policy)
	}
	switch r.OnDuplicate {
	case "", DuplicateReject, DuplicateSuccess:
	default:
		return fmt.Errorf("instrument %q has unknown on_duplicate %q", r.DisplayName, r.OnDuplicate)
	}
	return nil
}

// normalized fills optional fields with their defaults.
func (r Rule) normalized() Rule {
	if r.OnDuplicate == "" {
		r.OnDuplicate = DuplicateReject
	}
	return r
}
