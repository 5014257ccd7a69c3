package instrument

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Catalog maps ticker codes to instrument rules. Safe for concurrent use;
// Replace swaps the whole rule set atomically so a hot reload never exposes a
// half-updated view.
type Catalog struct {
	mu      sync.RWMutex
	rules   map[string]Rule   // keyed by display name
	aliases map[string]string // upper-cased ticker -> display name
}

// NewCatalog builds a catalog from the given rules.
func NewCatalog(rules []Rule) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(rules); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace installs a new rule set, validating every rule first.
func (c *Catalog) Replace(rules []Rule) error {
	byName := make(map[string]Rule, len(rules))
	aliases := make(map[string]string)
	for _, r := range rules {
		r = r.normalized()
		if err := r.Validate(); err != nil {
			return err
		}
		if _, ok := byName[r.DisplayName]; ok {
			return fmt.Errorf("duplicate instrument rule for %q", r.DisplayName)
		}
		byName[r.DisplayName] = r
		for _, t := range r.Tickers {
			key := strings.ToUpper(strings.TrimSpace(t))
			if key == "" {
				continue
			}
			if prev, ok := aliases[key]; ok && prev != r.DisplayName {
				return fmt.Errorf("ticker %q claimed by both %q and %q", key, prev, r.DisplayName)
			}
			aliases[key] = r.DisplayName
		}
	}
	c.mu.Lock()
	c.rules = byName
	c.aliases = aliases
	c.mu.Unlock()
	return nil
}

// Lookup resolves a raw ticker code to its instrument rule. Matching is
// case-insensitive because alert sources disagree on ticker casing.
func (c *Catalog) Lookup(ticker string) (Rule, bool) {
	key := strings.ToUpper(strings.TrimSpace(ticker))
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.aliases[key]
	if !ok {
		return Rule{}, false
	}
	rule, ok := c.rules[name]
	return rule, ok
}

// Rules returns the rule set sorted by display name.
func (c *Catalog) Rules() []Rule {
	c.mu.RLock()
	out := make([]Rule, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out
}

// DefaultRules is the built-in catalog covering the instruments the bridge has
// traded historically. A catalog file, when configured, replaces this set.
func DefaultRules() []Rule {
	return []Rule{
		{
			DisplayName:      "Oil - Brent Crude",
			SearchTerm:       "brent",
			Class:            "COMMODITIES",
			SizeMultiplier:   1,
			StopOffset:       150,
			LimitOffset:      25,
			PriceAdjust:      2.8,
			PointSize:        0.01,
			CurrencyOverride: "GBP",
			Policy:           PolicyFlipOnOpposite,
			OnDuplicate:      DuplicateReject,
			Tickers:          []string{"UKOIL", "CFDs on Brent Crude Oil"},
		},
		{
			DisplayName:    "Germany 30",
			SearchTerm:     "dax",
			Class:          "INDICES",
			SizeMultiplier: 1,
			StopOffset:     150,
			LimitOffset:    50,
			PriceAdjust:    4,
			PointSize:      1,
			Policy:         PolicyFlipOnOpposite,
			OnDuplicate:    DuplicateReject,
			Tickers:        []string{"DE30EUR", "DAX"},
		},
		{
			DisplayName:      "Chicago Wheat",
			SearchTerm:       "chicago%20wheat",
			Class:            "COMMODITIES",
			SizeMultiplier:   15,
			StopOffset:       20,
			LimitOffset:      0,
			PriceAdjust:      0,
			PointSize:        1,
			CurrencyOverride: "GBP",
			Policy:           PolicyExplicitClose,
			OnDuplicate:      DuplicateReject,
			Tickers:          []string{"WHTUSD", "WHEATUSD"},
		},
	}
}
