package instrument

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
instruments:
  - display_name: Oil - Brent Crude
    search_term: brent
    class: COMMODITIES
    stop_offset: 150
    limit_offset: 25
    price_adjust: 2.8
    point_size: 0.01
    currency: GBP
    policy: flip_on_opposite
    tickers: [UKOIL]
`

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(catalogYAML))
	require.NoError(t, err)
	require.Len(t, rules, 1)
	rule := rules[0]
	assert.Equal(t, "Oil - Brent Crude", rule.DisplayName)
	assert.Equal(t, PolicyFlipOnOpposite, rule.Policy)
	assert.Equal(t, 0.01, rule.PointSize)
	assert.Equal(t, 1.0, rule.SizeMultiplier, "size_multiplier defaults to 1")
}

func TestParseRulesRejectsUnknownField(t *testing.T) {
	_, err := ParseRules([]byte(`
instruments:
  - display_name: X
    search_term: x
    policy: flip_on_opposite
    tickers: [X]
    stop_ofset: 20
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}

func TestParseRulesRejectsBadPolicy(t *testing.T) {
	_, err := ParseRules([]byte(`
instruments:
  - display_name: X
    search_term: x
    policy: invert
    tickers: [X]
`))
	require.Error(t, err)
}

func TestParseRulesRejectsNonYAML(t *testing.T) {
	_, err := ParseRules([]byte("instruments: ["))
	require.Error(t, err)
}

func TestNewRegistryLoadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "instruments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o644))

	registry, err := NewRegistry(path)
	require.NoError(t, err)

	rule, ok := registry.Catalog().Lookup("UKOIL")
	require.True(t, ok)
	assert.Equal(t, "Oil - Brent Crude", rule.DisplayName)
}

func TestNewRegistryRejectsMissingFile(t *testing.T) {
	_, err := NewRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
