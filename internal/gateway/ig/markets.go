package ig

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"igbridge/internal/gateway/exchange"
	"igbridge/internal/pkg/convert"
)

type marketSearchResponse struct {
	Markets []struct {
		Epic           string `json:"epic"`
		Expiry         string `json:"expiry"`
		InstrumentName string `json:"instrumentName"`
		InstrumentType string `json:"instrumentType"`
	} `json:"markets"`
}

// dailyFundedExpiry marks IG's rolling daily funded bets, which the bridge
// never trades; resolution skips them in favour of dated contracts.
const dailyFundedExpiry = "DFB"

// ResolveInstrument searches the venue's market list for the dated contract
// matching a catalog rule: instrument name prefix plus instrument class, with
// DFB entries skipped. Venues decorate instrument names (appending expiry and
// the like), hence the prefix comparison.
func (c *Client) ResolveInstrument(ctx context.Context, q exchange.InstrumentQuery) (exchange.Resolved, error) {
	path := "/markets?searchTerm=" + strings.TrimSpace(q.SearchTerm)
	var resp marketSearchResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp, nil); err != nil {
		return exchange.Resolved{}, err
	}
	name := q.DisplayName
	for _, m := range resp.Markets {
		if m.Expiry == dailyFundedExpiry {
			continue
		}
		if !hasNamePrefix(m.InstrumentName, name) {
			continue
		}
		if q.Class != "" && m.InstrumentType != q.Class {
			continue
		}
		return exchange.Resolved{Epic: m.Epic, Expiry: m.Expiry}, nil
	}
	return exchange.Resolved{}, fmt.Errorf("no dealable market found for %q (search %q)", q.DisplayName, q.SearchTerm)
}

type marketDetailsResponse struct {
	Instrument struct {
		LotSize    float64 `json:"lotSize"`
		Currencies []struct {
			Name string `json:"name"`
		} `json:"currencies"`
	} `json:"instrument"`
	DealingRules struct {
		MinDealSize struct {
			Value any    `json:"value"`
			Unit  string `json:"unit"`
		} `json:"minDealSize"`
	} `json:"dealingRules"`
	Snapshot struct {
		Bid   float64 `json:"bid"`
		Offer float64 `json:"offer"`
	} `json:"snapshot"`
}

// MarketDetails fetches dealing metadata and a fresh price snapshot for a
// contract. The minimum deal size is clamped to at least 1 because sizing
// multiplies it; the venue occasionally reports fractional minimums.
func (c *Client) MarketDetails(ctx context.Context, epic string) (exchange.Details, exchange.Snapshot, error) {
	epic = strings.TrimSpace(epic)
	if epic == "" {
		return exchange.Details{}, exchange.Snapshot{}, fmt.Errorf("epic cannot be empty")
	}
	var resp marketDetailsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/markets/"+epic, nil, &resp, nil); err != nil {
		return exchange.Details{}, exchange.Snapshot{}, err
	}
	minSize := convert.ToFloat64(resp.DealingRules.MinDealSize.Value)
	if minSize < 1 {
		minSize = 1
	}
	currencies := make([]string, 0, len(resp.Instrument.Currencies))
	for _, cur := range resp.Instrument.Currencies {
		if name := strings.TrimSpace(cur.Name); name != "" {
			currencies = append(currencies, name)
		}
	}
	details := exchange.Details{
		Epic:        epic,
		LotSize:     resp.Instrument.LotSize,
		MinDealSize: minSize,
		SizeUnit:    resp.DealingRules.MinDealSize.Unit,
		Currencies:  currencies,
	}
	snap := exchange.Snapshot{Bid: resp.Snapshot.Bid, Offer: resp.Snapshot.Offer}
	return details, snap, nil
}

// hasNamePrefix compares only the leading len(name) characters of the venue's
// reported instrument name.
func hasNamePrefix(instrumentName, name string) bool {
	if name == "" || len(instrumentName) < len(name) {
		return false
	}
	return instrumentName[:len(name)] == name
}
