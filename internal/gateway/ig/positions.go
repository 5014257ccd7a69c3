package ig

import (
	"context"
	"net/http"
	"strings"

	"igbridge/internal/gateway/exchange"
)

type positionsResponse struct {
	Positions []struct {
		Position struct {
			DealID    string  `json:"dealId"`
			Direction string  `json:"direction"`
			DealSize  float64 `json:"dealSize"`
		} `json:"position"`
		Market struct {
			InstrumentName string `json:"instrumentName"`
			Epic           string `json:"epic"`
			Expiry         string `json:"expiry"`
		} `json:"market"`
	} `json:"positions"`
}

// OpenPositions lists the account's open positions. Always queried fresh; the
// venue is the sole source of truth for what is currently open.
func (c *Client) OpenPositions(ctx context.Context) ([]exchange.Position, error) {
	var resp positionsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/positions", nil, &resp, nil); err != nil {
		return nil, err
	}
	if len(resp.Positions) == 0 {
		return nil, nil
	}
	out := make([]exchange.Position, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		out = append(out, exchange.Position{
			DealID:         p.Position.DealID,
			Direction:      exchange.Direction(strings.ToUpper(strings.TrimSpace(p.Position.Direction))),
			Size:           p.Position.DealSize,
			InstrumentName: p.Market.InstrumentName,
			Epic:           p.Market.Epic,
			Expiry:         p.Market.Expiry,
		})
	}
	return out, nil
}
