package ig

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"igbridge/internal/gateway/exchange"
)

const otcPath = "/positions/otc"

// openOrderPayload mirrors IG's OTC position creation schema. Level pointers
// marshal to JSON null when no level is attached, which the venue requires.
type openOrderPayload struct {
	Epic           string   `json:"epic"`
	Expiry         string   `json:"expiry"`
	Direction      string   `json:"direction"`
	Size           float64  `json:"size"`
	OrderType      string   `json:"orderType"`
	Level          *float64 `json:"level"`
	GuaranteedStop bool     `json:"guaranteedStop"`
	StopLevel      *float64 `json:"stopLevel"`
	StopDistance   *float64 `json:"stopDistance"`
	ForceOpen      bool     `json:"forceOpen"`
	LimitLevel     *float64 `json:"limitLevel"`
	LimitDistance  *float64 `json:"limitDistance"`
	QuoteID        *string  `json:"quoteId"`
	CurrencyCode   string   `json:"currencyCode"`
}

type closeOrderPayload struct {
	DealID      string   `json:"dealId"`
	Epic        *string  `json:"epic"`
	Expiry      string   `json:"expiry"`
	Direction   string   `json:"direction"`
	Size        float64  `json:"size"`
	Level       *float64 `json:"level"`
	OrderType   string   `json:"orderType"`
	TimeInForce *string  `json:"timeInForce"`
	QuoteID     *string  `json:"quoteId"`
}

type dealReferenceResponse struct {
	DealReference string `json:"dealReference"`
}

// SubmitOrder places an opening market order and returns the deal reference
// used for confirmation polling.
func (c *Client) SubmitOrder(ctx context.Context, spec exchange.OrderSpec) (exchange.DealRef, error) {
	payload := openOrderPayload{
		Epic:         spec.Epic,
		Expiry:       spec.Expiry,
		Direction:    string(spec.Direction),
		Size:         spec.Size,
		OrderType:    "MARKET",
		StopLevel:    spec.StopLevel,
		LimitLevel:   spec.LimitLevel,
		ForceOpen:    true,
		CurrencyCode: spec.CurrencyCode,
	}
	var resp dealReferenceResponse
	if err := c.doRequest(ctx, http.MethodPost, otcPath, payload, &resp, nil); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.DealReference) == "" {
		return "", fmt.Errorf("venue returned no deal reference")
	}
	return exchange.DealRef(resp.DealReference), nil
}

// ClosePosition places a closing market order against an open deal. IG
// tunnels position deletion through POST with a _method override header.
func (c *Client) ClosePosition(ctx context.Context, spec exchange.CloseSpec) (exchange.DealRef, error) {
	payload := closeOrderPayload{
		DealID:    spec.DealID,
		Expiry:    spec.Expiry,
		Direction: string(spec.Direction),
		Size:      spec.Size,
		OrderType: "MARKET",
	}
	var resp dealReferenceResponse
	headers := map[string]string{"_method": "DELETE"}
	if err := c.doRequest(ctx, http.MethodPost, otcPath, payload, &resp, headers); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.DealReference) == "" {
		return "", fmt.Errorf("venue returned no deal reference")
	}
	return exchange.DealRef(resp.DealReference), nil
}

type confirmationResponse struct {
	DealStatus string  `json:"dealStatus"`
	Reason     string  `json:"reason"`
	DealID     string  `json:"dealId"`
	Level      float64 `json:"level"`
}

// Confirmation polls the venue's verdict for a submitted deal reference.
func (c *Client) Confirmation(ctx context.Context, ref exchange.DealRef) (exchange.Confirmation, error) {
	if strings.TrimSpace(string(ref)) == "" {
		return exchange.Confirmation{}, fmt.Errorf("deal reference cannot be empty")
	}
	var resp confirmationResponse
	if err := c.doRequest(ctx, http.MethodGet, "/confirms/"+string(ref), nil, &resp, nil); err != nil {
		return exchange.Confirmation{}, err
	}
	return exchange.Confirmation{
		DealStatus: strings.ToUpper(strings.TrimSpace(resp.DealStatus)),
		Reason:     strings.ToUpper(strings.TrimSpace(resp.Reason)),
		DealID:     resp.DealID,
		Level:      resp.Level,
	}, nil
}
