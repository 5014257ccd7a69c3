// Package ig implements exchange.VenueGateway against the IG dealing REST API.
package ig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"igbridge/internal/config"
	"igbridge/internal/gateway/exchange"
	"igbridge/internal/logger"
	"igbridge/internal/pkg/circuit"
	"igbridge/internal/pkg/text"

	"github.com/jpillora/backoff"
)

// Client wraps the IG dealing API interactions required by the bridge. It
// owns the session handshake and refreshes expired tokens transparently.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	apiKey     string
	identifier string
	password   string
	retryMax   int
	sessionTTL time.Duration
	breaker    *circuit.CircuitBreaker

	mu      sync.Mutex
	session exchange.Session
}

var _ exchange.VenueGateway = (*Client)(nil)

// NewClient constructs an IG client from configuration.
func NewClient(cfg config.IGConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL())
	if raw == "" {
		return nil, fmt.Errorf("ig api url cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing ig api url failed: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	retryMax := cfg.RetryMax
	if retryMax <= 0 {
		retryMax = 5
	}
	ttl := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     strings.TrimSpace(cfg.APIKey),
		identifier: strings.TrimSpace(cfg.Identifier),
		password:   cfg.Password,
		retryMax:   retryMax,
		sessionTTL: ttl,
		breaker:    circuit.NewCircuitBreaker("ig-dealing-api", 5, 30*time.Second),
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// doRequest performs an authenticated JSON request. Transient gateway errors
// (502/503/504) are retried with exponential backoff; any other non-success
// response surfaces as *exchange.TransportError.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any, out any, extra map[string]string) error {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}
	headers := map[string]string{
		"CST":              sess.CST,
		"X-SECURITY-TOKEN": sess.SecurityToken,
	}
	for k, v := range extra {
		headers[k] = v
	}
	return c.send(ctx, method, path, payload, out, headers)
}

func (c *Client) send(ctx context.Context, method, path string, payload any, out any, headers map[string]string) error {
	endpoint, err := c.resolveEndpoint(path)
	if err != nil {
		return err
	}
	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("serializing request failed: %w", err)
		}
	}

	if !c.breaker.Allow() {
		return fmt.Errorf("ig dealing api circuit open, refusing %s %s", method, path)
	}
	bo := &backoff.Backoff{Min: 250 * time.Millisecond, Max: 2 * time.Second, Factor: 2, Jitter: true}
	var lastErr error
	for attempt := 0; attempt < c.retryMax; attempt++ {
		if attempt > 0 {
			wait := bo.Duration()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
		if err != nil {
			return fmt.Errorf("building request failed: %w", err)
		}
		req.Header.Set("X-IG-API-KEY", c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json; charset=UTF-8")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.breaker.RecordFailure()
			lastErr = fmt.Errorf("calling venue failed: %w", err)
			continue
		}
		retry, err := c.consumeResponse(resp, out)
		if err == nil {
			c.breaker.RecordSuccess()
			return nil
		}
		lastErr = err
		if !retry {
			// Client-side rejections do not count against the breaker.
			if resp.StatusCode >= 500 {
				c.breaker.RecordFailure()
			}
			return err
		}
		c.breaker.RecordFailure()
		logger.Warnf("ig: transient venue error on %s %s (attempt %d/%d): %v", method, path, attempt+1, c.retryMax, err)
	}
	return lastErr
}

// consumeResponse drains resp and reports whether the error is retryable.
func (c *Client) consumeResponse(resp *http.Response, out any) (bool, error) {
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		te := &exchange.TransportError{StatusCode: resp.StatusCode, Body: text.Truncate(strings.TrimSpace(string(data)), 2048)}
		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true, te
		}
		return false, te
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decoding venue response failed: %w", err)
	}
	return false, nil
}

func (c *Client) resolveEndpoint(path string) (*url.URL, error) {
	if c.baseURL == nil {
		return nil, fmt.Errorf("ig api url not set")
	}
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = "/"
	}
	query := ""
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		query = trimmed[idx+1:]
		trimmed = trimmed[:idx]
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	base := *c.baseURL
	base.Path = strings.TrimSuffix(base.Path, "/") + trimmed
	base.RawPath = ""
	base.RawQuery = query
	base.Fragment = ""
	return &base, nil
}
