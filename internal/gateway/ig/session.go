package ig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"igbridge/internal/gateway/exchange"
	"igbridge/internal/logger"
)

type sessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Authenticate opens a dealing session and caches the returned tokens. The
// first session attempt against IG sometimes yields empty tokens, so a failed
// first handshake is retried once after a short pause before giving up.
func (c *Client) Authenticate(ctx context.Context) (exchange.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Valid() {
		return c.session, nil
	}
	sess, err := c.openSession(ctx)
	if err == nil && !sess.Valid() {
		logger.Warnf("ig: first session handshake returned no tokens, retrying")
		select {
		case <-ctx.Done():
			return exchange.Session{}, ctx.Err()
		case <-time.After(time.Second):
		}
		sess, err = c.openSession(ctx)
	}
	if err != nil {
		return exchange.Session{}, err
	}
	c.session = sess
	return sess, nil
}

func (c *Client) openSession(ctx context.Context) (exchange.Session, error) {
	endpoint, err := c.resolveEndpoint("/session")
	if err != nil {
		return exchange.Session{}, err
	}
	sess := exchange.Session{}
	headers, err := c.sendForHeaders(ctx, endpoint, sessionRequest{Identifier: c.identifier, Password: c.password})
	if err != nil {
		return exchange.Session{}, err
	}
	sess.CST = headers.Get("CST")
	sess.SecurityToken = headers.Get("X-SECURITY-TOKEN")
	sess.ExpiresAt = time.Now().Add(c.sessionTTL)
	return sess, nil
}

// ensureSession returns a valid session, authenticating if the cached one has
// expired.
func (c *Client) ensureSession(ctx context.Context) (exchange.Session, error) {
	c.mu.Lock()
	if c.session.Valid() {
		sess := c.session
		c.mu.Unlock()
		return sess, nil
	}
	c.mu.Unlock()
	return c.Authenticate(ctx)
}

// sendForHeaders posts a payload and returns the response headers; the
// session endpoint carries its tokens in headers rather than the body.
func (c *Client) sendForHeaders(ctx context.Context, endpoint fmt.Stringer, payload any) (http.Header, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serializing request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request failed: %w", err)
	}
	req.Header.Set("X-IG-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json; charset=UTF-8")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling venue failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &exchange.TransportError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	io.Copy(io.Discard, resp.Body)
	return resp.Header, nil
}
