package webhookhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"igbridge/internal/engine"
	"igbridge/internal/instrument"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type stubProcessor struct {
	last    engine.Signal
	outcome engine.Outcome
}

func (s *stubProcessor) Process(_ context.Context, sig engine.Signal) engine.Outcome {
	s.last = sig
	return s.outcome
}

func newTestServer(t *testing.T, proc *stubProcessor) *Server {
	t.Helper()
	catalog, err := instrument.NewCatalog(instrument.DefaultRules())
	require.NoError(t, err)
	srv, err := NewServer(ServerConfig{Processor: proc, Instruments: catalog})
	require.NoError(t, err)
	return srv
}

func postAlert(srv *Server, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWebhookParsesAlert(t *testing.T) {
	proc := &stubProcessor{outcome: engine.Outcome{StatusCode: http.StatusOK, Message: "done"}}
	srv := newTestServer(t, proc)

	rec := postAlert(srv, `{"token":"secret","ticker":"UKOIL","side":"BUY"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "secret", proc.last.Token)
	assert.Equal(t, "UKOIL", proc.last.Ticker)
	assert.Equal(t, "BUY", proc.last.Side)
	assert.NotEmpty(t, proc.last.TraceID)
	assert.Equal(t, "done", gjson.Get(rec.Body.String(), "message").String())
	assert.NotEmpty(t, gjson.Get(rec.Body.String(), "trace_id").String())
}

func TestWebhookAcceptsAliasKeys(t *testing.T) {
	proc := &stubProcessor{outcome: engine.Outcome{StatusCode: http.StatusOK}}
	srv := newTestServer(t, proc)

	postAlert(srv, `{"auth_token":"secret","symbol":"DAX","action":"sell"}`)
	assert.Equal(t, "secret", proc.last.Token)
	assert.Equal(t, "DAX", proc.last.Ticker)
	assert.Equal(t, "sell", proc.last.Side)
}

func TestWebhookRejectsNonJSONBody(t *testing.T) {
	proc := &stubProcessor{}
	srv := newTestServer(t, proc)

	rec := postAlert(srv, "BUY UKOIL now!!")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, proc.last.TraceID, "processor must not run for unparseable bodies")
}

func TestWebhookPropagatesEngineStatus(t *testing.T) {
	proc := &stubProcessor{outcome: engine.Outcome{StatusCode: http.StatusBadGateway, Message: "order placement failure"}}
	srv := newTestServer(t, proc)

	rec := postAlert(srv, `{"token":"x","ticker":"UKOIL","side":"BUY"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "order placement failure", gjson.Get(rec.Body.String(), "error").String())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &stubProcessor{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInstrumentsEndpointListsCatalog(t *testing.T) {
	srv := newTestServer(t, &stubProcessor{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/instruments", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	names := gjson.Get(rec.Body.String(), "instruments.#.display_name")
	var got []string
	for _, n := range names.Array() {
		got = append(got, n.String())
	}
	assert.Contains(t, got, "Oil - Brent Crude")
	assert.Contains(t, got, "Germany 30")
}
