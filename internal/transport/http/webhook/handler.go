package webhookhttp

import (
	"io"
	"net/http"
	"strings"

	"igbridge/internal/engine"
	"igbridge/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// TradingView alert bodies are author-written templates, so the parse is
// deliberately tolerant: any of the accepted key spellings works, and numeric
// tickers arrive as strings.
const maxAlertBody = 64 * 1024

type handler struct {
	processor   SignalProcessor
	instruments InstrumentLister
}

func (h *handler) handleAlert(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAlertBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}
	if !gjson.ValidBytes(body) {
		logger.Warnf("[api] alert rejected ip=%s: body is not valid JSON", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is not valid JSON"})
		return
	}
	sig := parseAlert(body)
	sig.TraceID = uuid.NewString()

	outcome := h.processor.Process(c.Request.Context(), sig)
	logger.Infof("[api] alert ip=%s trace=%s ticker=%s side=%s status=%d",
		c.ClientIP(), sig.TraceID, sig.Ticker, strings.ToUpper(strings.TrimSpace(sig.Side)), outcome.StatusCode)
	if outcome.StatusCode >= http.StatusBadRequest {
		c.JSON(outcome.StatusCode, gin.H{"error": outcome.Message, "trace_id": sig.TraceID})
		return
	}
	c.JSON(outcome.StatusCode, gin.H{"message": outcome.Message, "trace_id": sig.TraceID})
}

// parseAlert extracts the signal fields, accepting the key aliases alert
// templates commonly use.
func parseAlert(body []byte) engine.Signal {
	pick := func(keys ...string) string {
		for _, key := range keys {
			if v := gjson.GetBytes(body, key); v.Exists() {
				return strings.TrimSpace(v.String())
			}
		}
		return ""
	}
	return engine.Signal{
		Token:  pick("token", "auth_token"),
		Ticker: pick("ticker", "symbol", "instrument"),
		Side:   pick("side", "action", "order"),
	}
}

func (h *handler) handleInstruments(c *gin.Context) {
	if h.instruments == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "instrument catalog unavailable"})
		return
	}
	rules := h.instruments.Rules()
	views := make([]ruleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, ruleView{
			DisplayName: r.DisplayName,
			SearchTerm:  r.SearchTerm,
			Class:       r.Class,
			Policy:      string(r.Policy),
			Tickers:     r.Tickers,
		})
	}
	c.JSON(http.StatusOK, gin.H{"instruments": views})
}

// ruleView is the wire shape of one configured instrument. Credentials and
// sizing internals stay out of the read API.
type ruleView struct {
	DisplayName string   `json:"display_name"`
	SearchTerm  string   `json:"search_term"`
	Class       string   `json:"class"`
	Policy      string   `json:"policy"`
	Tickers     []string `json:"tickers"`
}
