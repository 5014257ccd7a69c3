package notifier

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	msg := StructuredMessage{
		Icon:  "📡",
		Title: "igbridge execution",
		Sections: []MessageSection{
			{Title: "Deal", Lines: []string{"Oil - Brent Crude BUY position opened successfully.", ""}},
		},
		Footer:    "demo account",
		Timestamp: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	body := msg.RenderMarkdown()
	assert.True(t, strings.HasPrefix(body, "📡 igbridge execution"))
	assert.Contains(t, body, "- Oil - Brent Crude BUY position opened successfully.")
	assert.Contains(t, body, "demo account")
	assert.Contains(t, body, "2026-06-01")
	assert.NotContains(t, body, "\n- \n", "blank lines are dropped")
}

func TestRenderMarkdownTruncatesLongBodies(t *testing.T) {
	msg := StructuredMessage{
		Title:    "t",
		Sections: []MessageSection{{Lines: []string{strings.Repeat("x", 5000)}}},
	}
	body := msg.RenderMarkdown()
	assert.LessOrEqual(t, len(body), maxStructuredMessageLen+3)
	assert.True(t, strings.HasSuffix(body, "..."))
}

func TestRenderMarkdownEscapesCodeFences(t *testing.T) {
	msg := StructuredMessage{Sections: []MessageSection{{Lines: []string{"```injection"}}}}
	assert.Contains(t, msg.RenderMarkdown(), "'''injection")
}
