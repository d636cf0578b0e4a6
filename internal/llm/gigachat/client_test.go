package gigachat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/price-intel/internal/llm"
)

func TestUserMessage_EmbedsSchema(t *testing.T) {
	msg := userMessage(
		llm.Prompt{Name: "offer", System: "sys", User: "Angebot 2024"},
		llm.Schema{Name: "offer", Definition: map[string]any{"type": "object"}},
	)

	assert.True(t, strings.HasPrefix(msg, "Angebot 2024\n\nJSON Schema:\n"))
	assert.Contains(t, msg, `{"type":"object"}`)
	assert.True(t, strings.HasSuffix(msg, "without markdown."))
}
