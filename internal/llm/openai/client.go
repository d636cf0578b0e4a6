package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/llm"
)

// GenerateJSON implements llm.Generator using text-only chat/completions in
// JSON mode. The schema travels as a system message; validation happens in llm.Structured.
func (c *Client) GenerateJSON(ctx context.Context, p llm.Prompt, s llm.Schema) ([]byte, error) {
	start := time.Now()

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": p.System},
			{"role": "user", "content": p.User + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(s.Definition)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, err := llm.PostJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		fields := []zap.Field{
			zap.String("prompt", p.Name),
			zap.Error(err),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		}
		var he *llm.HTTPError
		if errors.As(err, &he) {
			fields = append(fields, zap.Int("status", he.Status), zap.Bool("retryable", he.Retryable()))
		}
		c.log.Error("llm.openai.http_error", fields...)
		return nil, fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("no choices in openai response")
	}

	c.log.Debug("llm.openai.ok",
		zap.String("prompt", p.Name),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return []byte(strings.TrimSpace(cc.Choices[0].Message.Content)), nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
