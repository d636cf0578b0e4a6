// Package gigachat backs llm.Generator with Sber GigaChat through gigago.
package gigachat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/llm"
)

type Config struct {
	APIKey   string // base64 authorization key
	Model    string // default "GigaChat"
	Scope    string // GIGACHAT_API_PERS | GIGACHAT_API_B2B | GIGACHAT_API_CORP
	Insecure bool   // skip TLS verification (Sber root CA is often missing)
}

type Client struct {
	cfg    Config
	client *gigago.Client
	log    *zap.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = "GigaChat"
	}
	opts := []gigago.Option{}
	if cfg.Scope != "" {
		opts = append(opts, gigago.WithCustomScope(cfg.Scope))
	}
	if cfg.Insecure {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("llm.gigachat.tls_verification_disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gigachat client: %w", err)
	}
	return &Client{cfg: cfg, client: client, log: logger.Named("gigachat")}, nil
}

func (c *Client) Model() string { return c.cfg.Model }

// GenerateJSON sends a single user message carrying instructions, schema and
// document text. GigaChat has no JSON mode, so the reply may be fenced;
// llm.Structured strips that.
func (c *Client) GenerateJSON(ctx context.Context, p llm.Prompt, s llm.Schema) ([]byte, error) {
	start := time.Now()

	model := c.client.GenerativeModel(c.cfg.Model)
	model.SystemInstruction = p.System
	model.Temperature = 0.1

	resp, err := model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: userMessage(p, s)},
	})
	if err != nil {
		return nil, fmt.Errorf("gigachat generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from gigachat")
	}

	c.log.Debug("llm.gigachat.ok",
		zap.String("prompt", p.Name),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return []byte(strings.TrimSpace(resp.Choices[0].Message.Content)), nil
}

func userMessage(p llm.Prompt, s llm.Schema) string {
	schema, _ := json.Marshal(s.Definition)
	var b strings.Builder
	b.WriteString(p.User)
	b.WriteString("\n\nJSON Schema:\n")
	b.Write(schema)
	b.WriteString("\n\nReturn ONLY JSON that matches the schema, without markdown.")
	return b.String()
}

func (c *Client) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
