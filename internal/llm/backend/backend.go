// Package backend selects the configured generation provider.
package backend

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/llm"
	"github.com/joseph-ayodele/price-intel/internal/llm/gigachat"
	"github.com/joseph-ayodele/price-intel/internal/llm/openai"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns the generator for cfg.Provider and a closer for its resources.
func New(ctx context.Context, cfg common.LLMConfig, logger *zap.Logger) (llm.Generator, io.Closer, error) {
	switch cfg.Provider {
	case "", "openai":
		c := openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		return c, nopCloser{}, nil
	case "gigachat":
		model := cfg.Model
		if model == "" || model == "gpt-4o-mini" {
			model = "GigaChat"
		}
		c, err := gigachat.NewClient(ctx, gigachat.Config{
			APIKey:   cfg.APIKey,
			Model:    model,
			Scope:    cfg.Scope,
			Insecure: cfg.Insecure,
		}, logger)
		if err != nil {
			return nil, nil, common.NewDependencyError("gigachat unavailable", err)
		}
		return c, c, nil
	default:
		return nil, nil, common.NewValidationError(fmt.Sprintf("unknown llm provider %q", cfg.Provider), common.ErrInvalidInput)
	}
}
