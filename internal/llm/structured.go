package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/common"
)

// Structured adapts a Generator into a StructuredGenerator[T]: strict schema
// validation first, then a lenient normalization pass and one re-validation.
type Structured[T any] struct {
	backend Generator
	logger  *zap.Logger
	lenient bool
}

// NewStructured wraps backend. Lenient normalization is on by default.
func NewStructured[T any](backend Generator, logger *zap.Logger) *Structured[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Structured[T]{backend: backend, logger: logger, lenient: true}
}

// Strict disables the lenient normalization pass.
func (s *Structured[T]) Strict() *Structured[T] {
	s.lenient = false
	return s
}

func (s *Structured[T]) Generate(ctx context.Context, p Prompt, schema Schema) (T, error) {
	var zero T
	rid := uuid.New().String()
	start := time.Now()
	log := s.logger.With(
		zap.String("req_id", rid),
		zap.String("prompt", p.Name),
		zap.String("schema", schema.Name),
		zap.String("model", s.backend.Model()),
	)
	log.Info("llm.generate.start", zap.Int("user_chars", len(p.User)))

	raw, err := s.backend.GenerateJSON(ctx, p, schema)
	if err != nil {
		log.Error("llm.generate.backend_error", zap.Error(err), zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return zero, common.NewDependencyError("generation timed out", err)
		}
		var he *HTTPError
		if errors.As(err, &he) && he.Retryable() {
			return zero, common.NewDependencyError("generation backend is busy, retry later", err)
		}
		return zero, common.NewDependencyError("generation backend failed", err)
	}
	content := StripCodeFences(raw)

	if err := ValidateJSONAgainstSchema(schema.Definition, content); err != nil {
		if !s.lenient {
			log.Warn("llm.generate.schema_validation_failed", zap.Error(err), zap.ByteString("content", clip(content)))
			return zero, common.NewSchemaValidationError("output does not match schema "+schema.Name, err)
		}
		cleaned, changed, sErr := NormalizeToSchema(content, schema.Definition)
		if sErr != nil {
			log.Warn("llm.generate.sanitize_failed", zap.Error(sErr), zap.ByteString("content", clip(content)))
			return zero, common.NewSchemaValidationError("output is not a JSON object", sErr)
		}
		if vErr := ValidateJSONAgainstSchema(schema.Definition, cleaned); vErr != nil {
			log.Warn("llm.generate.schema_validation_failed", zap.Error(vErr), zap.ByteString("content", clip(content)))
			return zero, common.NewSchemaValidationError("output does not match schema "+schema.Name, vErr)
		}
		log.Warn("llm.generate.lenient_sanitize_applied", zap.Strings("changed", changed))
		content = cleaned
	}

	var out T
	if err := json.Unmarshal(content, &out); err != nil {
		log.Error("llm.generate.unmarshal_failed", zap.Error(err))
		return zero, common.NewSchemaValidationError("output cannot be decoded", err)
	}

	log.Info("llm.generate.ok",
		zap.Int("bytes", len(content)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return out, nil
}

func clip(b []byte) []byte {
	if len(b) > 2048 {
		return b[:2048]
	}
	return b
}
