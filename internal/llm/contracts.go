package llm

import "context"

// Prompt is one generation request. Name identifies it in logs.
type Prompt struct {
	Name   string
	System string
	User   string
}

// Schema is a JSON Schema (draft 2020-12 subset) the output must satisfy.
type Schema struct {
	Name       string
	Definition map[string]any
}

// Generator is a model backend. It returns the raw JSON text the model produced;
// it does not validate it.
type Generator interface {
	GenerateJSON(ctx context.Context, p Prompt, s Schema) ([]byte, error)
	Model() string
}

// StructuredGenerator returns data that validates against s, or an error. It
// never returns partially decoded data.
type StructuredGenerator[T any] interface {
	Generate(ctx context.Context, p Prompt, s Schema) (T, error)
}
