package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/price-intel/internal/common"
)

type fakeBackend struct {
	reply string
	err   error
	calls int
}

func (f *fakeBackend) GenerateJSON(context.Context, Prompt, Schema) ([]byte, error) {
	f.calls++
	return []byte(f.reply), f.err
}

func (f *fakeBackend) Model() string { return "fake" }

const validOffer = `{
  "title": "Angebot Elektro",
  "currency": "EUR",
  "positions": [
    {"description": "Steckdose setzen", "quantity": 3, "unit": "Stk", "unit_price": 45, "category": "labor", "confidence": 0.9}
  ]
}`

func TestStructured_ValidOutput(t *testing.T) {
	gen := NewStructured[OfferFields](&fakeBackend{reply: validOffer}, nil)

	out, err := gen.Generate(context.Background(), Prompt{Name: "t"}, OfferSchema())

	require.NoError(t, err)
	assert.Equal(t, "Angebot Elektro", out.Title)
	require.Len(t, out.Positions, 1)
	assert.Equal(t, 45.0, out.Positions[0].UnitPrice)
}

func TestStructured_StripsFences(t *testing.T) {
	gen := NewStructured[OfferFields](&fakeBackend{reply: "Here you go:\n```json\n" + validOffer + "\n```"}, nil)

	out, err := gen.Generate(context.Background(), Prompt{}, OfferSchema())

	require.NoError(t, err)
	assert.Equal(t, "EUR", out.Currency)
}

func TestStructured_LenientRepairsNumbersAndEnums(t *testing.T) {
	reply := `{
	  "title": "Angebot",
	  "currency": "EUR",
	  "date": "",
	  "notes": "unknown key",
	  "positions": [
	    {"description": "Kabel verlegen", "quantity": "12,5", "unit": "m", "unit_price": "8,40 €", "category": "Material", "confidence": 0.8}
	  ]
	}`
	gen := NewStructured[OfferFields](&fakeBackend{reply: reply}, nil)

	out, err := gen.Generate(context.Background(), Prompt{}, OfferSchema())

	require.NoError(t, err)
	assert.Equal(t, 12.5, out.Positions[0].Quantity)
	assert.Equal(t, 8.4, out.Positions[0].UnitPrice)
	assert.Equal(t, "material", out.Positions[0].Category)
	assert.Empty(t, out.Date)
}

func TestStructured_SchemaViolationFailsWhole(t *testing.T) {
	reply := `{"title": "x", "currency": "EUR", "positions": [{"description": "a", "quantity": 1, "unit": "Stk", "unit_price": 2, "category": "labor", "confidence": 4}]}`
	gen := NewStructured[OfferFields](&fakeBackend{reply: reply}, nil)

	out, err := gen.Generate(context.Background(), Prompt{}, OfferSchema())

	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeSchemaValidation))
	assert.Empty(t, out.Positions, "no partial data on failure")
}

func TestStructured_StrictRejectsRepairableOutput(t *testing.T) {
	reply := `{"title": "x", "currency": "EUR", "positions": [], "extra": 1}`
	gen := NewStructured[OfferFields](&fakeBackend{reply: reply}, nil).Strict()

	_, err := gen.Generate(context.Background(), Prompt{}, OfferSchema())

	assert.True(t, common.IsCode(err, common.CodeSchemaValidation))
}

func TestStructured_NotJSON(t *testing.T) {
	gen := NewStructured[OfferFields](&fakeBackend{reply: "I cannot help with that."}, nil)

	_, err := gen.Generate(context.Background(), Prompt{}, OfferSchema())

	assert.True(t, common.IsCode(err, common.CodeSchemaValidation))
}

func TestStructured_BackendError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	gen := NewStructured[OfferFields](backend, nil)

	_, err := gen.Generate(context.Background(), Prompt{}, OfferSchema())

	assert.True(t, common.IsCode(err, common.CodeDependency))
	assert.Equal(t, 1, backend.calls, "no automatic retry")
}

func TestStructured_RateLimitedBackend(t *testing.T) {
	backend := &fakeBackend{err: &HTTPError{Status: 429, RetryAfter: "20"}}
	gen := NewStructured[OfferFields](backend, nil)

	_, err := gen.Generate(context.Background(), Prompt{}, OfferSchema())

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeDependency, appErr.Code)
	assert.Equal(t, "generation backend is busy, retry later", appErr.Message)
	assert.Equal(t, 1, backend.calls)
}

func TestStructured_Assessment(t *testing.T) {
	reply := `{
	  "project_type": "Badsanierung",
	  "estimated_value": 18000,
	  "complexity": "High",
	  "urgency": "medium",
	  "key_requirements": ["barrierefrei"],
	  "suggested_positions": [{"title": "Dusche bodengleich", "quantity": 1, "unit": "psch", "estimated_price": 4200}],
	  "risk_factors": [],
	  "recommendations": ["Vor-Ort-Termin"]
	}`
	gen := NewStructured[AssessmentFields](&fakeBackend{reply: reply}, nil)

	out, err := gen.Generate(context.Background(), Prompt{}, AssessmentSchema())

	require.NoError(t, err)
	assert.Equal(t, "high", out.Complexity)
	assert.Equal(t, 4200.0, out.SuggestedPositions[0].EstimatedPrice)
}
