package llm

import "github.com/joseph-ayodele/price-intel/constants"

const (
	OfferSchemaName      = "extracted_offer"
	AssessmentSchemaName = "lead_assessment"
)

// OfferSchema describes a full reconstruction of a historical offer.
func OfferSchema() Schema {
	position := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"code":           map[string]any{"type": "string"},
			"description":    map[string]any{"type": "string", "minLength": 1},
			"quantity":       map[string]any{"type": "number", "minimum": 0},
			"unit":           map[string]any{"type": "string", "minLength": 1},
			"unit_price":     map[string]any{"type": "number", "minimum": 0},
			"total_price":    map[string]any{"type": "number"},
			"category":       map[string]any{"type": "string", "enum": constants.AsStringSlice()},
			"trade_category": map[string]any{"type": "string"},
			"work_type":      map[string]any{"type": "string"},
			"confidence":     map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"description", "quantity", "unit", "unit_price", "category", "confidence"},
	}

	return Schema{
		Name: OfferSchemaName,
		Definition: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"title":         map[string]any{"type": "string"},
				"date":          map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
				"customer_name": map[string]any{"type": "string"},
				"project_type":  map[string]any{"type": "string"},
				"total_amount":  map[string]any{"type": "number", "minimum": 0},
				"currency":      map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
				"positions":     map[string]any{"type": "array", "items": position},
				"metadata": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"region":     map[string]any{"type": "string"},
						"trade_type": map[string]any{"type": "string"},
						"size":       map[string]any{"type": "string"},
						"complexity": map[string]any{"type": "string", "enum": constants.Levels()},
					},
				},
			},
			"required": []string{"title", "currency", "positions"},
		},
	}
}

// AssessmentSchema describes a quick lead qualification.
func AssessmentSchema() Schema {
	suggested := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"code":            map[string]any{"type": "string"},
			"title":           map[string]any{"type": "string", "minLength": 1},
			"description":     map[string]any{"type": "string"},
			"quantity":        map[string]any{"type": "number", "minimum": 0},
			"unit":            map[string]any{"type": "string", "minLength": 1},
			"estimated_price": map[string]any{"type": "number", "minimum": 0},
		},
		"required": []string{"title", "quantity", "unit", "estimated_price"},
	}
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}

	return Schema{
		Name: AssessmentSchemaName,
		Definition: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"project_type":        map[string]any{"type": "string", "minLength": 1},
				"estimated_value":     map[string]any{"type": "number", "minimum": 0},
				"complexity":          map[string]any{"type": "string", "enum": constants.Levels()},
				"urgency":             map[string]any{"type": "string", "enum": constants.Levels()},
				"key_requirements":    stringList,
				"suggested_positions": map[string]any{"type": "array", "items": suggested},
				"risk_factors":        stringList,
				"recommendations":     stringList,
			},
			"required": []string{
				"project_type", "estimated_value", "complexity", "urgency",
				"key_requirements", "suggested_positions", "risk_factors", "recommendations",
			},
		},
	}
}
