package constants

import (
	"strings"
)

// PositionCategory is the cost nature of an offer line item.
type PositionCategory string

const (
	Labor     PositionCategory = "labor"
	Material  PositionCategory = "material"
	Equipment PositionCategory = "equipment"
	Other     PositionCategory = "other"
)

var allCategories = []PositionCategory{
	Labor,
	Material,
	Equipment,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

func Canonicalize(input string) (PositionCategory, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map (offers are mostly German)
	synonyms := map[string]PositionCategory{
		"lohn":        Labor,
		"arbeit":      Labor,
		"arbeitszeit": Labor,
		"montage":     Labor,
		"work":        Labor,
		"material":    Material,
		"stoffe":      Material,
		"gerät":       Equipment,
		"geraet":      Equipment,
		"maschine":    Equipment,
		"machine":     Equipment,
		"sonstiges":   Other,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}

	return Other, false
}

// Level is the shared low/medium/high scale used by assessments.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Levels lists the allowed enum values in schema order.
func Levels() []string {
	return []string{string(LevelLow), string(LevelMedium), string(LevelHigh)}
}
