package pricing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Economics holds every business constant used by aggregation, recommendation
// and proposal generation. Values come from defaults, the environment and an
// optional YAML profile, in that order.
type Economics struct {
	HourlyRate  float64 `yaml:"hourly_rate" envconfig:"PRICEINTEL_HOURLY_RATE" default:"65" validate:"gt=0"`
	MarkupPct   float64 `yaml:"markup_pct" envconfig:"PRICEINTEL_MARKUP_PCT" default:"15" validate:"gte=0"`
	OverheadPct float64 `yaml:"overhead_pct" envconfig:"PRICEINTEL_OVERHEAD_PCT" default:"10" validate:"gte=0"`

	// ConfidenceThreshold is the minimum position confidence that feeds the
	// market index and the proposal workflow.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" envconfig:"PRICEINTEL_CONFIDENCE_THRESHOLD" default:"0.7" validate:"gte=0,lte=1"`
	ConfidenceBase      float64 `yaml:"confidence_base" envconfig:"PRICEINTEL_CONFIDENCE_BASE" default:"0.5" validate:"gte=0,lte=1"`
	ConfidenceStep      float64 `yaml:"confidence_step" envconfig:"PRICEINTEL_CONFIDENCE_STEP" default:"0.1" validate:"gte=0,lte=1"`
	ConfidenceCap       float64 `yaml:"confidence_cap" envconfig:"PRICEINTEL_CONFIDENCE_CAP" default:"0.95" validate:"gte=0,lte=0.95"`

	// Below SafetyMarginBelow (exclusive) recommendations get SafetyMarginPct added.
	SafetyMarginBelow float64 `yaml:"safety_margin_below" envconfig:"PRICEINTEL_SAFETY_MARGIN_BELOW" default:"0.8" validate:"gte=0,lte=1"`
	SafetyMarginPct   float64 `yaml:"safety_margin_pct" envconfig:"PRICEINTEL_SAFETY_MARGIN_PCT" default:"10" validate:"gte=0"`
	TrendTolerancePct float64 `yaml:"trend_tolerance_pct" envconfig:"PRICEINTEL_TREND_TOLERANCE_PCT" default:"5" validate:"gte=0"`

	// RegionPartition makes region part of the market key.
	RegionPartition bool    `yaml:"region_partition" envconfig:"PRICEINTEL_REGION_PARTITION" default:"false"`
	FuzzyMatching   bool    `yaml:"fuzzy_matching" envconfig:"PRICEINTEL_FUZZY_MATCHING" default:"false"`
	FuzzyMinScore   float64 `yaml:"fuzzy_min_score" envconfig:"PRICEINTEL_FUZZY_MIN_SCORE" default:"0.85" validate:"gte=0,lte=1"`
}

// DefaultEconomics mirrors the env defaults for callers that skip configuration.
func DefaultEconomics() Economics {
	return Economics{
		HourlyRate:          65,
		MarkupPct:           15,
		OverheadPct:         10,
		ConfidenceThreshold: 0.7,
		ConfidenceBase:      0.5,
		ConfidenceStep:      0.1,
		ConfidenceCap:       0.95,
		SafetyMarginBelow:   0.8,
		SafetyMarginPct:     10,
		TrendTolerancePct:   5,
		FuzzyMinScore:       0.85,
	}
}

var econValidator = validator.New()

func (e Economics) Validate() error {
	return econValidator.Struct(e)
}

// LoadEconomicsFile overlays the YAML profile at path onto base. Keys absent
// from the file keep their base value; unknown keys are an error.
func LoadEconomicsFile(path string, base Economics) (Economics, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read economics profile: %w", err)
	}
	return ParseEconomics(raw, base)
}

func ParseEconomics(raw []byte, base Economics) (Economics, error) {
	out := base
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return base, fmt.Errorf("decode economics profile: %w", err)
	}
	if err := out.Validate(); err != nil {
		return base, fmt.Errorf("economics profile: %w", err)
	}
	return out, nil
}
