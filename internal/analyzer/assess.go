package analyzer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/llm"
	"github.com/joseph-ayodele/price-intel/internal/money"
)

// AssessmentContext is optional caller knowledge about an inquiry.
type AssessmentContext struct {
	Budget   *float64 `json:"budget,omitempty" validate:"omitempty,gte=0"`
	Timeline string   `json:"timeline,omitempty"`
	Urgency  string   `json:"urgency,omitempty" validate:"omitempty,oneof=low medium high"`
}

type SuggestedPosition struct {
	Code           string  `json:"code,omitempty"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	EstimatedPrice float64 `json:"estimated_price"`
}

// Assessment is a quick qualification of a customer inquiry.
type Assessment struct {
	ProjectType        string              `json:"project_type"`
	EstimatedValue     float64             `json:"estimated_value"`
	Complexity         constants.Level     `json:"complexity"`
	Urgency            constants.Level     `json:"urgency"`
	KeyRequirements    []string            `json:"key_requirements"`
	SuggestedPositions []SuggestedPosition `json:"suggested_positions"`
	RiskFactors        []string            `json:"risk_factors"`
	Recommendations    []string            `json:"recommendations"`
}

// Assess qualifies an inquiry from the customer's message and attachment text.
func (a *Analyzer) Assess(ctx context.Context, message string, documents []string, actx *AssessmentContext) (Assessment, error) {
	if strings.TrimSpace(message) == "" && !anyText(documents) {
		return Assessment{}, common.NewValidationError("message or documents required", common.ErrInvalidInput)
	}
	req := llm.AssessmentRequest{
		Message:       message,
		Documents:     documents,
		MaxInputChars: a.cfg.MaxInputChars,
	}
	if actx != nil {
		if err := common.ValidateStruct(actx); err != nil {
			return Assessment{}, err
		}
		req.Budget = actx.Budget
		req.Timeline = actx.Timeline
		req.Urgency = actx.Urgency
	}

	f, err := a.assess.Generate(ctx, llm.BuildAssessmentPrompt(req), llm.AssessmentSchema())
	if err != nil {
		a.logger.Warn("analyzer.assess.failed", zap.Error(err))
		return Assessment{}, err
	}

	out := Assessment{
		ProjectType:     f.ProjectType,
		EstimatedValue:  money.Round2(f.EstimatedValue),
		Complexity:      constants.Level(f.Complexity),
		Urgency:         constants.Level(f.Urgency),
		KeyRequirements: nonNil(f.KeyRequirements),
		RiskFactors:     nonNil(f.RiskFactors),
		Recommendations: nonNil(f.Recommendations),
	}
	out.SuggestedPositions = make([]SuggestedPosition, 0, len(f.SuggestedPositions))
	for _, p := range f.SuggestedPositions {
		out.SuggestedPositions = append(out.SuggestedPositions, SuggestedPosition{
			Code:           p.Code,
			Title:          p.Title,
			Description:    p.Description,
			Quantity:       p.Quantity,
			Unit:           p.Unit,
			EstimatedPrice: money.Round2(p.EstimatedPrice),
		})
	}

	a.logger.Info("analyzer.assess.ok",
		zap.String("project_type", out.ProjectType),
		zap.String("complexity", string(out.Complexity)),
		zap.Int("suggested_positions", len(out.SuggestedPositions)),
	)
	return out, nil
}

func anyText(docs []string) bool {
	for _, d := range docs {
		if strings.TrimSpace(d) != "" {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
