package llm

// OfferFields is the decoded shape of OfferSchema.
type OfferFields struct {
	Title        string           `json:"title"`
	Date         string           `json:"date,omitempty"` // YYYY-MM-DD
	CustomerName string           `json:"customer_name,omitempty"`
	ProjectType  string           `json:"project_type,omitempty"`
	TotalAmount  float64          `json:"total_amount,omitempty"`
	Currency     string           `json:"currency"` // ISO 4217
	Positions    []PositionFields `json:"positions"`
	Metadata     MetadataFields   `json:"metadata"`
}

type PositionFields struct {
	Code          string  `json:"code,omitempty"`
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"`
	Unit          string  `json:"unit"`
	UnitPrice     float64 `json:"unit_price"`
	TotalPrice    float64 `json:"total_price,omitempty"` // ignored, recomputed
	Category      string  `json:"category"`
	TradeCategory string  `json:"trade_category,omitempty"`
	WorkType      string  `json:"work_type,omitempty"`
	Confidence    float64 `json:"confidence"`
}

type MetadataFields struct {
	Region     string `json:"region,omitempty"`
	TradeType  string `json:"trade_type,omitempty"`
	Size       string `json:"size,omitempty"`
	Complexity string `json:"complexity,omitempty"`
}

// AssessmentFields is the decoded shape of AssessmentSchema.
type AssessmentFields struct {
	ProjectType        string                    `json:"project_type"`
	EstimatedValue     float64                   `json:"estimated_value"`
	Complexity         string                    `json:"complexity"`
	Urgency            string                    `json:"urgency"`
	KeyRequirements    []string                  `json:"key_requirements"`
	SuggestedPositions []SuggestedPositionFields `json:"suggested_positions"`
	RiskFactors        []string                  `json:"risk_factors"`
	Recommendations    []string                  `json:"recommendations"`
}

type SuggestedPositionFields struct {
	Code           string  `json:"code,omitempty"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	EstimatedPrice float64 `json:"estimated_price"`
}
