package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/price-intel/constants"
)

// ExtractedOfferRecord is the structured reconstruction of one historical offer.
type ExtractedOfferRecord struct {
	ID             uuid.UUID       `json:"id"`
	DocumentID     uuid.UUID       `json:"document_id"`
	SourceDocument string          `json:"source_document"`
	Title          string          `json:"title"`
	Date           *time.Time      `json:"date,omitempty"`
	CustomerName   string          `json:"customer_name"`
	ProjectType    string          `json:"project_type"`
	TotalAmount    float64         `json:"total_amount"`
	Currency       string          `json:"currency"`
	Positions      []OfferPosition `json:"positions"`
	Metadata       OfferMetadata   `json:"metadata"`
	ModelName      string          `json:"model_name,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// OfferPosition is one line item of an offer.
// TotalPrice is always Quantity x UnitPrice rounded to cents.
type OfferPosition struct {
	Code          string                     `json:"code,omitempty"`
	Description   string                     `json:"description"`
	Quantity      float64                    `json:"quantity"`
	Unit          string                     `json:"unit"`
	UnitPrice     float64                    `json:"unit_price"`
	TotalPrice    float64                    `json:"total_price"`
	Category      constants.PositionCategory `json:"category"`
	TradeCategory string                     `json:"trade_category"`
	WorkType      string                     `json:"work_type,omitempty"`
	Confidence    float64                    `json:"confidence"`
	LowConfidence bool                       `json:"low_confidence"`
}

type OfferMetadata struct {
	Region     string `json:"region,omitempty"`
	TradeType  string `json:"trade_type,omitempty"`
	Size       string `json:"size,omitempty"`
	Complexity string `json:"complexity,omitempty"`
}
