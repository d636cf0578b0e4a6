package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/price-intel/constants"
)

// PriceUpdateProposal is a pending, human-approvable change to the pricebook.
type PriceUpdateProposal struct {
	ID              uuid.UUID                `json:"id"`
	PriceBookItemID *uuid.UUID               `json:"pricebook_item_id,omitempty"`
	SourceDocument  string                   `json:"source_document"`
	DocumentID      *uuid.UUID               `json:"document_id,omitempty"`
	UpdateType      constants.UpdateType     `json:"update_type"`
	OldPrice        *float64                 `json:"old_price,omitempty"`
	NewPrice        float64                  `json:"new_price"`
	PctChange       *float64                 `json:"pct_change,omitempty"`
	Status          constants.ProposalStatus `json:"status"`
	Description     string                   `json:"description"`
	Unit            string                   `json:"unit"`
	TradeCategory   string                   `json:"trade_category"`
	MatchMethod     constants.MatchMethod    `json:"match_method"`
	MatchScore      float64                  `json:"match_score"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	ResolvedAt      *time.Time               `json:"resolved_at,omitempty"`
}
