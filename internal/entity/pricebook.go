package entity

import (
	"time"

	"github.com/google/uuid"
)

// PriceBookItem is a canonical catalog entry. It changes only when a proposal is approved.
type PriceBookItem struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Code             string    `json:"code,omitempty"`
	Unit             string    `json:"unit"`
	Branch           string    `json:"branch"`
	Region           string    `json:"region,omitempty"`
	BaseMaterialCost float64   `json:"base_material_cost"`
	BaseMinutes      float64   `json:"base_minutes"`
	MarkupPct        float64   `json:"markup_pct"`
	OverheadPct      float64   `json:"overhead_pct"`
	RegionFactor     float64   `json:"region_factor"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
