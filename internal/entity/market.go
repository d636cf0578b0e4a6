package entity

import "time"

// PriceRange is the observed spread of a market bucket. Min <= Avg <= Max.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// MarketPriceEntry is one bucket of the derived market index.
type MarketPriceEntry struct {
	Key           string     `json:"key"`
	Description   string     `json:"description"`
	Unit          string     `json:"unit"`
	TradeCategory string     `json:"trade_category"`
	Region        string     `json:"region,omitempty"`
	PriceRange    PriceRange `json:"price_range"`
	Confidence    float64    `json:"confidence"`
	SourceCount   int        `json:"source_count"`
	LastUpdated   time.Time  `json:"last_updated"`
}
