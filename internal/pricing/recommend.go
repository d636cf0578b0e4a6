package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/money"
)

// MessageNoMarketData is returned for keys the index has never seen.
const MessageNoMarketData = "no market data"

// Target is a line item that needs a price.
type Target struct {
	Description   string   `json:"description" validate:"required"`
	Unit          string   `json:"unit" validate:"required"`
	TradeCategory string   `json:"trade_category"`
	Region        string   `json:"region,omitempty"`
	ProposedPrice *float64 `json:"proposed_price,omitempty" validate:"omitempty,gt=0"`
}

type PriceRecommendation struct {
	Key                 string                 `json:"key"`
	Found               bool                   `json:"found"`
	RecommendedPrice    *float64               `json:"recommended_price"`
	PriceRange          *entity.PriceRange     `json:"price_range,omitempty"`
	Confidence          float64                `json:"confidence"`
	SourceCount         int                    `json:"source_count"`
	SafetyMarginApplied bool                   `json:"safety_margin_applied"`
	MarketTrend         *constants.MarketTrend `json:"market_trend,omitempty"`
	TrendDeltaPct       *float64               `json:"trend_delta_pct,omitempty"`
	LastUpdated         *time.Time             `json:"last_updated,omitempty"`
	Provenance          string                 `json:"provenance,omitempty"`
	Message             string                 `json:"message,omitempty"`
}

// Recommend looks the target up by exact key. A miss is not an error: it
// yields Found=false, zero confidence and no price.
func Recommend(t Target, ix *Index, econ Economics) PriceRecommendation {
	key := KeyFor(t.Description, t.Unit, t.TradeCategory, t.Region, econ)
	entry, ok := ix.Lookup(key)
	if !ok {
		return PriceRecommendation{Key: key, Message: MessageNoMarketData}
	}

	rng := entry.PriceRange
	price := rng.Avg
	margin := decimal.NewFromFloat(entry.Confidence).LessThan(decimal.NewFromFloat(econ.SafetyMarginBelow))
	if margin {
		factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(econ.SafetyMarginPct).Div(decimal.NewFromInt(100)))
		price = decimal.NewFromFloat(rng.Avg).Mul(factor).Round(2).InexactFloat64()
	}
	updated := entry.LastUpdated

	rec := PriceRecommendation{
		Key:                 key,
		Found:               true,
		RecommendedPrice:    &price,
		PriceRange:          &rng,
		Confidence:          entry.Confidence,
		SourceCount:         entry.SourceCount,
		SafetyMarginApplied: margin,
		LastUpdated:         &updated,
		Provenance:          Provenance(entry.SourceCount, entry.Confidence),
	}
	if t.ProposedPrice != nil {
		trend, delta := Trend(rng.Avg, *t.ProposedPrice, econ.TrendTolerancePct)
		rec.MarketTrend = &trend
		rec.TrendDeltaPct = &delta
	}
	return rec
}

// Trend classifies proposed against the market average. A delta of exactly
// ±tolerancePct counts as at market.
func Trend(avg, proposed, tolerancePct float64) (constants.MarketTrend, float64) {
	delta := money.PctChange(avg, proposed)
	switch {
	case math.Abs(delta) <= tolerancePct:
		return constants.AtMarket, delta
	case delta > 0:
		return constants.AboveMarket, delta
	default:
		return constants.BelowMarket, delta
	}
}

func Provenance(sources int, confidence float64) string {
	pct := decimal.NewFromFloat(confidence).Mul(decimal.NewFromInt(100)).Round(0)
	return fmt.Sprintf("based on %d source(s), confidence %s%%", sources, pct.String())
}
