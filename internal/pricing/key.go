package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/price-intel/internal/entity"
)

var sixty = decimal.NewFromInt(60)

// NormalizeKey lower-cases, trims and collapses internal whitespace.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// KeyFor builds the market key for a description, unit and trade. The region
// is appended only when econ.RegionPartition is set.
func KeyFor(description, unit, tradeCategory, region string, econ Economics) string {
	parts := []string{NormalizeKey(description), NormalizeKey(unit), NormalizeKey(tradeCategory)}
	if econ.RegionPartition {
		parts = append(parts, NormalizeKey(region))
	}
	return strings.Join(parts, "|")
}

// ItemKey is the market key of a catalog item: title, unit and branch.
func ItemKey(item entity.PriceBookItem, econ Economics) string {
	return KeyFor(item.Title, item.Unit, item.Branch, item.Region, econ)
}

// EffectiveUnitPrice is materialCost + minutes x hourlyRate / 60, rounded to cents.
func EffectiveUnitPrice(item entity.PriceBookItem, hourlyRate float64) float64 {
	labor := decimal.NewFromFloat(item.BaseMinutes).Mul(decimal.NewFromFloat(hourlyRate)).Div(sixty)
	return decimal.NewFromFloat(item.BaseMaterialCost).Add(labor).Round(2).InexactFloat64()
}
