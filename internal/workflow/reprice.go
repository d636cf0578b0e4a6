package workflow

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/price-intel/internal/entity"
)

var sixty = decimal.NewFromInt(60)

// Reprice scales material cost and minutes by the same factor so that the
// item's effective unit price becomes newPrice. Items without any cost get
// newPrice as material.
func Reprice(item entity.PriceBookItem, newPrice, hourlyRate float64) entity.PriceBookItem {
	material := decimal.NewFromFloat(item.BaseMaterialCost)
	minutes := decimal.NewFromFloat(item.BaseMinutes)
	rate := decimal.NewFromFloat(hourlyRate)
	target := decimal.NewFromFloat(newPrice)

	current := material.Add(minutes.Mul(rate).Div(sixty))
	if !current.IsPositive() {
		item.BaseMaterialCost = newPrice
		item.BaseMinutes = 0
		return item
	}

	factor := target.Div(current)
	scaledMinutes := minutes.Mul(factor)
	// material absorbs the remainder so the sum is exact
	item.BaseMinutes = scaledMinutes.InexactFloat64()
	item.BaseMaterialCost = target.Sub(decimal.NewFromFloat(item.BaseMinutes).Mul(rate).Div(sixty)).InexactFloat64()
	return item
}
