// Package money holds the cent-exact arithmetic shared by analysis, aggregation and proposals.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// LineTotal returns quantity x unitPrice rounded to cents.
func LineTotal(quantity, unitPrice float64) float64 {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice)).Round(2).InexactFloat64()
}

// PctChange returns (newPrice-oldPrice)/oldPrice*100 rounded to two places.
// A zero old price yields 0 because there is no baseline to compare against.
func PctChange(oldPrice, newPrice float64) float64 {
	o := decimal.NewFromFloat(oldPrice)
	if o.IsZero() {
		return 0
	}
	return decimal.NewFromFloat(newPrice).Sub(o).Div(o).Mul(hundred).Round(2).InexactFloat64()
}

// Avg returns the arithmetic mean rounded to cents, or 0 for an empty input.
func Avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2).InexactFloat64()
}

// IsPrice reports whether v is usable as a price: finite and strictly positive.
func IsPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Scale multiplies v by factor at full precision.
func Scale(v, factor float64) float64 {
	return decimal.NewFromFloat(v).Mul(decimal.NewFromFloat(factor)).InexactFloat64()
}
