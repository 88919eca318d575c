package usecase

import (
	"math"

	"github.com/shopspring/decimal"
)

// stopPrecision is the number of fractional digits stop prices are rounded to.
const stopPrecision = 2

var hundred = decimal.NewFromInt(100)

// ComputeStop returns referencePrice * (1 - percent/100) rounded to two
// decimals. Percent is not range checked: a negative percent yields a stop
// above the reference and percent >= 100 yields a non-positive stop.
// Non-finite inputs return the unrounded float result.
func ComputeStop(referencePrice, percent float64) float64 {
	if !isFinite(referencePrice) || !isFinite(percent) {
		return referencePrice * (1 - percent/100)
	}
	ref := decimal.NewFromFloat(referencePrice)
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(percent).Div(hundred))
	return ref.Mul(factor).Round(stopPrecision).InexactFloat64()
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
