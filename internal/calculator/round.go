package calculator

import "github.com/shopspring/decimal"

// Round2 rounds a price to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
