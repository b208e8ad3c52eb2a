package calculator

import "github.com/shopspring/decimal"

// Round2 formats v with two decimals, rounding half away from zero on the
// shortest decimal form of v, so 100.005 becomes "100.01".
func Round2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Round2Float is Round2 as a number, for CSV and storage.
func Round2Float(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
