// Package pricing converts international spot quotes into domestic per-gram prices.
package pricing

import "github.com/shopspring/decimal"

// TroyOunceGrams граммов в одной тройской унции.
const TroyOunceGrams = 31.1035

// Derive converts a USD/oz spot price into CNY/g at the given USD->CNY rate.
func Derive(spot, rate float64) float64 {
	return spot * rate / TroyOunceGrams
}

// SpotFromDomestic is the inverse of Derive.
func SpotFromDomestic(price, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return price * TroyOunceGrams / rate
}

// FormatPrice rounds to two decimals for display.
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).StringFixed(2)
}

// Round2 is FormatPrice as a number.
func Round2(price float64) float64 {
	f, _ := decimal.NewFromFloat(price).Round(2).Float64()
	return f
}
