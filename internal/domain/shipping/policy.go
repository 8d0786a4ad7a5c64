// Package shipping computes shipping costs as a pure function of
// destination country and order subtotal.
package shipping

import "github.com/shopspring/decimal"

// Policy holds the shipping cost rules: orders at or above the free
// threshold ship free, everything else pays the standard flat rate,
// with optional per-country overrides of that rate.
type Policy struct {
	FreeThreshold decimal.Decimal
	StandardRate  decimal.Decimal
	CountryRates  map[string]decimal.Decimal
}

// Cost returns the shipping cost for the given destination country and
// subtotal.
func (p Policy) Cost(country string, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeThreshold) {
		return decimal.Zero
	}
	if rate, ok := p.CountryRates[country]; ok {
		return rate
	}
	return p.StandardRate
}
