package order

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals is the computed pricing breakdown for an order.
type Totals struct {
	Subtotal           decimal.Decimal
	DiscountedSubtotal decimal.Decimal
	Tax                decimal.Decimal
	Shipping           decimal.Decimal
	Total              decimal.Decimal
}

// CalculateTotals computes an order's pricing from its line items, a
// shipping cost, a tax rate in percent, and an optional discount
// amount.
//
// Tax is computed on the pre-discount subtotal. That matches the
// storefront's observed checkout behavior and is locked in by tests;
// changing it would alter customer-visible totals.
//
// No intermediate rounding is applied; callers round to 2 decimal
// places at the formatting boundary. The total is never negative.
func CalculateTotals(items []Item, shipping decimal.Decimal, taxRate decimal.Decimal, discountAmount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(item.UnitPrice.Mul(qty))
	}

	discounted := subtotal.Sub(discountAmount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}

	tax := subtotal.Mul(taxRate).Div(hundred)

	total := discounted.Add(shipping).Add(tax)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:           subtotal,
		DiscountedSubtotal: discounted,
		Tax:                tax,
		Shipping:           shipping,
		Total:              total,
	}
}
