package discount

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Result holds the computed discount for a subtotal.
type Result struct {
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
}

// Calculate computes the discount a code yields for the given subtotal.
// The subtotal must meet the code's minimum order amount; a
// BelowMinimumError is returned otherwise.
//
// Percentage codes discount subtotal * value / 100, capped at the
// code's maximum discount amount when one is set. Fixed-amount codes
// discount min(value, subtotal) so an order is never discounted below
// zero. Amounts are not rounded here; rounding happens at the
// formatting boundary.
func Calculate(code *Code, subtotal decimal.Decimal) (Result, error) {
	if subtotal.LessThan(code.MinimumOrderAmount) {
		return Result{}, &BelowMinimumError{Minimum: code.MinimumOrderAmount}
	}

	var amount decimal.Decimal
	switch code.DiscountType {
	case TypePercentage:
		amount = subtotal.Mul(code.DiscountValue).Div(hundred)
		if code.MaximumDiscountAmount != nil {
			amount = decimal.Min(amount, *code.MaximumDiscountAmount)
		}
	case TypeFixedAmount:
		amount = decimal.Min(code.DiscountValue, subtotal)
	default:
		return Result{}, errors.Errorf("unsupported discount type: %q", code.DiscountType)
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return Result{
		DiscountAmount: amount,
		FinalAmount:    subtotal.Sub(amount),
	}, nil
}
