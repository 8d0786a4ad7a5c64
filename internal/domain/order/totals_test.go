package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func items(lines ...[2]string) []Item {
	out := make([]Item, len(lines))
	for i, l := range lines {
		price := dec(l[0])
		qty := decimal.RequireFromString(l[1]).IntPart()
		out[i] = Item{
			ProductID: "p",
			Quantity:  int(qty),
			UnitPrice: price,
		}
	}
	return out
}

func TestCalculateTotals(t *testing.T) {
	tests := []struct {
		name     string
		items    []Item
		shipping decimal.Decimal
		taxRate  decimal.Decimal
		discount decimal.Decimal
		want     Totals
	}{
		{
			// Subtotal 50, shipping 15, 21% VAT, no discount.
			name:     "storefront flow without discount",
			items:    items([2]string{"25", "2"}),
			shipping: dec("15"),
			taxRate:  dec("21"),
			discount: dec("0"),
			want: Totals{
				Subtotal:           dec("50"),
				DiscountedSubtotal: dec("50"),
				Tax:                dec("10.50"),
				Shipping:           dec("15"),
				Total:              dec("75.50"),
			},
		},
		{
			name:     "discount reduces subtotal but not tax base",
			items:    items([2]string{"100", "1"}),
			shipping: dec("0"),
			taxRate:  dec("21"),
			discount: dec("10"),
			want: Totals{
				Subtotal:           dec("100"),
				DiscountedSubtotal: dec("90"),
				Tax:                dec("21"),
				Shipping:           dec("0"),
				Total:              dec("111"),
			},
		},
		{
			name:     "discount larger than subtotal floors at zero",
			items:    items([2]string{"10", "1"}),
			shipping: dec("5"),
			taxRate:  dec("8"),
			discount: dec("25"),
			want: Totals{
				Subtotal:           dec("10"),
				DiscountedSubtotal: dec("0"),
				Tax:                dec("0.80"),
				Shipping:           dec("5"),
				Total:              dec("5.80"),
			},
		},
		{
			name:     "custom print rate",
			items:    items([2]string{"20", "3"}),
			shipping: dec("15"),
			taxRate:  dec("8"),
			discount: dec("0"),
			want: Totals{
				Subtotal:           dec("60"),
				DiscountedSubtotal: dec("60"),
				Tax:                dec("4.80"),
				Shipping:           dec("15"),
				Total:              dec("79.80"),
			},
		},
		{
			name:     "multiple lines sum unit price times quantity",
			items:    items([2]string{"19.99", "2"}, [2]string{"5.50", "4"}),
			shipping: dec("0"),
			taxRate:  dec("0"),
			discount: dec("0"),
			want: Totals{
				Subtotal:           dec("61.98"),
				DiscountedSubtotal: dec("61.98"),
				Tax:                dec("0"),
				Shipping:           dec("0"),
				Total:              dec("61.98"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateTotals(tt.items, tt.shipping, tt.taxRate, tt.discount)
			assert.True(t, got.Subtotal.Equal(tt.want.Subtotal), "subtotal: got %s want %s", got.Subtotal, tt.want.Subtotal)
			assert.True(t, got.DiscountedSubtotal.Equal(tt.want.DiscountedSubtotal), "discounted: got %s want %s", got.DiscountedSubtotal, tt.want.DiscountedSubtotal)
			assert.True(t, got.Tax.Equal(tt.want.Tax), "tax: got %s want %s", got.Tax, tt.want.Tax)
			assert.True(t, got.Total.Equal(tt.want.Total), "total: got %s want %s", got.Total, tt.want.Total)
			assert.False(t, got.Total.IsNegative())
		})
	}
}

// Tax is charged on the pre-discount subtotal. This mirrors the live
// checkout flows; a change here is a product decision, not a refactor.
func TestTaxComputedOnPreDiscountSubtotal(t *testing.T) {
	withDiscount := CalculateTotals(items([2]string{"200", "1"}), dec("0"), dec("21"), dec("50"))
	withoutDiscount := CalculateTotals(items([2]string{"200", "1"}), dec("0"), dec("21"), dec("0"))

	assert.True(t, withDiscount.Tax.Equal(withoutDiscount.Tax),
		"tax must not change when a discount applies: %s vs %s", withDiscount.Tax, withoutDiscount.Tax)
	assert.True(t, withDiscount.Tax.Equal(dec("42")))
}
