package discount

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	code      *Code
	err       error
	redeemErr error
	redeemed  []Usage
}

func (m *mockRepo) FindByCode(_ context.Context, _ string) (*Code, error) {
	return m.code, m.err
}

func (m *mockRepo) Redeem(_ context.Context, _ string, usage Usage) error {
	m.redeemed = append(m.redeemed, usage)
	return m.redeemErr
}

func TestValidatorCheck(t *testing.T) {
	fixedNow := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := fixedNow.Add(-24 * time.Hour)
	future := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name         string
		repo         *mockRepo
		code         string
		subtotal     decimal.Decimal
		wantDiscount decimal.Decimal
		wantErr      error
	}{
		{
			name: "valid percentage code",
			repo: &mockRepo{code: &Code{
				Code:          "SAVE10",
				DiscountType:  TypePercentage,
				DiscountValue: dec("10"),
				IsActive:      true,
			}},
			code:         "save10",
			subtotal:     dec("100"),
			wantDiscount: dec("10"),
		},
		{
			name:     "unknown code",
			repo:     &mockRepo{err: ErrNotFound},
			code:     "BOGUS",
			subtotal: dec("100"),
			wantErr:  ErrNotFound,
		},
		{
			name: "inactive code invalid regardless of other fields",
			repo: &mockRepo{code: &Code{
				Code:          "OFF",
				DiscountType:  TypePercentage,
				DiscountValue: dec("10"),
				IsActive:      false,
				ValidFrom:     &past,
				ValidUntil:    &future,
			}},
			code:     "OFF",
			subtotal: dec("100"),
			wantErr:  ErrInactive,
		},
		{
			name: "not yet active",
			repo: &mockRepo{code: &Code{
				Code:          "SOON",
				DiscountType:  TypePercentage,
				DiscountValue: dec("10"),
				IsActive:      true,
				ValidFrom:     &future,
			}},
			code:     "SOON",
			subtotal: dec("100"),
			wantErr:  ErrNotYetActive,
		},
		{
			name: "expired",
			repo: &mockRepo{code: &Code{
				Code:          "OLD",
				DiscountType:  TypePercentage,
				DiscountValue: dec("10"),
				IsActive:      true,
				ValidUntil:    &past,
			}},
			code:     "OLD",
			subtotal: dec("100"),
			wantErr:  ErrExpired,
		},
		{
			name: "within window succeeds",
			repo: &mockRepo{code: &Code{
				Code:          "WINDOW",
				DiscountType:  TypeFixedAmount,
				DiscountValue: dec("5"),
				IsActive:      true,
				ValidFrom:     &past,
				ValidUntil:    &future,
			}},
			code:         "WINDOW",
			subtotal:     dec("100"),
			wantDiscount: dec("5"),
		},
		{
			name: "usage limit reached",
			repo: &mockRepo{code: &Code{
				Code:          "LIMITED",
				DiscountType:  TypePercentage,
				DiscountValue: dec("10"),
				IsActive:      true,
				UsageLimit:    100,
				UsedCount:     100,
			}},
			code:     "LIMITED",
			subtotal: dec("100"),
			wantErr:  ErrUsageLimitReached,
		},
		{
			name: "usage under limit succeeds",
			repo: &mockRepo{code: &Code{
				Code:          "ROOM",
				DiscountType:  TypePercentage,
				DiscountValue: dec("10"),
				IsActive:      true,
				UsageLimit:    100,
				UsedCount:     99,
			}},
			code:         "ROOM",
			subtotal:     dec("100"),
			wantDiscount: dec("10"),
		},
		{
			name: "no usage limit means unlimited",
			repo: &mockRepo{code: &Code{
				Code:          "FOREVER",
				DiscountType:  TypePercentage,
				DiscountValue: dec("10"),
				IsActive:      true,
				UsedCount:     100000,
			}},
			code:         "FOREVER",
			subtotal:     dec("100"),
			wantDiscount: dec("10"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(tt.repo)
			v.now = func() time.Time { return fixedNow }

			rec, res, err := v.Check(context.Background(), tt.code, tt.subtotal)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.NotEmpty(t, Reason(err), "every validity failure needs a display reason")
				return
			}
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.True(t, res.DiscountAmount.Equal(tt.wantDiscount),
				"discount: got %s want %s", res.DiscountAmount, tt.wantDiscount)
			assert.Empty(t, tt.repo.redeemed, "Check must not consume a use")
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "SAVE10", Normalize("  save10 "))
	assert.Equal(t, "FLAT20", Normalize("Flat20"))
}
