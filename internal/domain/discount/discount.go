// Package discount implements discount code lookup, validation, and
// discount amount calculation.
package discount

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage reduces the subtotal by a percentage, optionally
	// capped at a maximum amount.
	TypePercentage Type = "percentage"
	// TypeFixedAmount reduces the subtotal by a fixed amount, never
	// exceeding the subtotal itself.
	TypeFixedAmount Type = "fixed_amount"
)

var (
	// ErrNotFound is returned when no code matches the lookup.
	ErrNotFound = errors.New("discount code not found")
	// ErrInactive is returned when the code exists but is disabled.
	ErrInactive = errors.New("discount code is not active")
	// ErrNotYetActive is returned before the code's valid_from time.
	ErrNotYetActive = errors.New("discount code is not yet active")
	// ErrExpired is returned after the code's valid_until time.
	ErrExpired = errors.New("discount code has expired")
	// ErrUsageLimitReached is returned when used_count has reached usage_limit.
	ErrUsageLimitReached = errors.New("discount code usage limit reached")
)

// BelowMinimumError indicates the order subtotal does not meet the
// code's minimum order amount.
type BelowMinimumError struct {
	Minimum decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return "order amount is below the minimum of " + e.Minimum.StringFixed(2)
}

// Code is a redeemable discount code with its eligibility constraints.
type Code struct {
	ID                    string
	Code                  string
	Description           string
	DiscountType          Type
	DiscountValue         decimal.Decimal
	MinimumOrderAmount    decimal.Decimal
	MaximumDiscountAmount *decimal.Decimal
	UsageLimit            int
	UsedCount             int
	IsActive              bool
	ValidFrom             *time.Time
	ValidUntil            *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Usage is one redemption event in the append-only usage ledger.
type Usage struct {
	ID             string
	DiscountCodeID string
	OrderID        string
	CustomerEmail  string
	DiscountAmount decimal.Decimal
	OrderAmount    decimal.Decimal
	IPAddress      string
	UserAgent      string
	UsedAt         time.Time
}

// Normalize returns the canonical (uppercase, trimmed) form of a code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Repository provides lookup and redemption of discount codes.
type Repository interface {
	// FindByCode looks up a code case-insensitively.
	// Returns ErrNotFound when no such code exists.
	FindByCode(ctx context.Context, code string) (*Code, error)
	// Redeem records a usage row and increments used_count in a single
	// transaction. The increment is conditional: when the code has a
	// usage limit and it is already exhausted, ErrUsageLimitReached is
	// returned and nothing is written.
	Redeem(ctx context.Context, codeID string, usage Usage) error
}
