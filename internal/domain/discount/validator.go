package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator looks up discount codes and evaluates their eligibility
// against an order amount. Validation never consumes a use; redemption
// is a separate transactional step so that checking a code in the cart
// does not burn it.
type Validator struct {
	repo Repository
	now  func() time.Time
}

// NewValidator creates a Validator backed by the given Repository.
func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// Check looks up the code (case-insensitively), verifies the validity
// invariant (active flag, valid window, usage limit), and computes the
// discount for the given subtotal. On success it returns the code
// record and the computed result.
func (v *Validator) Check(ctx context.Context, code string, subtotal decimal.Decimal) (*Code, Result, error) {
	rec, err := v.repo.FindByCode(ctx, Normalize(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Result{}, ErrNotFound
		}
		return nil, Result{}, errors.Wrap(err, "lookup discount code")
	}

	if err := v.checkValidity(rec); err != nil {
		return nil, Result{}, err
	}

	res, err := Calculate(rec, subtotal)
	if err != nil {
		return nil, Result{}, err
	}

	return rec, res, nil
}

func (v *Validator) checkValidity(rec *Code) error {
	if !rec.IsActive {
		return ErrInactive
	}

	now := v.now()
	if rec.ValidFrom != nil && now.Before(*rec.ValidFrom) {
		return ErrNotYetActive
	}
	if rec.ValidUntil != nil && now.After(*rec.ValidUntil) {
		return ErrExpired
	}

	if rec.UsageLimit > 0 && rec.UsedCount >= rec.UsageLimit {
		return ErrUsageLimitReached
	}

	return nil
}

// Reason maps a validation error to a human-readable message for
// display. It returns an empty string for errors that are not
// validation outcomes.
func Reason(err error) string {
	var belowMin *BelowMinimumError
	switch {
	case errors.Is(err, ErrNotFound):
		return "Invalid discount code"
	case errors.Is(err, ErrInactive):
		return "This discount code is no longer active"
	case errors.Is(err, ErrNotYetActive):
		return "This discount code is not active yet"
	case errors.Is(err, ErrExpired):
		return "This discount code has expired"
	case errors.Is(err, ErrUsageLimitReached):
		return "This discount code has reached its usage limit"
	case errors.As(err, &belowMin):
		return "Minimum order amount of " + belowMin.Minimum.StringFixed(2) + " not met"
	default:
		return ""
	}
}
