package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/discount"
)

const (
	discountColumns = `id, code, description, discount_type, discount_value,
		minimum_order_amount, maximum_discount_amount, usage_limit, used_count,
		is_active, valid_from, valid_until, created_at, updated_at`

	findDiscountByCodeSQL = `SELECT ` + discountColumns + `
		FROM discount_codes WHERE UPPER(code) = UPPER($1)`

	listDiscountsSQL = `SELECT ` + discountColumns + `
		FROM discount_codes ORDER BY created_at DESC`

	getDiscountByIDSQL = `SELECT ` + discountColumns + `
		FROM discount_codes WHERE id = $1`

	insertDiscountSQL = `INSERT INTO discount_codes (id, code, description,
		discount_type, discount_value, minimum_order_amount, maximum_discount_amount,
		usage_limit, is_active, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	updateDiscountSQL = `UPDATE discount_codes SET description = $2,
		discount_type = $3, discount_value = $4, minimum_order_amount = $5,
		maximum_discount_amount = $6, usage_limit = $7, is_active = $8,
		valid_from = $9, valid_until = $10, updated_at = NOW()
		WHERE id = $1`

	deactivateDiscountSQL = `UPDATE discount_codes SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1`

	deleteDiscountSQL = `DELETE FROM discount_codes WHERE id = $1`

	countUsagesSQL = `SELECT COUNT(*) FROM discount_usages WHERE discount_code_id = $1`

	// The increment only matches while the limit still has room, so two
	// concurrent redemptions cannot oversell the last use.
	redeemDiscountSQL = `UPDATE discount_codes
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`

	insertUsageSQL = `INSERT INTO discount_usages (id, discount_code_id, order_id,
		customer_email, discount_amount, order_amount, ip_address, user_agent, used_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9)`

	discountExistsSQL = `SELECT EXISTS (SELECT 1 FROM discount_codes WHERE id = $1)`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL,
// plus the administrative CRUD surface.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode looks up a discount code case-insensitively.
// Returns discount.ErrNotFound when no such code exists.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Code, error) {
	rows, err := r.pool.Query(ctx, findDiscountByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding discount code %q: %w", code, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanDiscountCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("finding discount code %q: %w", code, err)
	}
	return &rec, nil
}

// GetByID fetches a discount code by its row ID.
func (r *DiscountRepository) GetByID(ctx context.Context, id string) (*discount.Code, error) {
	rows, err := r.pool.Query(ctx, getDiscountByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting discount code %q: %w", id, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanDiscountCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("getting discount code %q: %w", id, err)
	}
	return &rec, nil
}

// List returns all discount codes, newest first.
func (r *DiscountRepository) List(ctx context.Context) ([]discount.Code, error) {
	rows, err := r.pool.Query(ctx, listDiscountsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing discount codes: %w", err)
	}

	codes, err := pgx.CollectRows(rows, scanDiscountCode)
	if err != nil {
		return nil, fmt.Errorf("listing discount codes: %w", err)
	}
	return codes, nil
}

// Create inserts a new discount code. The code is stored in its
// canonical uppercase form.
func (r *DiscountRepository) Create(ctx context.Context, rec *discount.Code) error {
	rec.Code = discount.Normalize(rec.Code)
	_, err := r.pool.Exec(ctx, insertDiscountSQL,
		rec.ID, rec.Code, rec.Description, string(rec.DiscountType), rec.DiscountValue,
		rec.MinimumOrderAmount, rec.MaximumDiscountAmount,
		nullableLimit(rec.UsageLimit), rec.IsActive, rec.ValidFrom, rec.ValidUntil,
	)
	if err != nil {
		return fmt.Errorf("creating discount code %q: %w", rec.Code, err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing discount code.
func (r *DiscountRepository) Update(ctx context.Context, rec *discount.Code) error {
	tag, err := r.pool.Exec(ctx, updateDiscountSQL,
		rec.ID, rec.Description, string(rec.DiscountType), rec.DiscountValue,
		rec.MinimumOrderAmount, rec.MaximumDiscountAmount,
		nullableLimit(rec.UsageLimit), rec.IsActive, rec.ValidFrom, rec.ValidUntil,
	)
	if err != nil {
		return fmt.Errorf("updating discount code %q: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// Delete removes a discount code. Codes referenced by usage rows are
// deactivated instead, so the usage ledger never orphans. The returned
// bool reports whether the row was physically deleted.
func (r *DiscountRepository) Delete(ctx context.Context, id string) (bool, error) {
	var usages int
	if err := r.pool.QueryRow(ctx, countUsagesSQL, id).Scan(&usages); err != nil {
		return false, fmt.Errorf("counting usages for discount code %q: %w", id, err)
	}

	if usages > 0 {
		tag, err := r.pool.Exec(ctx, deactivateDiscountSQL, id)
		if err != nil {
			return false, fmt.Errorf("deactivating discount code %q: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return false, discount.ErrNotFound
		}
		return false, nil
	}

	tag, err := r.pool.Exec(ctx, deleteDiscountSQL, id)
	if err != nil {
		return false, fmt.Errorf("deleting discount code %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return false, discount.ErrNotFound
	}
	return true, nil
}

// Redeem records a usage row and conditionally increments used_count in
// one transaction. Returns discount.ErrUsageLimitReached when the
// code's limit is already exhausted; nothing is written in that case.
func (r *DiscountRepository) Redeem(ctx context.Context, codeID string, usage discount.Usage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning redeem transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := redeemInTx(ctx, tx, codeID, usage); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing redeem transaction: %w", err)
	}
	return nil
}

// redeemInTx runs the conditional increment and usage insert inside an
// existing transaction. Shared with the order repository so order
// creation and redemption commit atomically.
func redeemInTx(ctx context.Context, tx pgx.Tx, codeID string, usage discount.Usage) error {
	tag, err := tx.Exec(ctx, redeemDiscountSQL, codeID)
	if err != nil {
		return fmt.Errorf("incrementing used_count for discount code %q: %w", codeID, err)
	}
	if tag.RowsAffected() == 0 {
		// The conditional update matches nothing for an exhausted limit
		// AND for an unknown ID; tell those apart before reporting.
		var exists bool
		if err := tx.QueryRow(ctx, discountExistsSQL, codeID).Scan(&exists); err != nil {
			return fmt.Errorf("checking discount code %q: %w", codeID, err)
		}
		if !exists {
			return discount.ErrNotFound
		}
		return discount.ErrUsageLimitReached
	}

	usedAt := usage.UsedAt
	if usedAt.IsZero() {
		usedAt = time.Now().UTC()
	}

	_, err = tx.Exec(ctx, insertUsageSQL,
		usage.ID, codeID, usage.OrderID, usage.CustomerEmail,
		usage.DiscountAmount, usage.OrderAmount,
		usage.IPAddress, usage.UserAgent, usedAt,
	)
	if err != nil {
		return fmt.Errorf("recording discount usage for code %q: %w", codeID, err)
	}
	return nil
}

func nullableLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

func scanDiscountCode(row pgx.CollectableRow) (discount.Code, error) {
	var (
		rec          discount.Code
		discountType string
		maxDiscount  *decimal.Decimal
		usageLimit   *int32
	)
	err := row.Scan(
		&rec.ID, &rec.Code, &rec.Description, &discountType, &rec.DiscountValue,
		&rec.MinimumOrderAmount, &maxDiscount, &usageLimit, &rec.UsedCount,
		&rec.IsActive, &rec.ValidFrom, &rec.ValidUntil, &rec.CreatedAt, &rec.UpdatedAt,
	)
	rec.DiscountType = discount.Type(discountType)
	rec.MaximumDiscountAmount = maxDiscount
	if usageLimit != nil {
		rec.UsageLimit = int(*usageLimit)
	}
	return rec, err
}
