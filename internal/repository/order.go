package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/discount"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, order_number, status,
		customer_name, customer_email, customer_phone, customer_company,
		subtotal, shipping, tax, total, original_total,
		discount_code, discount_amount, discount_type,
		payment_intent_id, payment_status,
		shipping_street, shipping_city, shipping_postcode, shipping_country,
		created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		NULLIF($13, ''), $14, NULLIF($15, ''), NULLIF($16, ''), $17,
		$18, $19, $20, $21, NOW(), NOW())`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id,
		design_file_id, variants, customizations, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)`

	orderColumns = `id, order_number, status,
		customer_name, customer_email, customer_phone, customer_company,
		subtotal, shipping, tax, total, original_total,
		COALESCE(discount_code, ''), COALESCE(discount_amount, 0), COALESCE(discount_type, ''),
		COALESCE(payment_intent_id, ''), payment_status,
		shipping_street, shipping_city, shipping_postcode, shipping_country,
		created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByIntentSQL = `SELECT ` + orderColumns + ` FROM orders WHERE payment_intent_id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	listOrderItemsSQL = `SELECT id, order_id, product_id, COALESCE(design_file_id, ''),
		variants, customizations, quantity, unit_price, total_price
		FROM order_items WHERE order_id = $1`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`

	updatePaymentStatusSQL = `UPDATE orders SET payment_status = $2,
		status = COALESCE(NULLIF($3, ''), status), updated_at = NOW()
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order, its line items, and the discount usage
// (when present) in a single transaction. Partial failure rolls the
// whole order back; a usage-limit conflict surfaces as
// discount.ErrUsageLimitReached.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, usage *discount.Usage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.OrderNumber, string(o.Status),
		o.Customer.Name, o.Customer.Email, o.Customer.Phone, o.Customer.Company,
		o.Subtotal, o.Shipping, o.Tax, o.Total, o.OriginalTotal,
		o.DiscountCode, o.DiscountAmount, string(o.DiscountType),
		o.PaymentIntentID, o.PaymentStatus,
		o.ShippingAddress.Street, o.ShippingAddress.City,
		o.ShippingAddress.Postcode, o.ShippingAddress.Country,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.OrderNumber, err)
	}

	for _, item := range o.Items {
		variants, err := json.Marshal(orEmpty(item.Variants))
		if err != nil {
			return fmt.Errorf("marshaling variants for item %q: %w", item.ProductID, err)
		}
		customizations, err := json.Marshal(orEmpty(item.Customizations))
		if err != nil {
			return fmt.Errorf("marshaling customizations for item %q: %w", item.ProductID, err)
		}

		_, err = tx.Exec(ctx, insertOrderItemSQL,
			item.ID, o.ID, item.ProductID, item.DesignFileID,
			variants, customizations, item.Quantity, item.UnitPrice, item.TotalPrice,
		)
		if err != nil {
			return fmt.Errorf("creating item %q for order %q: %w", item.ProductID, o.OrderNumber, err)
		}
	}

	if usage != nil {
		if err := redeemInTx(ctx, tx, usage.DiscountCodeID, *usage); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.OrderNumber, err)
	}
	return nil
}

// GetByID fetches an order and its items.
// Returns order.ErrNotFound when no such order exists.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIDSQL, id)
}

// GetByPaymentIntentID fetches an order by its payment processor handle.
func (r *OrderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIntentSQL, paymentIntentID)
}

func (r *OrderRepository) getOne(ctx context.Context, sql, arg string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("fetching order: %w", err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("fetching order: %w", err)
	}

	items, err := r.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// List returns orders newest first. Items are loaded per order; admin
// listings are small enough that the extra round trips do not matter.
func (r *OrderRepository) List(ctx context.Context, params order.ListParams) ([]order.Order, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	out, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	for i := range out {
		items, err := r.loadItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// UpdateStatus sets the fulfillment status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating status for order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// UpdatePaymentStatus mirrors the payment processor status and applies
// the derived fulfillment transition when one is given.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id, paymentStatus string, derived order.Status) error {
	tag, err := r.pool.Exec(ctx, updatePaymentStatusSQL, id, paymentStatus, string(derived))
	if err != nil {
		return fmt.Errorf("updating payment status for order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading items for order %q: %w", orderID, err)
	}

	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("loading items for order %q: %w", orderID, err)
	}
	return items, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		status       string
		discountType string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &status,
		&o.Customer.Name, &o.Customer.Email, &o.Customer.Phone, &o.Customer.Company,
		&o.Subtotal, &o.Shipping, &o.Tax, &o.Total, &o.OriginalTotal,
		&o.DiscountCode, &o.DiscountAmount, &discountType,
		&o.PaymentIntentID, &o.PaymentStatus,
		&o.ShippingAddress.Street, &o.ShippingAddress.City,
		&o.ShippingAddress.Postcode, &o.ShippingAddress.Country,
		&o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	o.DiscountType = discount.Type(discountType)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		item           order.Item
		variants       []byte
		customizations []byte
	)
	err := row.Scan(
		&item.ID, &item.OrderID, &item.ProductID, &item.DesignFileID,
		&variants, &customizations, &item.Quantity, &item.UnitPrice, &item.TotalPrice,
	)
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal(variants, &item.Variants); err != nil {
		return item, fmt.Errorf("unmarshaling variants for item %q: %w", item.ID, err)
	}
	if err := json.Unmarshal(customizations, &item.Customizations); err != nil {
		return item, fmt.Errorf("unmarshaling customizations for item %q: %w", item.ID, err)
	}
	return item, nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
