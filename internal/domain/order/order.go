// Package order implements order totals calculation, order numbering,
// the order status state machine, and the place-order flow.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/discount"
)

// CustomerInfo identifies the customer placing an order.
type CustomerInfo struct {
	Name    string
	Email   string
	Phone   string
	Company string
}

// Address is a shipping destination.
type Address struct {
	Street   string
	City     string
	Postcode string
	Country  string
}

// Item is a single line within an order. TotalPrice is always
// UnitPrice * Quantity.
type Item struct {
	ID             string
	OrderID        string
	ProductID      string
	DesignFileID   string
	Variants       map[string]string
	Customizations map[string]string
	Quantity       int
	UnitPrice      decimal.Decimal
	TotalPrice     decimal.Decimal
}

// Order is a customer purchase with its computed pricing.
type Order struct {
	ID              string
	OrderNumber     string
	Status          Status
	Customer        CustomerInfo
	Items           []Item
	Subtotal        decimal.Decimal
	Shipping        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	OriginalTotal   decimal.Decimal
	DiscountCode    string
	DiscountAmount  decimal.Decimal
	DiscountType    discount.Type
	PaymentIntentID string
	PaymentStatus   string
	ShippingAddress Address
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ListParams bounds a paginated order listing.
type ListParams struct {
	Limit  int
	Offset int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order, its items, and (when a discount was
	// applied) the discount usage and counter increment, all within a
	// single transaction. A usage-limit conflict surfaces as
	// discount.ErrUsageLimitReached and nothing is written.
	Create(ctx context.Context, o *Order, usage *discount.Usage) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Order, error)
	List(ctx context.Context, params ListParams) ([]Order, error)
	// UpdateStatus transitions the order status. Transition legality is
	// checked by the caller via CanTransition.
	UpdateStatus(ctx context.Context, id string, status Status) error
	// UpdatePaymentStatus mirrors the payment processor's status and,
	// when derived is non-empty, moves the order status along with it.
	UpdatePaymentStatus(ctx context.Context, id, paymentStatus string, derived Status) error
}
