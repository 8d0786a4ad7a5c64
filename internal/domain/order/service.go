package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/discount"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/shipping"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems      = errors.New("items required")
	ErrMissingCustomer = errors.New("customer name and email required")
	ErrNotFound        = errors.New("order not found")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ItemInput is one requested line item.
type ItemInput struct {
	ProductID      string
	DesignFileID   string
	Variants       map[string]string
	Customizations map[string]string
	Quantity       int
	UnitPrice      decimal.Decimal
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Customer        CustomerInfo
	Items           []ItemInput
	ShippingAddress Address
	DiscountCode    string
	PaymentIntentID string
	IPAddress       string
	UserAgent       string
}

// ServiceConfig holds the pricing configuration for the order service.
type ServiceConfig struct {
	// NumberPrefix is prepended to generated order numbers.
	NumberPrefix string
	// StandardTaxRate is the VAT percentage for regular catalog orders.
	StandardTaxRate decimal.Decimal
	// CustomPrintTaxRate applies when an order contains at least one
	// custom-print line (an item carrying a design file).
	CustomPrintTaxRate decimal.Decimal
	Shipping           shipping.Policy
}

// Service encapsulates order placement business logic.
type Service struct {
	cfg       ServiceConfig
	discounts *discount.Validator
	orders    Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(cfg ServiceConfig, discounts *discount.Validator, orders Repository) *Service {
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "ORD"
	}
	return &Service{
		cfg:       cfg,
		discounts: discounts,
		orders:    orders,
	}
}

// PlaceOrder validates the request, applies an optional discount code,
// computes totals, and persists the order with its items and discount
// usage in one transaction.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.Customer.Name == "" || req.Customer.Email == "" {
		return nil, ErrMissingCustomer
	}

	items := make([]Item, len(req.Items))
	customPrint := false
	for i, in := range req.Items {
		if in.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: in.ProductID}
		}
		if in.DesignFileID != "" {
			customPrint = true
		}
		qty := decimal.NewFromInt(int64(in.Quantity))
		items[i] = Item{
			ID:             uuid.New().String(),
			ProductID:      in.ProductID,
			DesignFileID:   in.DesignFileID,
			Variants:       in.Variants,
			Customizations: in.Customizations,
			Quantity:       in.Quantity,
			UnitPrice:      in.UnitPrice,
			TotalPrice:     in.UnitPrice.Mul(qty),
		}
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.TotalPrice)
	}

	// Apply discount when a code is provided. Validation failures abort
	// the order so the customer never pays a price they did not see.
	discountAmount := decimal.Zero
	var discountType discount.Type
	var discountRec *discount.Code
	if req.DiscountCode != "" {
		rec, res, err := s.discounts.Check(ctx, req.DiscountCode, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "check discount")
		}
		discountRec = rec
		discountAmount = res.DiscountAmount
		discountType = rec.DiscountType
	}

	taxRate := s.cfg.StandardTaxRate
	if customPrint {
		taxRate = s.cfg.CustomPrintTaxRate
	}

	shippingCost := s.cfg.Shipping.Cost(req.ShippingAddress.Country, subtotal)
	totals := CalculateTotals(items, shippingCost, taxRate, discountAmount)

	o := &Order{
		ID:              uuid.New().String(),
		OrderNumber:     NewNumber(s.cfg.NumberPrefix),
		Status:          StatusPending,
		Customer:        req.Customer,
		Items:           items,
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		Tax:             totals.Tax,
		Total:           totals.Total,
		OriginalTotal:   totals.Subtotal.Add(totals.Shipping).Add(totals.Tax),
		PaymentIntentID: req.PaymentIntentID,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       time.Now().UTC(),
	}

	var usage *discount.Usage
	if discountRec != nil {
		o.DiscountCode = discountRec.Code
		o.DiscountAmount = discountAmount
		o.DiscountType = discountType
		usage = &discount.Usage{
			ID:             uuid.New().String(),
			DiscountCodeID: discountRec.ID,
			OrderID:        o.ID,
			CustomerEmail:  req.Customer.Email,
			DiscountAmount: discountAmount,
			OrderAmount:    totals.Subtotal,
			IPAddress:      req.IPAddress,
			UserAgent:      req.UserAgent,
			UsedAt:         time.Now().UTC(),
		}
	}

	if err := s.orders.Create(ctx, o, usage); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// UpdateStatus transitions an order's fulfillment status, rejecting
// transitions the state machine does not allow.
func (s *Service) UpdateStatus(ctx context.Context, id string, next Status) (*Order, error) {
	if !next.IsValid() {
		return nil, errors.Errorf("unknown status %q", next)
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, next) {
		return nil, &IllegalTransitionError{From: o.Status, To: next}
	}

	if err := s.orders.UpdateStatus(ctx, id, next); err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	o.Status = next
	return o, nil
}

// IllegalTransitionError indicates a status change the state machine
// does not permit.
type IllegalTransitionError struct {
	From, To Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// RecordPaymentStatus mirrors the payment processor's status onto the
// order identified by id, deriving a fulfillment transition when the
// payment outcome implies one.
func (s *Service) RecordPaymentStatus(ctx context.Context, id, paymentStatus string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.recordPayment(ctx, o, paymentStatus)
}

// RecordPaymentStatusByIntent is RecordPaymentStatus keyed by the
// payment processor's intent ID instead of the order ID.
func (s *Service) RecordPaymentStatusByIntent(ctx context.Context, paymentIntentID, paymentStatus string) (*Order, error) {
	o, err := s.orders.GetByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	return s.recordPayment(ctx, o, paymentStatus)
}

func (s *Service) recordPayment(ctx context.Context, o *Order, paymentStatus string) (*Order, error) {
	derived := DeriveStatus(paymentStatus)
	if derived != "" && !CanTransition(o.Status, derived) {
		// A late webhook must not drag an order backwards.
		derived = ""
	}

	if err := s.orders.UpdatePaymentStatus(ctx, o.ID, paymentStatus, derived); err != nil {
		return nil, errors.Wrap(err, "update payment status")
	}

	o.PaymentStatus = paymentStatus
	if derived != "" {
		o.Status = derived
	}
	return o, nil
}
