// Package handler exposes the storefront API over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/discount"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/order"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/email"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/payment"
)

// OrderService is the order placement and status surface the handlers use.
type OrderService interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
	UpdateStatus(ctx context.Context, id string, next order.Status) (*order.Order, error)
	RecordPaymentStatus(ctx context.Context, id, paymentStatus string) (*order.Order, error)
	RecordPaymentStatusByIntent(ctx context.Context, paymentIntentID, paymentStatus string) (*order.Order, error)
}

// DiscountChecker validates a code against an order amount.
type DiscountChecker interface {
	Check(ctx context.Context, code string, subtotal decimal.Decimal) (*discount.Code, discount.Result, error)
}

// DiscountStore is the administrative discount surface plus redemption.
type DiscountStore interface {
	FindByCode(ctx context.Context, code string) (*discount.Code, error)
	GetByID(ctx context.Context, id string) (*discount.Code, error)
	List(ctx context.Context) ([]discount.Code, error)
	Create(ctx context.Context, rec *discount.Code) error
	Update(ctx context.Context, rec *discount.Code) error
	Delete(ctx context.Context, id string) (bool, error)
	Redeem(ctx context.Context, codeID string, usage discount.Usage) error
}

// OrderStore is the read surface for administrative order listings.
type OrderStore interface {
	List(ctx context.Context, params order.ListParams) ([]order.Order, error)
}

// PaymentClient creates payment intents.
type PaymentClient interface {
	CreateIntent(ctx context.Context, p payment.CreateIntentParams) (*payment.Intent, error)
}

// EmailSender sends order emails.
type EmailSender interface {
	SendOrderEmails(ctx context.Context, details email.OrderDetails) error
}

// Handler holds the dependencies for all API endpoints.
type Handler struct {
	orders    OrderService
	orderRepo OrderStore
	discounts DiscountChecker
	codes     DiscountStore
	payments  PaymentClient
	emails    EmailSender
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(
	orders OrderService,
	orderRepo OrderStore,
	discounts DiscountChecker,
	codes DiscountStore,
	payments PaymentClient,
	emails EmailSender,
) *Handler {
	return &Handler{
		orders:    orders,
		orderRepo: orderRepo,
		discounts: discounts,
		codes:     codes,
		payments:  payments,
		emails:    emails,
	}
}

// envelope is the JSON response wrapper every endpoint uses.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

// writeDomainError maps a domain error onto an HTTP response: business
// rule and validation failures become 400, missing entities 404, and
// everything else a logged 500 with a generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidQty *order.InvalidQuantityError
		illegal    *order.IllegalTransitionError
		belowMin   *discount.BelowMinimumError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrMissingCustomer),
		errors.As(err, &invalidQty),
		errors.As(err, &illegal):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, discount.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, discount.ErrInactive),
		errors.Is(err, discount.ErrNotYetActive),
		errors.Is(err, discount.ErrExpired),
		errors.Is(err, discount.ErrUsageLimitReached),
		errors.As(err, &belowMin):
		writeError(w, http.StatusBadRequest, discount.Reason(err))
	case errors.Is(err, email.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		zctx.From(r.Context()).Error("internal error",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
