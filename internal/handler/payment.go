package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/payment"
)

type createPaymentIntentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	OrderNumber   string          `json:"order_number,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
}

type createPaymentIntentResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	Status          string `json:"status"`
}

// CreatePaymentIntent forwards the amount and order metadata to the
// payment processor and returns the client secret the frontend needs
// to confirm the payment.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeError(w, http.StatusServiceUnavailable, "payment processing is not configured")
		return
	}

	var req createPaymentIntentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	intent, err := h.payments.CreateIntent(r.Context(), payment.CreateIntentParams{
		Amount:        req.Amount,
		Currency:      req.Currency,
		OrderNumber:   req.OrderNumber,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, createPaymentIntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Status:          intent.Status,
	})
}
