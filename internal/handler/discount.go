package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/discount"
)

type validateDiscountRequest struct {
	Code          string          `json:"code"`
	OrderAmount   decimal.Decimal `json:"orderAmount"`
	CustomerEmail string          `json:"customerEmail,omitempty"`
}

type discountValidation struct {
	Valid          bool             `json:"valid"`
	Code           string           `json:"code,omitempty"`
	DiscountType   discount.Type    `json:"discount_type,omitempty"`
	DiscountValue  *decimal.Decimal `json:"discount_value,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	FinalAmount    *decimal.Decimal `json:"final_amount,omitempty"`
	Error          string           `json:"error,omitempty"`
}

type validateDiscountResponse struct {
	Validation discountValidation `json:"validation"`
}

// ValidateDiscount checks a discount code against an order amount. An
// invalid code is not an HTTP error: the endpoint answers 200 with
// valid=false and a display reason, mirroring what the cart shows.
func (h *Handler) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	var req validateDiscountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	rec, res, err := h.discounts.Check(r.Context(), req.Code, req.OrderAmount)
	if err != nil {
		if reason := discount.Reason(err); reason != "" {
			writeData(w, http.StatusOK, validateDiscountResponse{
				Validation: discountValidation{Valid: false, Error: reason},
			})
			return
		}
		writeDomainError(w, r, err)
		return
	}

	amount := res.DiscountAmount.Round(2)
	final := res.FinalAmount.Round(2)
	writeData(w, http.StatusOK, validateDiscountResponse{
		Validation: discountValidation{
			Valid:          true,
			Code:           rec.Code,
			DiscountType:   rec.DiscountType,
			DiscountValue:  &rec.DiscountValue,
			DiscountAmount: &amount,
			FinalAmount:    &final,
		},
	})
}

type applyDiscountRequest struct {
	Code           string          `json:"code"`
	OrderID        string          `json:"orderId"`
	CustomerEmail  string          `json:"customerEmail"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	OrderAmount    decimal.Decimal `json:"orderAmount"`
	IPAddress      string          `json:"ipAddress,omitempty"`
	UserAgent      string          `json:"userAgent,omitempty"`
}

// ApplyDiscount records a redemption for an existing order: one usage
// row plus the conditional counter increment, atomically.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req applyDiscountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "code and orderId are required")
		return
	}

	rec, err := h.codes.FindByCode(r.Context(), discount.Normalize(req.Code))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	usage := discount.Usage{
		ID:             uuid.New().String(),
		DiscountCodeID: rec.ID,
		OrderID:        req.OrderID,
		CustomerEmail:  req.CustomerEmail,
		DiscountAmount: req.DiscountAmount,
		OrderAmount:    req.OrderAmount,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		UsedAt:         time.Now().UTC(),
	}
	if err := h.codes.Redeem(r.Context(), rec.ID, usage); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"applied": true, "code": rec.Code})
}
