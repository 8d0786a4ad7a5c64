package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/discount"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/order"
)

// ListOrders returns orders newest first, with limit/offset paging.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	params := order.ListParams{Limit: 50}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		params.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		params.Offset = n
	}

	orders, err := h.orderRepo.List(r.Context(), params)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]orderDTO, len(orders))
	for i := range orders {
		out[i] = toOrderDTO(&orders[i])
	}
	writeData(w, http.StatusOK, out)
}

type orderStatusRequest struct {
	Status order.Status `json:"status"`
}

// UpdateOrderStatus transitions an order through the fulfillment state
// machine; illegal transitions are rejected.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOrderDTO(o))
}

type discountCodeDTO struct {
	ID                    string           `json:"id"`
	Code                  string           `json:"code"`
	Description           string           `json:"description,omitempty"`
	DiscountType          discount.Type    `json:"discount_type"`
	DiscountValue         decimal.Decimal  `json:"discount_value"`
	MinimumOrderAmount    decimal.Decimal  `json:"minimum_order_amount"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount,omitempty"`
	UsageLimit            int              `json:"usage_limit,omitempty"`
	UsedCount             int              `json:"used_count"`
	IsActive              bool             `json:"is_active"`
	ValidFrom             *time.Time       `json:"valid_from,omitempty"`
	ValidUntil            *time.Time       `json:"valid_until,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

type discountCodeRequest struct {
	Code                  string           `json:"code"`
	Description           string           `json:"description,omitempty"`
	DiscountType          discount.Type    `json:"discount_type"`
	DiscountValue         decimal.Decimal  `json:"discount_value"`
	MinimumOrderAmount    decimal.Decimal  `json:"minimum_order_amount"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount,omitempty"`
	UsageLimit            int              `json:"usage_limit,omitempty"`
	IsActive              *bool            `json:"is_active,omitempty"`
	ValidFrom             *time.Time       `json:"valid_from,omitempty"`
	ValidUntil            *time.Time       `json:"valid_until,omitempty"`
}

func (req *discountCodeRequest) validate() string {
	if req.Code == "" {
		return "code is required"
	}
	if req.DiscountType != discount.TypePercentage && req.DiscountType != discount.TypeFixedAmount {
		return "discount_type must be percentage or fixed_amount"
	}
	if req.DiscountValue.IsNegative() {
		return "discount_value must not be negative"
	}
	if req.MinimumOrderAmount.IsNegative() {
		return "minimum_order_amount must not be negative"
	}
	return ""
}

// ListDiscountCodes returns all discount codes, newest first.
func (h *Handler) ListDiscountCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.codes.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]discountCodeDTO, len(codes))
	for i := range codes {
		out[i] = toDiscountCodeDTO(&codes[i])
	}
	writeData(w, http.StatusOK, out)
}

// CreateDiscountCode creates a discount code; the code value is stored
// uppercase.
func (h *Handler) CreateDiscountCode(w http.ResponseWriter, r *http.Request) {
	var req discountCodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	rec := &discount.Code{
		ID:                    uuid.New().String(),
		Code:                  discount.Normalize(req.Code),
		Description:           req.Description,
		DiscountType:          req.DiscountType,
		DiscountValue:         req.DiscountValue,
		MinimumOrderAmount:    req.MinimumOrderAmount,
		MaximumDiscountAmount: req.MaximumDiscountAmount,
		UsageLimit:            req.UsageLimit,
		IsActive:              active,
		ValidFrom:             req.ValidFrom,
		ValidUntil:            req.ValidUntil,
	}
	if err := h.codes.Create(r.Context(), rec); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, toDiscountCodeDTO(rec))
}

// UpdateDiscountCode rewrites the mutable fields of a discount code.
// The code string itself is immutable once issued.
func (h *Handler) UpdateDiscountCode(w http.ResponseWriter, r *http.Request) {
	var req discountCodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.codes.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if req.Description != "" {
		rec.Description = req.Description
	}
	if req.DiscountType != "" {
		rec.DiscountType = req.DiscountType
	}
	if !req.DiscountValue.IsZero() {
		rec.DiscountValue = req.DiscountValue
	}
	rec.MinimumOrderAmount = req.MinimumOrderAmount
	rec.MaximumDiscountAmount = req.MaximumDiscountAmount
	rec.UsageLimit = req.UsageLimit
	if req.IsActive != nil {
		rec.IsActive = *req.IsActive
	}
	rec.ValidFrom = req.ValidFrom
	rec.ValidUntil = req.ValidUntil

	if rec.DiscountValue.IsNegative() || rec.MinimumOrderAmount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amounts must not be negative")
		return
	}

	if err := h.codes.Update(r.Context(), rec); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toDiscountCodeDTO(rec))
}

// DeleteDiscountCode removes a code, or deactivates it if redemption
// history references it.
func (h *Handler) DeleteDiscountCode(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.codes.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": deleted, "deactivated": !deleted})
}

func toDiscountCodeDTO(rec *discount.Code) discountCodeDTO {
	return discountCodeDTO{
		ID:                    rec.ID,
		Code:                  rec.Code,
		Description:           rec.Description,
		DiscountType:          rec.DiscountType,
		DiscountValue:         rec.DiscountValue,
		MinimumOrderAmount:    rec.MinimumOrderAmount,
		MaximumDiscountAmount: rec.MaximumDiscountAmount,
		UsageLimit:            rec.UsageLimit,
		UsedCount:             rec.UsedCount,
		IsActive:              rec.IsActive,
		ValidFrom:             rec.ValidFrom,
		ValidUntil:            rec.ValidUntil,
		CreatedAt:             rec.CreatedAt,
		UpdatedAt:             rec.UpdatedAt,
	}
}
