package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/discount"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/order"
	"github.com/invoicesolv/silverback-shop-connect-sub000/pkg/httpmiddleware"
)

type customerInfoDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

type addressDTO struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

type orderItemDTO struct {
	ID             string            `json:"id,omitempty"`
	ProductID      string            `json:"product_id"`
	DesignFileID   string            `json:"design_file_id,omitempty"`
	Variants       map[string]string `json:"variants,omitempty"`
	Customizations map[string]string `json:"customizations,omitempty"`
	Quantity       int               `json:"quantity"`
	UnitPrice      decimal.Decimal   `json:"unit_price"`
	TotalPrice     decimal.Decimal   `json:"total_price"`
}

type orderDTO struct {
	ID              string           `json:"id"`
	OrderNumber     string           `json:"order_number"`
	Status          order.Status     `json:"status"`
	CustomerInfo    customerInfoDTO  `json:"customer_info"`
	Items           []orderItemDTO   `json:"items"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	Shipping        decimal.Decimal  `json:"shipping"`
	Tax             decimal.Decimal  `json:"tax"`
	Total           decimal.Decimal  `json:"total"`
	OriginalTotal   decimal.Decimal  `json:"original_total"`
	DiscountCode    string           `json:"discount_code,omitempty"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount,omitempty"`
	DiscountType    discount.Type    `json:"discount_type,omitempty"`
	PaymentIntentID string           `json:"payment_intent_id,omitempty"`
	PaymentStatus   string           `json:"stripe_payment_status,omitempty"`
	ShippingAddress addressDTO       `json:"shipping_address"`
	CreatedAt       string           `json:"created_at"`
}

type createOrderRequest struct {
	CustomerInfo    customerInfoDTO `json:"customer_info"`
	Items           []orderItemDTO  `json:"items"`
	ShippingAddress addressDTO      `json:"shipping_address"`
	DiscountCode    string          `json:"discount_code,omitempty"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`

	// Pricing as the storefront computed it. Accepted so the documented
	// payload decodes, but never trusted: totals are recomputed server
	// side from the line items.
	Subtotal       decimal.Decimal  `json:"subtotal,omitempty"`
	Shipping       decimal.Decimal  `json:"shipping,omitempty"`
	Tax            decimal.Decimal  `json:"tax,omitempty"`
	Total          decimal.Decimal  `json:"total,omitempty"`
	OriginalTotal  decimal.Decimal  `json:"original_total,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	DiscountType   discount.Type    `json:"discount_type,omitempty"`
}

// CreateOrder places an order. Totals are recomputed server side from
// the submitted line items; client-supplied totals are ignored.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemInput{
			ProductID:      it.ProductID,
			DesignFileID:   it.DesignFileID,
			Variants:       it.Variants,
			Customizations: it.Customizations,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
		}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Customer: order.CustomerInfo{
			Name:    req.CustomerInfo.Name,
			Email:   req.CustomerInfo.Email,
			Phone:   req.CustomerInfo.Phone,
			Company: req.CustomerInfo.Company,
		},
		Items: items,
		ShippingAddress: order.Address{
			Street:   req.ShippingAddress.Street,
			City:     req.ShippingAddress.City,
			Postcode: req.ShippingAddress.Postcode,
			Country:  req.ShippingAddress.Country,
		},
		DiscountCode:    req.DiscountCode,
		PaymentIntentID: req.PaymentIntentID,
		IPAddress:       httpmiddleware.ClientIP(r),
		UserAgent:       r.UserAgent(),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, toOrderDTO(o))
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"payment_status"`
}

// UpdatePaymentStatus mirrors the payment processor status onto the
// order addressed by ID.
func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req paymentStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentStatus == "" {
		writeError(w, http.StatusBadRequest, "payment_status is required")
		return
	}

	o, err := h.orders.RecordPaymentStatus(r.Context(), chi.URLParam(r, "id"), req.PaymentStatus)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOrderDTO(o))
}

// UpdatePaymentStatusByIntent is UpdatePaymentStatus keyed by the
// payment intent ID, for callers that never learned the order ID.
func (h *Handler) UpdatePaymentStatusByIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentStatus == "" {
		writeError(w, http.StatusBadRequest, "payment_status is required")
		return
	}

	o, err := h.orders.RecordPaymentStatusByIntent(r.Context(), chi.URLParam(r, "paymentIntentID"), req.PaymentStatus)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOrderDTO(o))
}

func toOrderDTO(o *order.Order) orderDTO {
	items := make([]orderItemDTO, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemDTO{
			ID:             it.ID,
			ProductID:      it.ProductID,
			DesignFileID:   it.DesignFileID,
			Variants:       it.Variants,
			Customizations: it.Customizations,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice.Round(2),
			TotalPrice:     it.TotalPrice.Round(2),
		}
	}

	dto := orderDTO{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		CustomerInfo: customerInfoDTO{
			Name:    o.Customer.Name,
			Email:   o.Customer.Email,
			Phone:   o.Customer.Phone,
			Company: o.Customer.Company,
		},
		Items:           items,
		Subtotal:        o.Subtotal.Round(2),
		Shipping:        o.Shipping.Round(2),
		Tax:             o.Tax.Round(2),
		Total:           o.Total.Round(2),
		OriginalTotal:   o.OriginalTotal.Round(2),
		DiscountCode:    o.DiscountCode,
		DiscountType:    o.DiscountType,
		PaymentIntentID: o.PaymentIntentID,
		PaymentStatus:   o.PaymentStatus,
		ShippingAddress: addressDTO{
			Street:   o.ShippingAddress.Street,
			City:     o.ShippingAddress.City,
			Postcode: o.ShippingAddress.Postcode,
			Country:  o.ShippingAddress.Country,
		},
		CreatedAt: o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if o.DiscountCode != "" {
		amount := o.DiscountAmount.Round(2)
		dto.DiscountAmount = &amount
	}
	return dto
}

