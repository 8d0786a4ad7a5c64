package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/email"
)

type emailOrderLine struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type sendOrderEmailsRequest struct {
	OrderNumber    string           `json:"order_number"`
	CustomerName   string           `json:"customer_name"`
	CustomerEmail  string           `json:"customer_email"`
	Items          []emailOrderLine `json:"items"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	DiscountCode   string           `json:"discount_code,omitempty"`
	DiscountAmount decimal.Decimal  `json:"discount_amount,omitempty"`
	Shipping       decimal.Decimal  `json:"shipping"`
	Tax            decimal.Decimal  `json:"tax"`
	Total          decimal.Decimal  `json:"total"`
}

// SendOrderEmails forwards the order details to the email provider for
// the customer confirmation and admin notification templates.
func (h *Handler) SendOrderEmails(w http.ResponseWriter, r *http.Request) {
	var req sendOrderEmailsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderNumber == "" || req.CustomerEmail == "" {
		writeError(w, http.StatusBadRequest, "order_number and customer_email are required")
		return
	}

	lines := make([]email.OrderLine, len(req.Items))
	for i, it := range req.Items {
		lines[i] = email.OrderLine{
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		}
	}

	err := h.emails.SendOrderEmails(r.Context(), email.OrderDetails{
		OrderNumber:    req.OrderNumber,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		Items:          lines,
		Subtotal:       req.Subtotal,
		DiscountCode:   req.DiscountCode,
		DiscountAmount: req.DiscountAmount,
		Shipping:       req.Shipping,
		Tax:            req.Tax,
		Total:          req.Total,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"sent": true})
}
