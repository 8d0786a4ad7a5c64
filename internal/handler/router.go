package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/auth"
)

// NewRouter builds the /api route tree: public storefront endpoints and
// the scope-gated admin surface.
func NewRouter(h *Handler, sec *Security) http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/validate-discount", h.ValidateDiscount)
		r.Post("/apply-discount", h.ApplyDiscount)
		r.Post("/orders", h.CreateOrder)
		r.Put("/orders/{id}/payment-status", h.UpdatePaymentStatus)
		r.Put("/payment-intents/{paymentIntentID}/status", h.UpdatePaymentStatusByIntent)
		r.Post("/create-payment-intent", h.CreatePaymentIntent)
		r.Post("/send-order-emails", h.SendOrderEmails)

		r.Route("/admin", func(r chi.Router) {
			r.Use(sec.RequireScope(auth.ScopeAdmin))
			r.Get("/orders", h.ListOrders)
			r.Put("/orders/{id}/status", h.UpdateOrderStatus)
			r.Get("/discount-codes", h.ListDiscountCodes)
			r.Post("/discount-codes", h.CreateDiscountCode)
			r.Put("/discount-codes/{id}", h.UpdateDiscountCode)
			r.Delete("/discount-codes/{id}", h.DeleteDiscountCode)
		})
	})

	return r
}
