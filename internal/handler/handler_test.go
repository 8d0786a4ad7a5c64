package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/auth"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/discount"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/order"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/email"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/payment"
)

type mockOrderService struct {
	placeOrder     func(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
	updateStatus   func(ctx context.Context, id string, next order.Status) (*order.Order, error)
	recordPayment  func(ctx context.Context, id, status string) (*order.Order, error)
	recordByIntent func(ctx context.Context, intentID, status string) (*order.Order, error)
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error) {
	return m.placeOrder(ctx, req)
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, id string, next order.Status) (*order.Order, error) {
	return m.updateStatus(ctx, id, next)
}

func (m *mockOrderService) RecordPaymentStatus(ctx context.Context, id, status string) (*order.Order, error) {
	return m.recordPayment(ctx, id, status)
}

func (m *mockOrderService) RecordPaymentStatusByIntent(ctx context.Context, intentID, status string) (*order.Order, error) {
	return m.recordByIntent(ctx, intentID, status)
}

type mockChecker struct {
	check func(ctx context.Context, code string, subtotal decimal.Decimal) (*discount.Code, discount.Result, error)
}

func (m *mockChecker) Check(ctx context.Context, code string, subtotal decimal.Decimal) (*discount.Code, discount.Result, error) {
	return m.check(ctx, code, subtotal)
}

type mockDiscountStore struct {
	findByCode func(ctx context.Context, code string) (*discount.Code, error)
	list       func(ctx context.Context) ([]discount.Code, error)
	create     func(ctx context.Context, rec *discount.Code) error
	redeemed   []discount.Usage
}

func (m *mockDiscountStore) FindByCode(ctx context.Context, code string) (*discount.Code, error) {
	return m.findByCode(ctx, code)
}

func (m *mockDiscountStore) GetByID(context.Context, string) (*discount.Code, error) {
	return nil, discount.ErrNotFound
}

func (m *mockDiscountStore) List(ctx context.Context) ([]discount.Code, error) {
	return m.list(ctx)
}

func (m *mockDiscountStore) Create(ctx context.Context, rec *discount.Code) error {
	return m.create(ctx, rec)
}

func (m *mockDiscountStore) Update(context.Context, *discount.Code) error { return nil }

func (m *mockDiscountStore) Delete(context.Context, string) (bool, error) { return true, nil }

func (m *mockDiscountStore) Redeem(_ context.Context, _ string, usage discount.Usage) error {
	m.redeemed = append(m.redeemed, usage)
	return nil
}

type mockOrderStore struct {
	list func(ctx context.Context, params order.ListParams) ([]order.Order, error)
}

func (m *mockOrderStore) List(ctx context.Context, params order.ListParams) ([]order.Order, error) {
	return m.list(ctx, params)
}

type mockPayments struct {
	createIntent func(ctx context.Context, p payment.CreateIntentParams) (*payment.Intent, error)
}

func (m *mockPayments) CreateIntent(ctx context.Context, p payment.CreateIntentParams) (*payment.Intent, error) {
	return m.createIntent(ctx, p)
}

type mockEmails struct {
	sent []email.OrderDetails
	err  error
}

func (m *mockEmails) SendOrderEmails(_ context.Context, details email.OrderDetails) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, details)
	return nil
}

type mockKeyRepo struct {
	keys map[string]*auth.APIKeyInfo
}

func (m *mockKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if info, ok := m.keys[hash]; ok {
		return info, nil
	}
	return nil, auth.ErrKeyNotFound
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func postJSON(t *testing.T, srv http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestValidateDiscount(t *testing.T) {
	save10 := &discount.Code{
		ID:            "d-1",
		Code:          "SAVE10",
		DiscountType:  discount.TypePercentage,
		DiscountValue: dec("10"),
		IsActive:      true,
	}

	tests := []struct {
		name       string
		body       any
		check      func(ctx context.Context, code string, subtotal decimal.Decimal) (*discount.Code, discount.Result, error)
		wantStatus int
		wantValid  bool
		wantAmount string
		wantReason string
	}{
		{
			name: "valid percentage code",
			body: map[string]any{"code": "SAVE10", "orderAmount": "100"},
			check: func(_ context.Context, code string, subtotal decimal.Decimal) (*discount.Code, discount.Result, error) {
				assert.Equal(t, "SAVE10", code)
				assert.True(t, subtotal.Equal(dec("100")))
				return save10, discount.Result{DiscountAmount: dec("10"), FinalAmount: dec("90")}, nil
			},
			wantStatus: http.StatusOK,
			wantValid:  true,
			wantAmount: "10",
		},
		{
			name: "unknown code answers 200 with a reason",
			body: map[string]any{"code": "NOPE", "orderAmount": "100"},
			check: func(context.Context, string, decimal.Decimal) (*discount.Code, discount.Result, error) {
				return nil, discount.Result{}, discount.ErrNotFound
			},
			wantStatus: http.StatusOK,
			wantValid:  false,
			wantReason: discount.Reason(discount.ErrNotFound),
		},
		{
			name: "below minimum order",
			body: map[string]any{"code": "WELCOME15", "orderAmount": "10"},
			check: func(context.Context, string, decimal.Decimal) (*discount.Code, discount.Result, error) {
				return nil, discount.Result{}, &discount.BelowMinimumError{Minimum: dec("50")}
			},
			wantStatus: http.StatusOK,
			wantValid:  false,
		},
		{
			name:       "missing code",
			body:       map[string]any{"orderAmount": "100"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(nil, nil, &mockChecker{check: tt.check}, nil, nil, nil)
			srv := NewRouter(h, NewSecurity(&mockKeyRepo{}, []byte("pepper")))

			rec := postJSON(t, srv, "/api/validate-discount", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code)

			env := decodeEnvelope(t, rec)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, false, env["success"])
				return
			}

			data := env["data"].(map[string]any)
			validation := data["validation"].(map[string]any)
			assert.Equal(t, tt.wantValid, validation["valid"])
			if tt.wantValid {
				assert.Equal(t, "SAVE10", validation["code"])
				amount, err := decimal.NewFromString(validation["discount_amount"].(string))
				require.NoError(t, err)
				assert.True(t, amount.Equal(dec(tt.wantAmount)))
			} else if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, validation["error"])
			}
		})
	}
}

func TestApplyDiscountRecordsUsage(t *testing.T) {
	store := &mockDiscountStore{
		findByCode: func(_ context.Context, code string) (*discount.Code, error) {
			require.Equal(t, "SAVE10", code)
			return &discount.Code{ID: "d-1", Code: "SAVE10"}, nil
		},
	}
	h := NewHandler(nil, nil, nil, store, nil, nil)
	srv := NewRouter(h, NewSecurity(&mockKeyRepo{}, []byte("pepper")))

	rec := postJSON(t, srv, "/api/apply-discount", map[string]any{
		"code":           "save10",
		"orderId":        "o-1",
		"customerEmail":  "jo@example.com",
		"discountAmount": "10",
		"orderAmount":    "100",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, store.redeemed, 1)
	usage := store.redeemed[0]
	assert.Equal(t, "d-1", usage.DiscountCodeID)
	assert.Equal(t, "o-1", usage.OrderID)
	assert.Equal(t, "jo@example.com", usage.CustomerEmail)
	assert.True(t, usage.DiscountAmount.Equal(dec("10")))
}

func TestCreateOrder(t *testing.T) {
	placed := &order.Order{
		ID:          "o-1",
		OrderNumber: "ORD-1-XYZ",
		Status:      order.StatusPending,
		Customer:    order.CustomerInfo{Name: "Jo", Email: "jo@example.com"},
		Items: []order.Item{{
			ID:         "i-1",
			ProductID:  "tshirt",
			Quantity:   2,
			UnitPrice:  dec("25"),
			TotalPrice: dec("50"),
		}},
		Subtotal:      dec("50"),
		Shipping:      dec("15"),
		Tax:           dec("10.5"),
		Total:         dec("75.5"),
		OriginalTotal: dec("75.5"),
	}

	svc := &mockOrderService{
		placeOrder: func(_ context.Context, req order.PlaceOrderRequest) (*order.Order, error) {
			require.Len(t, req.Items, 1)
			assert.Equal(t, "tshirt", req.Items[0].ProductID)
			return placed, nil
		},
	}
	h := NewHandler(svc, nil, nil, nil, nil, nil)
	srv := NewRouter(h, NewSecurity(&mockKeyRepo{}, []byte("pepper")))

	rec := postJSON(t, srv, "/api/orders", map[string]any{
		"customer_info": map[string]any{"name": "Jo", "email": "jo@example.com"},
		"items": []map[string]any{{
			"product_id": "tshirt",
			"quantity":   2,
			"unit_price": "25",
		}},
		"shipping_address": map[string]any{
			"street": "1 Main St", "city": "Antwerp", "postcode": "2000", "country": "BE",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env["success"])
	data := env["data"].(map[string]any)
	assert.Equal(t, "ORD-1-XYZ", data["order_number"])
	total, err := decimal.NewFromString(data["total"].(string))
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("75.5")))
}

func TestCreateOrderAcceptsStorefrontPricing(t *testing.T) {
	placed := &order.Order{
		ID:          "o-1",
		OrderNumber: "ORD-1-XYZ",
		Status:      order.StatusPending,
		Customer:    order.CustomerInfo{Name: "Jo", Email: "jo@example.com"},
		Items: []order.Item{{
			ID:         "i-1",
			ProductID:  "tshirt",
			Quantity:   2,
			UnitPrice:  dec("25"),
			TotalPrice: dec("50"),
		}},
		Subtotal:      dec("50"),
		Shipping:      dec("15"),
		Tax:           dec("10.5"),
		Total:         dec("75.5"),
		OriginalTotal: dec("75.5"),
	}
	svc := &mockOrderService{
		placeOrder: func(_ context.Context, req order.PlaceOrderRequest) (*order.Order, error) {
			return placed, nil
		},
	}
	h := NewHandler(svc, nil, nil, nil, nil, nil)
	srv := NewRouter(h, NewSecurity(&mockKeyRepo{}, []byte("pepper")))

	// The full storefront payload carries its own pricing. It must
	// decode; the response must still carry the server's numbers.
	rec := postJSON(t, srv, "/api/orders", map[string]any{
		"customer_info": map[string]any{"name": "Jo", "email": "jo@example.com"},
		"items": []map[string]any{{
			"product_id":  "tshirt",
			"quantity":    2,
			"unit_price":  "25",
			"total_price": "50",
		}},
		"shipping_address": map[string]any{
			"street": "1 Main St", "city": "Antwerp", "postcode": "2000", "country": "BE",
		},
		"subtotal":       "50",
		"shipping":       "15",
		"tax":            "10.5",
		"total":          "999.99",
		"original_total": "999.99",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]any)
	total, err := decimal.NewFromString(data["total"].(string))
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("75.5")), "client-supplied total must be ignored")
}

func TestCreateOrderRecordsFirstForwardedHop(t *testing.T) {
	var gotIP string
	svc := &mockOrderService{
		placeOrder: func(_ context.Context, req order.PlaceOrderRequest) (*order.Order, error) {
			gotIP = req.IPAddress
			return &order.Order{ID: "o-1", Status: order.StatusPending}, nil
		},
	}
	h := NewHandler(svc, nil, nil, nil, nil, nil)
	srv := NewRouter(h, NewSecurity(&mockKeyRepo{}, []byte("pepper")))

	raw, err := json.Marshal(map[string]any{
		"customer_info": map[string]any{"name": "Jo", "email": "jo@example.com"},
		"items": []map[string]any{{
			"product_id": "tshirt", "quantity": 1, "unit_price": "25",
		}},
		"shipping_address": map[string]any{
			"street": "1 Main St", "city": "Antwerp", "postcode": "2000", "country": "BE",
		},
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(raw))
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18, 10.0.0.1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "203.0.113.50", gotIP, "only the first forwarded hop is the client")
}

func TestCreateOrderValidationErrors(t *testing.T) {
	svc := &mockOrderService{
		placeOrder: func(context.Context, order.PlaceOrderRequest) (*order.Order, error) {
			return nil, order.ErrEmptyItems
		},
	}
	h := NewHandler(svc, nil, nil, nil, nil, nil)
	srv := NewRouter(h, NewSecurity(&mockKeyRepo{}, []byte("pepper")))

	rec := postJSON(t, srv, "/api/orders", map[string]any{
		"customer_info": map[string]any{"name": "Jo", "email": "jo@example.com"},
		"items":         []map[string]any{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, false, env["success"])
	assert.NotEmpty(t, env["error"])
}

func TestUpdatePaymentStatusRoutesOrderID(t *testing.T) {
	svc := &mockOrderService{
		recordPayment: func(_ context.Context, id, status string) (*order.Order, error) {
			assert.Equal(t, "o-42", id)
			assert.Equal(t, "succeeded", status)
			return &order.Order{ID: "o-42", Status: order.StatusConfirmed, PaymentStatus: status}, nil
		},
	}
	h := NewHandler(svc, nil, nil, nil, nil, nil)
	srv := NewRouter(h, NewSecurity(&mockKeyRepo{}, []byte("pepper")))

	raw, _ := json.Marshal(map[string]any{"payment_status": "succeeded"})
	req := httptest.NewRequest(http.MethodPut, "/api/orders/o-42/payment-status", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]any)
	assert.Equal(t, string(order.StatusConfirmed), data["status"])
}

func TestCreatePaymentIntent(t *testing.T) {
	t.Run("unconfigured answers 503", func(t *testing.T) {
		h := NewHandler(nil, nil, nil, nil, nil, nil)
		srv := NewRouter(h, NewSecurity(&mockKeyRepo{}, []byte("pepper")))

		rec := postJSON(t, srv, "/api/create-payment-intent", map[string]any{"amount": "75.50"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("forwards amount and metadata", func(t *testing.T) {
		payments := &mockPayments{
			createIntent: func(_ context.Context, p payment.CreateIntentParams) (*payment.Intent, error) {
				assert.True(t, p.Amount.Equal(dec("75.50")))
				assert.Equal(t, "ORD-1-XYZ", p.OrderNumber)
				return &payment.Intent{ID: "pi_123", ClientSecret: "pi_123_secret", Status: "requires_payment_method"}, nil
			},
		}
		h := NewHandler(nil, nil, nil, nil, payments, nil)
		srv := NewRouter(h, NewSecurity(&mockKeyRepo{}, []byte("pepper")))

		rec := postJSON(t, srv, "/api/create-payment-intent", map[string]any{
			"amount":       "75.50",
			"order_number": "ORD-1-XYZ",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		env := decodeEnvelope(t, rec)
		data := env["data"].(map[string]any)
		assert.Equal(t, "pi_123", data["payment_intent_id"])
		assert.Equal(t, "pi_123_secret", data["client_secret"])
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		h := NewHandler(nil, nil, nil, nil, &mockPayments{}, nil)
		srv := NewRouter(h, NewSecurity(&mockKeyRepo{}, []byte("pepper")))

		rec := postJSON(t, srv, "/api/create-payment-intent", map[string]any{"amount": "0"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminAuth(t *testing.T) {
	const (
		adminKey  = "admin-secret-key"
		otherKey  = "storefront-key"
		keyPepper = "test-pepper"
	)

	keys := &mockKeyRepo{keys: map[string]*auth.APIKeyInfo{
		auth.HashKey(adminKey, []byte(keyPepper)): {
			ID:      "k-1",
			KeyHash: auth.HashKey(adminKey, []byte(keyPepper)),
			Name:    "Admin key",
			Scopes:  []string{auth.ScopeAdmin},
		},
		auth.HashKey(otherKey, []byte(keyPepper)): {
			ID:      "k-2",
			KeyHash: auth.HashKey(otherKey, []byte(keyPepper)),
			Name:    "Storefront key",
			Scopes:  []string{"storefront"},
		},
	}}

	orders := &mockOrderStore{
		list: func(context.Context, order.ListParams) ([]order.Order, error) {
			return []order.Order{}, nil
		},
	}
	h := NewHandler(nil, orders, nil, nil, nil, nil)
	srv := NewRouter(h, NewSecurity(keys, []byte(keyPepper)))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"unknown token", "Bearer bogus", http.StatusUnauthorized},
		{"wrong scope", "Bearer " + otherKey, http.StatusForbidden},
		{"admin scope", "Bearer " + adminKey, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAdminCreateDiscountCode(t *testing.T) {
	const keyPepper = "test-pepper"
	adminHash := auth.HashKey("admin-key", []byte(keyPepper))
	keys := &mockKeyRepo{keys: map[string]*auth.APIKeyInfo{
		adminHash: {ID: "k-1", KeyHash: adminHash, Name: "Admin", Scopes: []string{auth.ScopeAdmin}},
	}}

	var created *discount.Code
	store := &mockDiscountStore{
		create: func(_ context.Context, rec *discount.Code) error {
			created = rec
			return nil
		},
	}
	h := NewHandler(nil, nil, nil, store, nil, nil)
	srv := NewRouter(h, NewSecurity(keys, []byte(keyPepper)))

	raw, _ := json.Marshal(map[string]any{
		"code":           "summer25",
		"discount_type":  "percentage",
		"discount_value": "25",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/discount-codes", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer admin-key")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, created)
	assert.Equal(t, "SUMMER25", created.Code)
	assert.Equal(t, discount.TypePercentage, created.DiscountType)
	assert.True(t, created.IsActive)
	assert.NotEmpty(t, created.ID)
}

func TestSendOrderEmails(t *testing.T) {
	emails := &mockEmails{}
	h := NewHandler(nil, nil, nil, nil, nil, emails)
	srv := NewRouter(h, NewSecurity(&mockKeyRepo{}, []byte("pepper")))

	rec := postJSON(t, srv, "/api/send-order-emails", map[string]any{
		"order_number":   "ORD-1-XYZ",
		"customer_email": "jo@example.com",
		"customer_name":  "Jo",
		"total":          "75.50",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, emails.sent, 1)
	assert.Equal(t, "ORD-1-XYZ", emails.sent[0].OrderNumber)
	assert.Equal(t, "jo@example.com", emails.sent[0].CustomerEmail)
}

func TestSendOrderEmailsUnconfigured(t *testing.T) {
	emails := &mockEmails{err: email.ErrNotConfigured}
	h := NewHandler(nil, nil, nil, nil, nil, emails)
	srv := NewRouter(h, NewSecurity(&mockKeyRepo{}, []byte("pepper")))

	rec := postJSON(t, srv, "/api/send-order-emails", map[string]any{
		"order_number":   "ORD-1-XYZ",
		"customer_email": "jo@example.com",
		"customer_name":  "Jo",
		"total":          "75.50",
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, false, env["success"])
}
