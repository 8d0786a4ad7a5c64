// Package payment wraps the Stripe payment-intent API.
package payment

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	stripeclient "github.com/stripe/stripe-go/v79/client"
)

// ErrInvalidSecretKey is returned when the configured key does not look
// like a Stripe secret key.
var ErrInvalidSecretKey = errors.New("stripe secret key must start with sk_")

var centsFactor = decimal.NewFromInt(100)

// Intent is the subset of a Stripe payment intent the storefront needs.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// CreateIntentParams holds the input for creating a payment intent.
type CreateIntentParams struct {
	// Amount is the charge amount in major currency units (euros).
	Amount        decimal.Decimal
	Currency      string
	OrderNumber   string
	CustomerEmail string
}

// Client creates payment intents against Stripe.
type Client struct {
	api *stripeclient.API
}

// NewClient validates the secret key format and returns a Client.
func NewClient(secretKey string) (*Client, error) {
	if !strings.HasPrefix(secretKey, "sk_") {
		return nil, ErrInvalidSecretKey
	}
	return &Client{api: stripeclient.New(secretKey, nil)}, nil
}

// CreateIntent forwards the amount, currency, and order metadata to
// Stripe and returns the intent with its client secret.
func (c *Client) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	if !p.Amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}

	currency := p.Currency
	if currency == "" {
		currency = string(stripe.CurrencyEUR)
	}

	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
		// Stripe expresses amounts in the currency's smallest unit.
		Amount:   stripe.Int64(p.Amount.Mul(centsFactor).Round(0).IntPart()),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if p.OrderNumber != "" {
		params.AddMetadata("order_number", p.OrderNumber)
	}
	if p.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(p.CustomerEmail)
		params.AddMetadata("customer_email", p.CustomerEmail)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}
