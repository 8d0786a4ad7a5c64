// Package email sends transactional order emails through Resend.
package email

import (
	"context"
	"html/template"
	"strings"

	"github.com/go-faster/errors"
	"github.com/resend/resend-go/v2"
	"github.com/shopspring/decimal"
)

// ErrNotConfigured is returned when no Resend API key is set.
var ErrNotConfigured = errors.New("email sending is not configured")

// OrderLine is one line item in an order email.
type OrderLine struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// OrderDetails carries everything the order email templates render.
type OrderDetails struct {
	OrderNumber    string
	CustomerName   string
	CustomerEmail  string
	Items          []OrderLine
	Subtotal       decimal.Decimal
	DiscountCode   string
	DiscountAmount decimal.Decimal
	Shipping       decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
}

// Config holds the addresses the sender uses.
type Config struct {
	APIKey string
	// From is the verified sender address.
	From string
	// AdminTo receives the internal new-order notification.
	AdminTo string
}

// Sender sends order confirmation and admin notification emails.
type Sender struct {
	client *resend.Client
	cfg    Config
}

// NewSender creates a Sender backed by the Resend API.
func NewSender(cfg Config) *Sender {
	return &Sender{
		client: resend.NewClient(cfg.APIKey),
		cfg:    cfg,
	}
}

// SendOrderEmails sends the customer confirmation and, when an admin
// address is configured, the admin notification. The customer email is
// the one that matters; an admin notification failure is reported but
// only after the customer send has been attempted.
func (s *Sender) SendOrderEmails(ctx context.Context, details OrderDetails) error {
	if s.cfg.APIKey == "" {
		return ErrNotConfigured
	}
	if err := s.sendCustomerConfirmation(ctx, details); err != nil {
		return errors.Wrap(err, "send customer confirmation")
	}
	if s.cfg.AdminTo != "" {
		if err := s.sendAdminNotification(ctx, details); err != nil {
			return errors.Wrap(err, "send admin notification")
		}
	}
	return nil
}

func (s *Sender) sendCustomerConfirmation(ctx context.Context, details OrderDetails) error {
	html, err := renderTemplate(customerTemplate, details)
	if err != nil {
		return err
	}

	_, err = s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.cfg.From,
		To:      []string{details.CustomerEmail},
		Subject: "Order confirmation " + details.OrderNumber,
		Html:    html,
	})
	return err
}

func (s *Sender) sendAdminNotification(ctx context.Context, details OrderDetails) error {
	html, err := renderTemplate(adminTemplate, details)
	if err != nil {
		return err
	}

	_, err = s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.cfg.From,
		To:      []string{s.cfg.AdminTo},
		Subject: "New order " + details.OrderNumber,
		Html:    html,
	})
	return err
}

func renderTemplate(tmpl *template.Template, details OrderDetails) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, details); err != nil {
		return "", errors.Wrap(err, "render email template")
	}
	return buf.String(), nil
}

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string {
		return "€" + d.StringFixed(2)
	},
}

var customerTemplate = template.Must(template.New("customer").Funcs(templateFuncs).Parse(`
<h2>Thank you for your order, {{.CustomerName}}!</h2>
<p>Your order <strong>{{.OrderNumber}}</strong> has been received.</p>
<table>
  <tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th></tr>
  {{range .Items}}
  <tr><td>{{.ProductName}}</td><td align="right">{{.Quantity}}</td><td align="right">{{money .TotalPrice}}</td></tr>
  {{end}}
</table>
<p>Subtotal: {{money .Subtotal}}</p>
{{if .DiscountCode}}<p>Discount ({{.DiscountCode}}): -{{money .DiscountAmount}}</p>{{end}}
<p>Shipping: {{money .Shipping}}</p>
<p>Tax: {{money .Tax}}</p>
<p><strong>Total: {{money .Total}}</strong></p>
`))

var adminTemplate = template.Must(template.New("admin").Funcs(templateFuncs).Parse(`
<h2>New order {{.OrderNumber}}</h2>
<p>{{.CustomerName}} &lt;{{.CustomerEmail}}&gt;</p>
<table>
  <tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th></tr>
  {{range .Items}}
  <tr><td>{{.ProductName}}</td><td align="right">{{.Quantity}}</td><td align="right">{{money .TotalPrice}}</td></tr>
  {{end}}
</table>
{{if .DiscountCode}}<p>Discount code used: {{.DiscountCode}} (-{{money .DiscountAmount}})</p>{{end}}
<p><strong>Total: {{money .Total}}</strong></p>
`))
