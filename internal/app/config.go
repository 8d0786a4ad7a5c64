package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr            string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL     string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	StripeSecretKey string `usage:"Stripe secret key (must start with sk_)" flag:"stripe-secret-key"`
	APIKeyPepper    string `usage:"HMAC pepper for API key hashing" flag:"api-key-pepper"`
	Email           EmailConfig
	Tax             TaxConfig
	Shipping        ShippingConfig
	Orders          OrdersConfig
	RateLimit       RateLimitConfig
	CORS            CORSConfig
	Graceful        GracefulConfig
}

// EmailConfig configures the transactional email sender.
type EmailConfig struct {
	ResendAPIKey string `usage:"Resend API key" flag:"resend-api-key"`
	From         string `default:"orders@silverback.shop" usage:"Verified sender address"`
	AdminTo      string `default:"" usage:"Address receiving admin order notifications" flag:"admin-to"`
}

// TaxConfig holds the VAT percentages for the two order flows.
type TaxConfig struct {
	StandardRate    decimal.Decimal `default:"21" usage:"VAT percentage for catalog orders" flag:"standard-rate"`
	CustomPrintRate decimal.Decimal `default:"8" usage:"VAT percentage for custom-print orders" flag:"custom-print-rate"`
}

// ShippingConfig holds the shipping cost policy.
type ShippingConfig struct {
	FreeThreshold decimal.Decimal   `default:"150" usage:"Subtotal at which shipping is free" flag:"free-threshold"`
	StandardRate  decimal.Decimal   `default:"15"  usage:"Flat shipping rate below the threshold" flag:"standard-rate"`
	CountryRates  map[string]string `usage:"Per-country rate overrides (COUNTRY:rate)" flag:"country-rates"`
}

// OrdersConfig holds order numbering options.
type OrdersConfig struct {
	NumberPrefix string `default:"ORD" usage:"Prefix for generated order numbers" flag:"number-prefix"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// CountryRateOverrides parses the COUNTRY:rate override map into
// decimals. Entries that fail to parse are reported, not skipped.
func (c ShippingConfig) CountryRateOverrides() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(c.CountryRates))
	for country, rate := range c.CountryRates {
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, errors.Wrapf(err, "shipping rate for %s", country)
		}
		out[country] = d
	}
	return out, nil
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and
// PORT to the application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.StripeSecretKey == "" {
		if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
			c.StripeSecretKey = v
		}
	}
	if c.Email.ResendAPIKey == "" {
		if v := os.Getenv("RESEND_API_KEY"); v != "" {
			c.Email.ResendAPIKey = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
