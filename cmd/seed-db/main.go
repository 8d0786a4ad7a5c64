// Command seed-db prepares a fresh database for local development: it runs
// the migrations, inserts a handful of sample discount codes, and registers
// an admin API key for the management endpoints.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/auth"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/discount"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/repository"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SHOP_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedDiscountCodes(ctx, repository.NewDiscountRepository(pool)); err != nil {
		return errors.Wrap(err, "seed discount codes")
	}

	if err := seedAPIKey(ctx, repository.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedDiscountCodes(ctx context.Context, repo *repository.DiscountRepository) error {
	slog.Info("seeding sample discount codes")

	maxSave := decimal.NewFromInt(100)
	yearFromNow := time.Now().AddDate(1, 0, 0)

	codes := []discount.Code{
		{
			ID:                    uuid.New().String(),
			Code:                  "SAVE10",
			Description:           "10% off your order",
			DiscountType:          discount.TypePercentage,
			DiscountValue:         decimal.NewFromInt(10),
			MaximumDiscountAmount: &maxSave,
			IsActive:              true,
			ValidUntil:            &yearFromNow,
		},
		{
			ID:                 uuid.New().String(),
			Code:               "WELCOME15",
			Description:        "15% off orders over 50",
			DiscountType:       discount.TypePercentage,
			DiscountValue:      decimal.NewFromInt(15),
			MinimumOrderAmount: decimal.NewFromInt(50),
			IsActive:           true,
		},
		{
			ID:            uuid.New().String(),
			Code:          "FLAT20",
			Description:   "20 off any order",
			DiscountType:  discount.TypeFixedAmount,
			DiscountValue: decimal.NewFromInt(20),
			UsageLimit:    500,
			IsActive:      true,
		},
	}

	for i := range codes {
		c := &codes[i]
		if _, err := repo.FindByCode(ctx, c.Code); err == nil {
			slog.Info("discount code exists, skipping", slog.String("code", c.Code))
			continue
		} else if !errors.Is(err, discount.ErrNotFound) {
			return errors.Wrapf(err, "check code %s", c.Code)
		}

		if err := repo.Create(ctx, c); err != nil {
			return errors.Wrapf(err, "create code %s", c.Code)
		}

		slog.Info("created discount code", slog.String("code", c.Code), slog.String("description", c.Description))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *repository.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	info := &auth.APIKeyInfo{
		ID:      uuid.New().String(),
		KeyHash: auth.HashKey(apiKey, []byte(pepper)),
		Name:    "Admin key",
		Scopes:  []string{auth.ScopeAdmin},
	}

	if err := repo.Insert(ctx, info); err != nil {
		return errors.Wrap(err, "insert admin API key")
	}

	slog.Info("seeded API key", slog.String("name", info.Name))

	return nil
}
