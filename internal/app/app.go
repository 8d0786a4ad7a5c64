package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/discount"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/order"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/domain/shipping"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/email"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/handler"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/payment"
	"github.com/invoicesolv/silverback-shop-connect-sub000/internal/repository"
	"github.com/invoicesolv/silverback-shop-connect-sub000/pkg/health"
	"github.com/invoicesolv/silverback-shop-connect-sub000/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	discountRepo := repository.NewDiscountRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	// Shipping policy: config overrides parsed once at startup.
	countryRates, err := cfg.Shipping.CountryRateOverrides()
	if err != nil {
		return errors.Wrap(err, "shipping config")
	}
	shippingPolicy := shipping.Policy{
		FreeThreshold: cfg.Shipping.FreeThreshold,
		StandardRate:  cfg.Shipping.StandardRate,
		CountryRates:  countryRates,
	}

	// Domain services.
	discountValidator := discount.NewValidator(discountRepo)
	orderService := order.NewService(order.ServiceConfig{
		NumberPrefix:       cfg.Orders.NumberPrefix,
		StandardTaxRate:    cfg.Tax.StandardRate,
		CustomPrintTaxRate: cfg.Tax.CustomPrintRate,
		Shipping:           shippingPolicy,
	}, discountValidator, orderRepo)

	// Stripe payments. Optional: endpoints return errors when unconfigured.
	var paymentClient handler.PaymentClient
	if cfg.StripeSecretKey != "" {
		paymentClient, err = payment.NewClient(cfg.StripeSecretKey)
		if err != nil {
			return errors.Wrap(err, "create stripe client")
		}
	}

	emailSender := email.NewSender(email.Config{
		APIKey:  cfg.Email.ResendAPIKey,
		From:    cfg.Email.From,
		AdminTo: cfg.Email.AdminTo,
	})

	// HTTP handlers.
	h := handler.NewHandler(
		orderService,
		orderRepo,
		discountValidator,
		discountRepo,
		paymentClient,
		emailSender,
	)
	sec := handler.NewSecurity(apikeyRepo, []byte(cfg.APIKeyPepper))
	api := handler.NewRouter(h, sec)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", api)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(
			otelhttp.NewHandler(mux, "shop-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
