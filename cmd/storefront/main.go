package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v81"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noodlesaucehaven/storefront/internal/auth"
	"github.com/noodlesaucehaven/storefront/internal/catalog"
	"github.com/noodlesaucehaven/storefront/internal/checkout"
	"github.com/noodlesaucehaven/storefront/internal/config"
	"github.com/noodlesaucehaven/storefront/internal/domain"
	"github.com/noodlesaucehaven/storefront/internal/email"
	"github.com/noodlesaucehaven/storefront/internal/messaging"
	"github.com/noodlesaucehaven/storefront/internal/notify"
	"github.com/noodlesaucehaven/storefront/internal/orders"
	"github.com/noodlesaucehaven/storefront/internal/payment"
	"github.com/noodlesaucehaven/storefront/internal/session"
	"github.com/noodlesaucehaven/storefront/internal/storefront"
	"github.com/noodlesaucehaven/storefront/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(".env", "8080")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "storefront", cfg.ServiceVersion, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("storefront", cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	var db *sql.DB
	if cfg.PostgresURL != "" {
		db, err = openDB(cfg.PostgresURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
	}

	products, err := loadCatalog(ctx, cfg, db)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	var orderRepo interface {
		checkout.OrderRecorder
		orders.Repository
	}
	if db != nil {
		orderRepo = orders.NewOrderRepository(db)
	} else {
		logger.Warn("POSTGRES_URL not set, order history is kept in memory")
		orderRepo = orders.NewMemoryRepository()
	}

	sessionStore, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	registry := newPaymentRegistry(cfg, httpClient, logger)

	notifier, closeNotifier := newNotifier(cfg, httpClient, logger)
	defer closeNotifier()

	svc, err := checkout.NewService(registry, notifier, logger,
		checkout.WithOrderRecorder(orderRepo),
		checkout.WithNotifyTimeout(cfg.NotifyTimeout),
	)
	if err != nil {
		logger.Error("failed to create checkout service", "error", err)
		os.Exit(1)
	}

	sessions := session.NewManager(sessionStore, svc, cfg.SessionTTL, logger)

	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if !verifier.Configured() {
		logger.Warn("JWT_SECRET not set, checkout and order history will answer 503")
	}
	requireUser := auth.RequireUser(verifier, logger)

	catalogHandler := catalog.NewHandler(products, logger)
	storeHandler := storefront.NewHandler(products, sessions, registry.Methods(), logger)
	ordersHandler := orders.NewHandler(orderRepo, logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(telemetry.RouteTag)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Get("/products", catalogHandler.HandleList)
	r.Get("/products/{id}", catalogHandler.HandleGet)

	r.Get("/cart", storeHandler.HandleGetCart)
	r.Delete("/cart", storeHandler.HandleClearCart)
	r.Post("/cart/items", storeHandler.HandleAddItem)
	r.Patch("/cart/items/{productId}", storeHandler.HandleUpdateItem)
	r.Delete("/cart/items/{productId}", storeHandler.HandleRemoveItem)

	r.Get("/checkout", storeHandler.HandleCheckoutStatus)
	r.With(requireUser).Post("/checkout", storeHandler.HandleCheckout)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/orders", ordersHandler.HandleList)
		r.Get("/orders/{id}", ordersHandler.HandleGet)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.PaymentTimeout*time.Duration(cfg.PaymentMaxRetries+1) + 10*time.Second,
	}

	evictCtx, stopEvict := context.WithCancel(ctx)
	defer stopEvict()
	go evictIdleSessions(evictCtx, sessions, cfg.SessionTTL)

	go func() {
		logger.Info("starting storefront", "port", cfg.Port, "payment_methods", registry.Methods())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := svc.Drain(shutdownCtx); err != nil {
		logger.Error("notifications still pending at shutdown", "error", err)
	}
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := telemetry.OpenDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("SET search_path TO storefront"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func loadCatalog(ctx context.Context, cfg *config.Config, db *sql.DB) (*catalog.Catalog, error) {
	if cfg.CatalogFromDB && db != nil {
		return catalog.NewProductRepository(db).Load(ctx)
	}
	return catalog.Default()
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.RedisURL == "" {
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return session.NewRedisStore(client, cfg.SessionTTL), func() { _ = client.Close() }, nil
}

func newPaymentRegistry(cfg *config.Config, client *http.Client, logger *slog.Logger) *payment.Registry {
	delay := payment.WithDelay(cfg.PaymentDelay)
	policy := payment.DefaultRetryPolicy()
	policy.Timeout = cfg.PaymentTimeout
	policy.MaxRetries = cfg.PaymentMaxRetries

	stripeCfg := payment.StripeConfig{SecretKey: cfg.StripeSecretKey}
	if cfg.StripeAPIURL != "" {
		stripeCfg.Backend = stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:        stripe.String(cfg.StripeAPIURL),
			HTTPClient: client,
		})
	}
	stripeGateway := payment.NewStripeGateway(stripeCfg, delay)
	razorpayGateway := payment.NewRazorpayGateway(payment.RazorpayConfig{
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		BaseURL:   cfg.RazorpayBaseURL,
	}, client, delay)

	registry := payment.NewRegistry(logger)
	registry.Register(domain.PaymentMethodCard, payment.WithRetry(payment.NewCardGateway(delay), policy, logger))
	registry.Register(domain.PaymentMethodCOD, payment.WithRetry(payment.NewCODGateway(delay), policy, logger))
	registry.Register(domain.PaymentMethodUPI, payment.WithRetry(payment.NewUPIGateway(delay), policy, logger))
	registry.Register(domain.PaymentMethodStripe, payment.WithRetry(
		payment.WithCircuitBreaker("stripe", stripeGateway, logger), policy, logger))
	registry.Register(domain.PaymentMethodRazorpay, payment.WithRetry(
		payment.WithCircuitBreaker("razorpay", razorpayGateway, logger), policy, logger))

	logger.Info("payment gateways ready",
		"stripe_simulated", stripeGateway.Simulated(),
		"razorpay_simulated", razorpayGateway.Simulated(),
	)
	return registry
}

// newNotifier prefers the message bus, then the email service, then logging.
func newNotifier(cfg *config.Config, client *http.Client, logger *slog.Logger) (checkout.Notifier, func()) {
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer := messaging.NewProducer(brokers, messaging.TopicOrderPlaced)
		return notify.NewEventNotifier(producer), func() { _ = producer.Close() }
	}
	if cfg.EmailServiceURL != "" {
		return notify.NewEmailNotifier(email.NewClient(cfg.EmailServiceURL, client), cfg.AdminEmail, logger), func() {}
	}
	logger.Warn("neither KAFKA_BROKERS nor EMAIL_SERVICE_URL set, order emails are skipped")
	return notify.NewLogNotifier(logger), func() {}
}

func evictIdleSessions(ctx context.Context, sessions *session.Manager, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Evict()
		}
	}
}
