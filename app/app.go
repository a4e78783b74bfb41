package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storefrontapp/storefront/internal/cache"
	"github.com/storefrontapp/storefront/internal/catalog"
	"github.com/storefrontapp/storefront/internal/config"
	"github.com/storefrontapp/storefront/internal/crypto"
	"github.com/storefrontapp/storefront/internal/db"
	"github.com/storefrontapp/storefront/internal/email"
	"github.com/storefrontapp/storefront/internal/events"
	"github.com/storefrontapp/storefront/internal/handlers"
	"github.com/storefrontapp/storefront/internal/logging"
	"github.com/storefrontapp/storefront/internal/observability"
	"github.com/storefrontapp/storefront/internal/payments"
	"github.com/storefrontapp/storefront/internal/services"
	"github.com/storefrontapp/storefront/internal/session"
)

const outboundTimeout = 30 * time.Second

type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	DB             *pgxpool.Pool
	CacheProvider  cache.Provider
	SessionManager *session.Manager
	Publisher      events.Publisher
	Handlers       *handlers.Handlers
	sentryEnabled  bool
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	sentryEnabled, err := initSentry(cfg)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, sentryEnabled)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(startupCtx, database); err != nil {
		database.Close()
		return nil, err
	}

	sealer, err := crypto.NewSealer(cfg.EncryptionKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize sealer: %w", err)
	}

	orderStore, err := db.NewOrderStore(database, sealer)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize order store: %w", err)
	}
	productStore := db.NewProductStore(database)
	categoryStore := db.NewCategoryStore(database)

	gateway, err := payments.NewGateway(payments.Config{
		Provider:             cfg.PaymentGateway,
		CashfreeEnvironment:  cfg.CashfreeEnvironment,
		CashfreeClientID:     cfg.CashfreeClientID,
		CashfreeClientSecret: cfg.CashfreeClientSecret,
		CashfreeAPIVersion:   cfg.CashfreeAPIVersion,
		StripeSecretKey:      cfg.StripeSecretKey,
	}, observability.NewHTTPClient(outboundTimeout))
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	sessionStore, err := session.NewStore(startupCtx, session.Config{
		Provider:              cfg.SessionStoreProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	sessionManager, err := session.NewManager(sessionStore, session.ManagerConfig{
		Password: cfg.AdminPassword,
		Secret:   cfg.AdminTokenSecret,
		TTL:      cfg.AdminTokenTTL,
		Secure:   cfg.SecureCookies(),
	})
	if err != nil {
		_ = sessionStore.Close()
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize session manager: %w", err)
	}

	publisher, err := events.NewPublisher(events.Config{
		Provider: cfg.EventsProvider,
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
	})
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	emailProvider, err := email.NewProvider(email.Config{
		Provider:   cfg.EmailProvider,
		APIKey:     cfg.ResendAPIKey,
		From:       cfg.EmailFrom,
		HTTPClient: observability.NewHTTPClient(outboundTimeout),
	})
	if err != nil {
		closePublisher(logger, publisher)
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}
	renderer, err := email.NewRenderer()
	if err != nil {
		closePublisher(logger, publisher)
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize email templates: %w", err)
	}

	pricer := catalog.NewPricer(cfg.Currency, cfg.ProcessingFee, cfg.TotalTolerance)
	orderEmailer := services.NewShopOrderEmailSender(renderer, emailProvider, services.ShopDetails{
		Name: cfg.ShopName,
		URL:  cfg.BaseURL,
	})

	checkoutService := services.NewCheckoutService(
		orderStore,
		gateway,
		pricer,
		publisher,
		cfg.BaseURL,
		logger.With("component", "checkout_service"),
	)
	paymentService := services.NewPaymentService(
		orderStore,
		gateway,
		orderEmailer,
		publisher,
		logger.With("component", "payment_service"),
	)
	catalogService := services.NewCatalogService(
		productStore,
		categoryStore,
		cacheProvider,
		cfg.CatalogCacheTTL,
		catalog.NewParser(),
		catalog.NewValidator(),
		logger.With("component", "catalog_service"),
	)
	adminService := services.NewAdminService(
		orderStore,
		orderEmailer,
		publisher,
		logger.With("component", "admin_service"),
	)

	h, err := handlers.New(handlers.Dependencies{
		Config:          cfg,
		DB:              database,
		CheckoutService: checkoutService,
		PaymentService:  paymentService,
		CatalogService:  catalogService,
		AdminService:    adminService,
		SessionManager:  sessionManager,
		Logger:          logger,
	})
	if err != nil {
		closePublisher(logger, publisher)
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:         cfg,
		Logger:         logger,
		DB:             database,
		CacheProvider:  cacheProvider,
		SessionManager: sessionManager,
		Publisher:      publisher,
		Handlers:       h,
		sentryEnabled:  sentryEnabled,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Publisher != nil {
		closePublisher(a.Logger, a.Publisher)
	}
	if a.SessionManager != nil {
		closeSessionManager(a.Logger, a.SessionManager)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}

func initSentry(cfg *config.Config) (bool, error) {
	if strings.TrimSpace(cfg.SentryDSN) == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		EnableLogs:       true,
	})
	if err != nil {
		return false, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return true, nil
}

func newLogger(cfg *config.Config, sentryEnabled bool) *slog.Logger {
	console := logging.NewConsoleHandler(logging.ConsoleOptions{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
	})
	if !sentryEnabled {
		return slog.New(console)
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelInfo},
	}.NewSentryHandler(context.Background())

	return slog.New(logging.MultiHandler(console, sentryHandler))
}

func closePublisher(logger *slog.Logger, publisher events.Publisher) {
	if err := publisher.Close(); err != nil && logger != nil {
		logger.Warn("failed to close event publisher", "error", err)
	}
}

func closeSessionManager(logger *slog.Logger, manager *session.Manager) {
	if manager == nil {
		return
	}
	if err := manager.Close(); err != nil && logger != nil {
		logger.Warn("failed to close session manager", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
