package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	BaseURL     string `env:"BASE_URL,required" validate:"required,url"`
	ShopName    string `env:"SHOP_NAME" envDefault:"Storefront" validate:"required"`

	PaymentGateway       string `env:"PAYMENT_GATEWAY" envDefault:"cashfree" validate:"oneof=cashfree stripe"`
	CashfreeEnvironment  string `env:"CASHFREE_ENV" envDefault:"sandbox" validate:"oneof=sandbox production"`
	CashfreeClientID     string `env:"CASHFREE_CLIENT_ID" validate:"required_if=PaymentGateway cashfree"`
	CashfreeClientSecret string `env:"CASHFREE_CLIENT_SECRET" validate:"required_if=PaymentGateway cashfree"`
	CashfreeAPIVersion   string `env:"CASHFREE_API_VERSION" envDefault:"2022-09-01"`
	StripeSecretKey      string `env:"STRIPE_SECRET_KEY" validate:"required_if=PaymentGateway stripe"`

	Currency       string          `env:"CURRENCY" envDefault:"INR" validate:"required,len=3,uppercase"`
	ProcessingFee  decimal.Decimal `env:"PROCESSING_FEE" envDefault:"10.79"`
	TotalTolerance decimal.Decimal `env:"TOTAL_TOLERANCE" envDefault:"0.02"`

	AdminPassword    string        `env:"ADMIN_PASSWORD,required" validate:"required"`
	AdminTokenSecret string        `env:"ADMIN_TOKEN_SECRET,required" validate:"required,min=32"`
	AdminTokenTTL    time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h" validate:"gt=0"`

	EncryptionKey string `env:"ENCRYPTION_KEY,required" validate:"required,len=32"`

	CacheProvider         string        `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	SessionStoreProvider  string        `env:"SESSION_STORE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string        `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis,required_if=SessionStoreProvider redis"`
	CatalogCacheTTL       time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m" validate:"gte=0"`

	EventsProvider string   `env:"EVENTS_PROVIDER" envDefault:"none" validate:"oneof=none kafka"`
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic     string   `env:"KAFKA_TOPIC" envDefault:"storefront.orders"`

	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"none" validate:"oneof=none resend"`
	ResendAPIKey  string `env:"RESEND_API_KEY" validate:"required_if=EmailProvider resend"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"required_if=EmailProvider resend"`

	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT" envDefault:"development"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	if c.ProcessingFee.IsNegative() {
		return fmt.Errorf("PROCESSING_FEE must be zero or positive")
	}
	if c.TotalTolerance.IsNegative() {
		return fmt.Errorf("TOTAL_TOLERANCE must be zero or positive")
	}

	if c.EventsProvider == "kafka" && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_PROVIDER is kafka")
	}

	parsed, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("BASE_URL must be a valid absolute URL")
	}
	if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("BASE_URL must use https outside local development")
	}
	if c.PaymentGateway == "cashfree" && c.CashfreeEnvironment == "production" && isLocalHost(parsed.Hostname()) {
		return fmt.Errorf("BASE_URL cannot point at localhost with the production Cashfree environment")
	}

	return nil
}

// SecureCookies reports whether cookies should carry the Secure attribute.
func (c *Config) SecureCookies() bool {
	parsed, err := url.Parse(c.BaseURL)
	return err == nil && strings.EqualFold(parsed.Scheme, "https")
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
