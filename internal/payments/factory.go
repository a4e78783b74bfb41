package payments

import (
	"fmt"
	"net/http"
	"strings"
)

type Config struct {
	Provider             string
	CashfreeEnvironment  string
	CashfreeClientID     string
	CashfreeClientSecret string
	CashfreeAPIVersion   string
	StripeSecretKey      string
}

// NewGateway builds the configured gateway. httpClient may be nil.
func NewGateway(cfg Config, httpClient *http.Client) (Gateway, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "cashfree":
		return NewCashfreeGateway(CashfreeConfig{
			Environment:  cfg.CashfreeEnvironment,
			ClientID:     cfg.CashfreeClientID,
			ClientSecret: cfg.CashfreeClientSecret,
			APIVersion:   cfg.CashfreeAPIVersion,
			HTTPClient:   httpClient,
		})
	case "stripe":
		return NewStripeGateway(cfg.StripeSecretKey, httpClient)
	default:
		return nil, fmt.Errorf("unsupported payment gateway: %s", cfg.Provider)
	}
}
