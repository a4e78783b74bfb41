// Package email provides the transactional email provider interface.
package email

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
	// Tags are attached to the delivery for provider-side filtering.
	Tags map[string]string
}

type Config struct {
	Provider string
	APIKey   string
	From     string
	// HTTPClient is optional; resend uses its default client when nil.
	HTTPClient *http.Client
}

func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "", "none":
		return NoopProvider{}, nil
	case "resend":
		if config.APIKey == "" || config.From == "" {
			return nil, fmt.Errorf("RESEND_API_KEY and EMAIL_FROM are required for the resend provider")
		}
		return NewResendProvider(config.APIKey, config.From, config.HTTPClient), nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be either 'none' or 'resend'")
	}
}

// NoopProvider discards every email.
type NoopProvider struct{}

func (NoopProvider) SendEmail(context.Context, *Email) error {
	return nil
}
