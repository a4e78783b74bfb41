package observability

import (
	"net/http"
	"time"

	sentryhttpclient "github.com/getsentry/sentry-go/httpclient"
)

// Hosts that receive sentry-trace and baggage headers on outbound calls.
var tracePropagationTargets = []string{
	"api.cashfree.com",
	"sandbox.cashfree.com",
	"api.stripe.com",
	"api.resend.com",
}

// WrapRoundTripper records outbound gateway and email calls as sentry spans.
func WrapRoundTripper(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return sentryhttpclient.NewSentryRoundTripper(
		base,
		sentryhttpclient.WithTracePropagationTargets(tracePropagationTargets),
	)
}

// NewHTTPClient builds the client used for payment gateway and email provider calls. timeout
// bounds the whole exchange; zero leaves it to the request context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 10
	transport.ResponseHeaderTimeout = 20 * time.Second

	client := &http.Client{Transport: WrapRoundTripper(transport)}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return client
}
