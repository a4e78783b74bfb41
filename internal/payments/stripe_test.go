package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v84"
)

func TestNormalizeStripeStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status stripeapi.PaymentIntentStatus
		want   Status
	}{
		{status: stripeapi.PaymentIntentStatusSucceeded, want: StatusSuccess},
		{status: stripeapi.PaymentIntentStatusCanceled, want: StatusFailed},
		{status: stripeapi.PaymentIntentStatusRequiresPaymentMethod, want: StatusPending},
		{status: stripeapi.PaymentIntentStatusProcessing, want: StatusPending},
	}

	for _, tt := range tests {
		if got := normalizeStripeStatus(tt.status); got != tt.want {
			t.Errorf("normalizeStripeStatus(%s) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestPaymentFromIntent(t *testing.T) {
	t.Parallel()

	payment := paymentFromIntent(&stripeapi.PaymentIntent{
		ID:       "pi_123",
		Status:   stripeapi.PaymentIntentStatusSucceeded,
		Amount:   21079,
		Currency: "inr",
		Created:  1714550400,
	})

	if payment.ID != "pi_123" || payment.Status != StatusSuccess || payment.RawStatus != "succeeded" {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if !payment.Amount.Equal(decimal.RequireFromString("210.79")) {
		t.Fatalf("amount = %s", payment.Amount)
	}
	if payment.Currency != "INR" || payment.Time.IsZero() {
		t.Fatalf("unexpected currency or time: %+v", payment)
	}
}

func TestMinorUnits(t *testing.T) {
	t.Parallel()

	if got := minorUnits(decimal.RequireFromString("210.79")); got != 21079 {
		t.Fatalf("minorUnits = %d, want 21079", got)
	}
	if got := minorUnits(decimal.RequireFromString("10")); got != 1000 {
		t.Fatalf("minorUnits = %d, want 1000", got)
	}
}

func TestEscapeSearchValue(t *testing.T) {
	t.Parallel()

	if got := escapeSearchValue("a'b"); got != `a\'b` {
		t.Fatalf("escapeSearchValue = %q", got)
	}
}

func TestIntentIDFromClientSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		secret string
		want   string
		ok     bool
	}{
		{secret: "pi_3Abc_secret_xyz", want: "pi_3Abc", ok: true},
		{secret: "", ok: false},
		{secret: "session_token", ok: false},
		{secret: "seti_123_secret_abc", ok: false},
		{secret: "pi__secret_abc", ok: false},
	}

	for _, tt := range tests {
		got, ok := intentIDFromClientSecret(tt.secret)
		if got != tt.want || ok != tt.ok {
			t.Errorf("intentIDFromClientSecret(%q) = %q, %v; want %q, %v", tt.secret, got, ok, tt.want, tt.ok)
		}
	}
}

func newTestStripeGateway(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return newStripeGateway("sk_test_123", &stripeapi.BackendConfig{
		HTTPClient:        server.Client(),
		URL:               stripeapi.String(server.URL),
		MaxNetworkRetries: stripeapi.Int64(0),
	})
}

func TestStripeListPaymentsRetrievesIntentByID(t *testing.T) {
	t.Parallel()

	var paths []string
	gateway := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "pi_123",
			"object": "payment_intent",
			"status": "processing",
			"amount": 21079,
			"currency": "inr",
			"created": 1714550400,
			"metadata": {"external_order_id": "abc_123"}
		}`))
	})

	got, err := gateway.ListPayments(context.Background(), PaymentLookup{
		ExternalOrderID: "abc_123",
		SessionToken:    "pi_123_secret_xyz",
	})
	if err != nil {
		t.Fatalf("ListPayments() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "pi_123" || got[0].Status != StatusPending {
		t.Fatalf("unexpected payments: %+v", got)
	}
	if len(paths) != 1 || paths[0] != "GET /v1/payment_intents/pi_123" {
		t.Fatalf("requests = %v, want a single intent retrieve", paths)
	}
}

func TestStripeListPaymentsRejectsForeignIntent(t *testing.T) {
	t.Parallel()

	gateway := newTestStripeGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","object":"payment_intent","status":"succeeded","metadata":{"external_order_id":"other_1"}}`))
	})

	_, err := gateway.ListPayments(context.Background(), PaymentLookup{
		ExternalOrderID: "abc_123",
		SessionToken:    "pi_123_secret_xyz",
	})
	if err == nil || !strings.Contains(err.Error(), "other_1") {
		t.Fatalf("expected ownership error, got %v", err)
	}
}
