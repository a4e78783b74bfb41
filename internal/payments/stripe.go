package payments

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v84"
)

const stripeExternalIDKey = "external_order_id"

// StripeGateway implements Gateway with one PaymentIntent per checkout. The intent's client
// secret is the session token handed to the browser.
type StripeGateway struct {
	client *stripeapi.Client
}

func NewStripeGateway(secretKey string, httpClient *http.Client) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	if httpClient == nil {
		return &StripeGateway{client: stripeapi.NewClient(secretKey)}, nil
	}
	return newStripeGateway(secretKey, &stripeapi.BackendConfig{HTTPClient: httpClient}), nil
}

func newStripeGateway(secretKey string, backend *stripeapi.BackendConfig) *StripeGateway {
	client := stripeapi.NewClient(secretKey, stripeapi.WithBackends(stripeapi.NewBackendsWithConfig(backend)))
	return &StripeGateway{client: client}
}

func (g *StripeGateway) Name() string {
	return "stripe"
}

func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.ExternalOrderID == "" {
		return nil, fmt.Errorf("external order id is required")
	}

	params := &stripeapi.PaymentIntentCreateParams{
		Amount:   stripeapi.Int64(minorUnits(req.Amount)),
		Currency: stripeapi.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
		Metadata: map[string]string{
			stripeExternalIDKey: req.ExternalOrderID,
			"customer_id":       req.Customer.ID,
		},
	}
	if req.Customer.Email != "" {
		params.ReceiptEmail = stripeapi.String(req.Customer.Email)
	}
	params.SetIdempotencyKey(req.ExternalOrderID)

	intent, err := g.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	if intent.ClientSecret == "" {
		return nil, fmt.Errorf("%w: stripe returned no client secret", ErrSessionRejected)
	}

	return &Session{ExternalOrderID: req.ExternalOrderID, Token: intent.ClientSecret}, nil
}

// ListPayments retrieves the checkout's PaymentIntent by id, which is read-after-write
// consistent. Metadata search is only used when no client secret was recorded, since search
// results can lag new intents by up to a minute.
func (g *StripeGateway) ListPayments(ctx context.Context, lookup PaymentLookup) ([]Payment, error) {
	if lookup.ExternalOrderID == "" {
		return nil, fmt.Errorf("external order id is required")
	}

	intentID, ok := intentIDFromClientSecret(lookup.SessionToken)
	if !ok {
		return g.searchPayments(ctx, lookup.ExternalOrderID)
	}

	intent, err := g.client.V1PaymentIntents.Retrieve(ctx, intentID, &stripeapi.PaymentIntentRetrieveParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent %s: %w", intentID, err)
	}
	if got := intent.Metadata[stripeExternalIDKey]; got != lookup.ExternalOrderID {
		return nil, fmt.Errorf("payment intent %s belongs to order %q, not %q", intentID, got, lookup.ExternalOrderID)
	}
	return []Payment{paymentFromIntent(intent)}, nil
}

func (g *StripeGateway) searchPayments(ctx context.Context, externalOrderID string) ([]Payment, error) {
	params := &stripeapi.PaymentIntentSearchParams{
		SearchParams: stripeapi.SearchParams{
			Query: fmt.Sprintf("metadata['%s']:'%s'", stripeExternalIDKey, escapeSearchValue(externalOrderID)),
		},
	}

	var payments []Payment
	for intent, err := range g.client.V1PaymentIntents.Search(ctx, params) {
		if err != nil {
			return nil, fmt.Errorf("failed to search payment intents: %w", err)
		}
		payments = append(payments, paymentFromIntent(intent))
	}
	return payments, nil
}

// intentIDFromClientSecret extracts "pi_123" from a client secret of the form
// "pi_123_secret_abc".
func intentIDFromClientSecret(secret string) (string, bool) {
	id, _, found := strings.Cut(secret, "_secret_")
	if !found || !strings.HasPrefix(id, "pi_") || len(id) <= len("pi_") {
		return "", false
	}
	return id, true
}

func paymentFromIntent(intent *stripeapi.PaymentIntent) Payment {
	payment := Payment{
		ID:        intent.ID,
		Status:    normalizeStripeStatus(intent.Status),
		RawStatus: string(intent.Status),
		Amount:    decimal.New(intent.Amount, -2),
		Currency:  strings.ToUpper(string(intent.Currency)),
	}
	if intent.Created > 0 {
		payment.Time = time.Unix(intent.Created, 0)
	}
	if intent.LastPaymentError != nil {
		payment.Message = intent.LastPaymentError.Msg
	}
	return payment
}

// normalizeStripeStatus treats requires_payment_method as still pending: the customer can
// retry on the same intent after a decline.
func normalizeStripeStatus(status stripeapi.PaymentIntentStatus) Status {
	switch status {
	case stripeapi.PaymentIntentStatusSucceeded:
		return StatusSuccess
	case stripeapi.PaymentIntentStatusCanceled:
		return StatusFailed
	default:
		return StatusPending
	}
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func escapeSearchValue(value string) string {
	return strings.ReplaceAll(value, "'", "\\'")
}
