package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CashfreeSandboxURL    = "https://sandbox.cashfree.com"
	CashfreeProductionURL = "https://api.cashfree.com"

	defaultCashfreeAPIVersion = "2022-09-01"
)

type CashfreeConfig struct {
	Environment  string
	ClientID     string
	ClientSecret string
	APIVersion   string
	// BaseURL overrides the environment endpoint.
	BaseURL    string
	HTTPClient *http.Client
}

// CashfreeGateway implements Gateway against the Cashfree PG orders API.
type CashfreeGateway struct {
	clientID     string
	clientSecret string
	apiVersion   string
	baseURL      string
	httpClient   *http.Client
}

func NewCashfreeGateway(cfg CashfreeConfig) (*CashfreeGateway, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("cashfree client id and secret are required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch strings.ToLower(cfg.Environment) {
		case "", "sandbox":
			baseURL = CashfreeSandboxURL
		case "production":
			baseURL = CashfreeProductionURL
		default:
			return nil, fmt.Errorf("unknown cashfree environment %q", cfg.Environment)
		}
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultCashfreeAPIVersion
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &CashfreeGateway{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		apiVersion:   apiVersion,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
	}, nil
}

func (g *CashfreeGateway) Name() string {
	return "cashfree"
}

type cashfreeCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type cashfreeOrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
}

type cashfreeCreateOrderRequest struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     json.Number       `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails cashfreeCustomer  `json:"customer_details"`
	OrderMeta       cashfreeOrderMeta `json:"order_meta"`
}

type cashfreeCreateOrderResponse struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
	OrderStatus      string `json:"order_status"`
}

type cashfreeError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

type cashfreePayment struct {
	CFPaymentID    json.Number `json:"cf_payment_id"`
	OrderID        string      `json:"order_id"`
	PaymentStatus  string      `json:"payment_status"`
	PaymentAmount  json.Number `json:"payment_amount"`
	PaymentCurr    string      `json:"payment_currency"`
	PaymentMessage string      `json:"payment_message"`
	PaymentTime    string      `json:"payment_time"`
}

func (g *CashfreeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.ExternalOrderID == "" {
		return nil, fmt.Errorf("external order id is required")
	}

	body := cashfreeCreateOrderRequest{
		OrderID:       req.ExternalOrderID,
		OrderAmount:   json.Number(req.Amount.StringFixed(2)),
		OrderCurrency: req.Currency,
		CustomerDetails: cashfreeCustomer{
			CustomerID:    req.Customer.ID,
			CustomerName:  req.Customer.Name,
			CustomerEmail: req.Customer.Email,
			CustomerPhone: req.Customer.Phone,
		},
		OrderMeta: cashfreeOrderMeta{ReturnURL: req.ReturnURL},
	}

	var resp cashfreeCreateOrderResponse
	if err := g.do(ctx, http.MethodPost, "/pg/orders", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create cashfree order: %w", err)
	}
	if resp.PaymentSessionID == "" {
		return nil, fmt.Errorf("%w: cashfree returned no payment session id", ErrSessionRejected)
	}

	externalID := resp.OrderID
	if externalID == "" {
		externalID = req.ExternalOrderID
	}
	return &Session{ExternalOrderID: externalID, Token: resp.PaymentSessionID}, nil
}

func (g *CashfreeGateway) ListPayments(ctx context.Context, lookup PaymentLookup) ([]Payment, error) {
	externalOrderID := lookup.ExternalOrderID
	if externalOrderID == "" {
		return nil, fmt.Errorf("external order id is required")
	}

	var records []cashfreePayment
	path := "/pg/orders/" + url.PathEscape(externalOrderID) + "/payments"
	if err := g.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, fmt.Errorf("failed to list cashfree payments: %w", err)
	}

	payments := make([]Payment, 0, len(records))
	for _, record := range records {
		payments = append(payments, record.toPayment())
	}
	return payments, nil
}

func (p cashfreePayment) toPayment() Payment {
	payment := Payment{
		ID:        p.CFPaymentID.String(),
		Status:    normalizeCashfreeStatus(p.PaymentStatus),
		RawStatus: p.PaymentStatus,
		Currency:  p.PaymentCurr,
		Message:   p.PaymentMessage,
	}
	if amount, err := decimal.NewFromString(p.PaymentAmount.String()); err == nil {
		payment.Amount = amount
	}
	if p.PaymentTime != "" {
		if parsed, err := time.Parse(time.RFC3339, p.PaymentTime); err == nil {
			payment.Time = parsed
		}
	}
	return payment
}

// normalizeCashfreeStatus keeps SUCCESS and FAILED. NOT_ATTEMPTED, PENDING, USER_DROPPED,
// CANCELLED, VOID and FLAGGED are all still open from the order's point of view.
func normalizeCashfreeStatus(status string) Status {
	switch strings.ToUpper(status) {
	case "SUCCESS":
		return StatusSuccess
	case "FAILED":
		return StatusFailed
	default:
		return StatusPending
	}
}

func (g *CashfreeGateway) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-api-version", g.apiVersion)
	req.Header.Set("x-client-id", g.clientID)
	req.Header.Set("x-client-secret", g.clientSecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("failed to read cashfree response: %w", readErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close cashfree response body: %w", closeErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp cashfreeError
		if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
			return fmt.Errorf("cashfree error (%d %s): %s", resp.StatusCode, errResp.Code, errResp.Message)
		}
		return fmt.Errorf("cashfree API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode cashfree response: %w", err)
	}
	return nil
}
