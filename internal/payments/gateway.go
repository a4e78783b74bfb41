// Package payments adapts external payment gateways to a single session and lookup contract.
package payments

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is a gateway payment status normalized to the values reconciliation acts on.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusPending Status = "PENDING"
)

var ErrSessionRejected = errors.New("payment gateway rejected the session request")

type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
}

type SessionRequest struct {
	ExternalOrderID string
	Amount          decimal.Decimal
	Currency        string
	Customer        Customer
	ReturnURL       string
}

type Session struct {
	ExternalOrderID string
	Token           string
}

// Payment is one payment attempt recorded by the gateway for an order.
type Payment struct {
	ID        string
	Status    Status
	RawStatus string
	Amount    decimal.Decimal
	Currency  string
	Message   string
	Time      time.Time
}

// PaymentLookup identifies an order at the gateway. SessionToken is the token returned by
// CreateSession and is empty when it was never recorded.
type PaymentLookup struct {
	ExternalOrderID string
	SessionToken    string
}

type Gateway interface {
	Name() string
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	ListPayments(ctx context.Context, lookup PaymentLookup) ([]Payment, error)
}

// LatestPayment picks the attempt with the latest payment time. When no attempt carries a
// time the first record wins.
func LatestPayment(payments []Payment) (Payment, bool) {
	if len(payments) == 0 {
		return Payment{}, false
	}

	latest := payments[0]
	for _, p := range payments[1:] {
		if p.Time.After(latest.Time) {
			latest = p
		}
	}
	return latest, true
}
