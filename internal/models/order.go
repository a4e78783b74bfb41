package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentSuccess PaymentStatus = "Success"
	PaymentFailed  PaymentStatus = "Failed"
)

var orderStatusRank = map[OrderStatus]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusShipped:    2,
	StatusDelivered:  3,
}

// Valid reports whether s is one of the known fulfillment states.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok
}

// Precedes reports whether next is strictly later than s in the fulfillment sequence.
func (s OrderStatus) Precedes(next OrderStatus) bool {
	from, okFrom := orderStatusRank[s]
	to, okTo := orderStatusRank[next]
	return okFrom && okTo && from < to
}

// Terminal reports whether the payment outcome can no longer change.
func (p PaymentStatus) Terminal() bool {
	return p == PaymentSuccess || p == PaymentFailed
}

type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

type Order struct {
	ID                   uuid.UUID       `json:"id"`
	Items                []OrderItem     `json:"items"`
	ProcessingFee        decimal.Decimal `json:"processingFee"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	Currency             string          `json:"currency"`
	CustomerInfo         CustomerInfo    `json:"customerInfo"`
	Status               OrderStatus     `json:"status"`
	PaymentStatus        PaymentStatus   `json:"paymentStatus"`
	ExternalOrderID      string          `json:"externalOrderId"`
	PaymentSessionToken  string          `json:"paymentSessionToken,omitempty"`
	GatewayPaymentStatus string          `json:"gatewayPaymentStatus,omitempty"`
	FailureReason        string          `json:"failureReason,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
	PaidAt               time.Time       `json:"paidAt,omitzero"`
}
