// Package events publishes order lifecycle events.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	OrderCreated          Type = "order.created"
	OrderPaymentSucceeded Type = "order.payment_succeeded"
	OrderPaymentFailed    Type = "order.payment_failed"
	OrderStatusChanged    Type = "order.status_changed"
)

// OrderEvent is the message body published for every order lifecycle change.
type OrderEvent struct {
	ID              string          `json:"id"`
	Type            Type            `json:"type"`
	OrderID         string          `json:"orderId"`
	ExternalOrderID string          `json:"externalOrderId"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"paymentStatus"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Currency        string          `json:"currency"`
	GatewayStatus   string          `json:"gatewayStatus,omitempty"`
	OccurredAt      time.Time       `json:"occurredAt"`
}

// NewOrderEvent stamps an event with a fresh id and the current time.
func NewOrderEvent(eventType Type, orderID uuid.UUID) OrderEvent {
	return OrderEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OrderID:    orderID.String(),
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

type Config struct {
	Provider string
	Brokers  []string
	Topic    string
}

func NewPublisher(cfg Config) (Publisher, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		return NoopPublisher{}, nil
	case "kafka":
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("kafka brokers are required")
		}
		if cfg.Topic == "" {
			return nil, fmt.Errorf("kafka topic is required")
		}
		return NewKafkaPublisher(cfg.Brokers, cfg.Topic), nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", cfg.Provider)
	}
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, OrderEvent) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
