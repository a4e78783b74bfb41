package services

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/storefrontapp/storefront/internal/db"
	"github.com/storefrontapp/storefront/internal/events"
	"github.com/storefrontapp/storefront/internal/observability"
)

// orderLedger is the subset of db.OrderStore the services depend on.
type orderLedger interface {
	Create(ctx context.Context, order *db.Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
	ListRecent(ctx context.Context, limit int) ([]*db.Order, error)
	AttachPaymentSession(ctx context.Context, orderID uuid.UUID, token string) error
	MarkPaymentSucceeded(ctx context.Context, orderID uuid.UUID, gatewayStatus string) (*db.Order, error)
	MarkPaymentFailed(ctx context.Context, orderID uuid.UUID, gatewayStatus, reason string) (*db.Order, error)
	AdvanceStatus(ctx context.Context, orderID uuid.UUID, from, to db.OrderStatus) (*db.Order, error)
}

type productRepository interface {
	List(ctx context.Context) ([]*db.Product, error)
	GetByID(ctx context.Context, productID uuid.UUID) (*db.Product, error)
	Create(ctx context.Context, product *db.Product) error
	Update(ctx context.Context, product *db.Product) error
	Delete(ctx context.Context, productID uuid.UUID) error
	ReplaceAll(ctx context.Context, categories []*db.Category, products []*db.Product) error
}

type categoryRepository interface {
	List(ctx context.Context) ([]*db.Category, error)
	GetByID(ctx context.Context, categoryID uuid.UUID) (*db.Category, error)
	Create(ctx context.Context, category *db.Category) error
	Update(ctx context.Context, category *db.Category) error
	Delete(ctx context.Context, categoryID uuid.UUID) error
}

// publishOrderEvent emits an order lifecycle event. Failures are logged and counted only.
func publishOrderEvent(ctx context.Context, publisher events.Publisher, logger *slog.Logger, eventType events.Type, order *db.Order, gatewayStatus string) {
	if publisher == nil || order == nil {
		return
	}

	event := events.NewOrderEvent(eventType, order.ID)
	event.ExternalOrderID = order.ExternalOrderID
	event.Status = string(order.Status)
	event.PaymentStatus = string(order.PaymentStatus)
	event.TotalAmount = order.TotalAmount
	event.Currency = order.Currency
	event.GatewayStatus = gatewayStatus

	if err := publisher.Publish(ctx, event); err != nil {
		observability.MeterFromContext(ctx).Count("events.publish.failed", 1, sentry.WithAttributes(
			attribute.String("event_type", string(eventType)),
		))
		logger.Error("failed to publish order event", "error", err, "event_type", eventType, "order_id", order.ID)
	}
}
