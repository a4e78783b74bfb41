package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/storefrontapp/storefront/internal/db"
	"github.com/storefrontapp/storefront/internal/events"
	"github.com/storefrontapp/storefront/internal/logging"
	"github.com/storefrontapp/storefront/internal/observability"
)

const (
	DefaultOrderListLimit = 50
	MaxOrderListLimit     = 200
)

type AdminService struct {
	orders       orderLedger
	orderEmailer OrderEmailSender
	publisher    events.Publisher
	logger       *slog.Logger
}

func NewAdminService(orders orderLedger, orderEmailer OrderEmailSender, publisher events.Publisher, logger *slog.Logger) *AdminService {
	if orderEmailer == nil {
		orderEmailer = noopOrderEmailSender{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &AdminService{
		orders:       orders,
		orderEmailer: orderEmailer,
		publisher:    publisher,
		logger:       logger,
	}
}

func (s *AdminService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// ListOrders returns the newest orders first.
func (s *AdminService) ListOrders(ctx context.Context, limit int) ([]*db.Order, error) {
	if limit <= 0 {
		limit = DefaultOrderListLimit
	}
	if limit > MaxOrderListLimit {
		limit = MaxOrderListLimit
	}

	orders, err := s.orders.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *AdminService) GetOrder(ctx context.Context, orderID uuid.UUID) (*db.Order, error) {
	if orderID == uuid.Nil {
		return nil, ErrOrderNotFound
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

// UpdateOrderStatus moves an order forward in the fulfillment sequence. Staff may progress an
// order whatever its payment status; payment status is never changed here.
func (s *AdminService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (*db.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.admin.update_order_status",
		sentry.WithOpName("service.admin"),
		sentry.WithDescription("UpdateOrderStatus"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.Count("fulfillment.status_change.received", 1)
	recordFailed := observability.AttributeCounter(meter, "fulfillment.status_change.failed", "reason")

	target := db.OrderStatus(strings.TrimSpace(status))
	if !target.Valid() {
		recordFailed("invalid_status")
		return nil, ValidationError{Message: fmt.Sprintf("Invalid status: %s", status)}
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		recordFailed("order_lookup")
		return nil, err
	}
	logger = logger.With("order_id", order.ID, "from", order.Status, "to", target)

	if !order.Status.Precedes(target) {
		recordFailed("not_forward")
		return nil, fmt.Errorf("%w: cannot move from %s to %s", ErrOrderStatusConflict, order.Status, target)
	}

	updated, err := s.orders.AdvanceStatus(ctx, order.ID, order.Status, target)
	if err != nil {
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			recordFailed("concurrent_update")
			return nil, fmt.Errorf("%w: order changed concurrently", ErrOrderStatusConflict)
		}
		recordFailed("persist")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	meter.Count("fulfillment.status_change.succeeded", 1, sentry.WithAttributes(
		attribute.String("status", string(target)),
	))
	logger.Info("order status updated")

	var emailErr error
	switch target {
	case db.StatusShipped:
		emailErr = s.orderEmailer.SendOrderShipped(ctx, updated)
	case db.StatusDelivered:
		emailErr = s.orderEmailer.SendOrderDelivered(ctx, updated)
	}
	if emailErr != nil {
		meter.Count("email.status_notification.failed", 1)
		logger.Error("failed to send order status email", "error", emailErr)
	}

	publishOrderEvent(ctx, s.publisher, logger, events.OrderStatusChanged, updated, "")

	return updated, nil
}
