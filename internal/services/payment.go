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
	"github.com/storefrontapp/storefront/internal/payments"
)

type VerificationOutcome string

const (
	OutcomePaid        VerificationOutcome = "paid"
	OutcomeAlreadyPaid VerificationOutcome = "already_paid"
	OutcomePending     VerificationOutcome = "pending"
)

type VerificationResult struct {
	Outcome       VerificationOutcome
	Order         *db.Order
	GatewayStatus string
	Message       string
}

type PaymentService struct {
	orders    orderLedger
	gateway   payments.Gateway
	emailer   OrderEmailSender
	publisher events.Publisher
	logger    *slog.Logger
}

func NewPaymentService(orders orderLedger, gateway payments.Gateway, emailer OrderEmailSender, publisher events.Publisher, logger *slog.Logger) *PaymentService {
	if emailer == nil {
		emailer = noopOrderEmailSender{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &PaymentService{
		orders:    orders,
		gateway:   gateway,
		emailer:   emailer,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *PaymentService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// VerifyPayment reconciles the gateway's view of an order's payment onto the ledger. It is
// safe to call repeatedly and concurrently; only one caller performs the terminal transition.
func (s *PaymentService) VerifyPayment(ctx context.Context, orderID, externalOrderID string) (*VerificationResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.payment.verify",
		sentry.WithOpName("service.payment"),
		sentry.WithDescription("VerifyPayment"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("gateway", s.gateway.Name()))
	recordOutcome := observability.AttributeCounter(meter, "payment.verify.outcome", "outcome")

	orderID = strings.TrimSpace(orderID)
	externalOrderID = strings.TrimSpace(externalOrderID)
	if orderID == "" || externalOrderID == "" {
		recordOutcome("invalid_input")
		return nil, ValidationError{Message: "Missing order parameters"}
	}

	id, err := uuid.Parse(orderID)
	if err != nil {
		recordOutcome("order_not_found")
		return nil, fmt.Errorf("%w: invalid order id", ErrOrderNotFound)
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			recordOutcome("order_not_found")
			return nil, ErrOrderNotFound
		}
		recordOutcome("error")
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	logger = logger.With("order_id", order.ID, "external_order_id", externalOrderID)

	if order.ExternalOrderID != externalOrderID {
		recordOutcome("reference_mismatch")
		logger.Warn("payment verification reference mismatch", "stored_external_order_id", order.ExternalOrderID)
		return nil, ValidationError{Message: "Order reference does not match"}
	}

	if order.PaymentStatus == db.PaymentSuccess {
		recordOutcome(string(OutcomeAlreadyPaid))
		return &VerificationResult{Outcome: OutcomeAlreadyPaid, Order: order}, nil
	}

	attempts, err := s.gateway.ListPayments(ctx, payments.PaymentLookup{
		ExternalOrderID: externalOrderID,
		SessionToken:    order.PaymentSessionToken,
	})
	if err != nil {
		recordOutcome("payment_not_found")
		logger.Warn("failed to fetch gateway payments", "error", err, "gateway", s.gateway.Name())
		return nil, fmt.Errorf("%w: %w", ErrPaymentNotFound, err)
	}
	latest, ok := payments.LatestPayment(attempts)
	if !ok {
		recordOutcome("payment_not_found")
		return nil, ErrPaymentNotFound
	}

	switch latest.Status {
	case payments.StatusSuccess:
		return s.applySuccess(ctx, logger, order, latest, recordOutcome)
	case payments.StatusFailed:
		return s.applyFailure(ctx, logger, order, latest, recordOutcome)
	default:
		recordOutcome(string(OutcomePending))
		return &VerificationResult{
			Outcome:       OutcomePending,
			Order:         order,
			GatewayStatus: latest.RawStatus,
			Message:       "Payment is pending",
		}, nil
	}
}

func (s *PaymentService) applySuccess(ctx context.Context, logger *slog.Logger, order *db.Order, payment payments.Payment, recordOutcome func(string)) (*VerificationResult, error) {
	// Success was settled before the gateway call, so a terminal status here is Failed.
	if order.PaymentStatus.Terminal() {
		recordOutcome("conflict")
		logger.Error("gateway reports success for a failed order", "gateway_status", payment.RawStatus, "payment_id", payment.ID)
		return nil, ErrPaymentConflict
	}

	updated, err := s.orders.MarkPaymentSucceeded(ctx, order.ID, payment.RawStatus)
	if err != nil {
		if !errors.Is(err, db.ErrInvalidStatusTransition) {
			recordOutcome("error")
			return nil, fmt.Errorf("failed to record payment success: %w", err)
		}

		// Another request settled the payment first.
		current, reloadErr := s.orders.GetByID(ctx, order.ID)
		if reloadErr != nil {
			recordOutcome("error")
			return nil, fmt.Errorf("failed to reload order: %w", reloadErr)
		}
		switch current.PaymentStatus {
		case db.PaymentSuccess:
			recordOutcome(string(OutcomeAlreadyPaid))
			return &VerificationResult{Outcome: OutcomeAlreadyPaid, Order: current}, nil
		case db.PaymentFailed:
			recordOutcome("conflict")
			logger.Error("gateway reports success for a failed order", "gateway_status", payment.RawStatus, "payment_id", payment.ID)
			return nil, ErrPaymentConflict
		default:
			recordOutcome("error")
			return nil, fmt.Errorf("payment transition rejected: %w", err)
		}
	}

	recordOutcome(string(OutcomePaid))
	logger.Info("payment succeeded", "payment_id", payment.ID, "status", updated.Status)

	if err := s.emailer.SendOrderConfirmation(ctx, updated); err != nil {
		observability.MeterFromContext(ctx).Count("email.confirmation.failed", 1)
		logger.Error("failed to send order confirmation email", "error", err)
	}
	publishOrderEvent(ctx, s.publisher, logger, events.OrderPaymentSucceeded, updated, payment.RawStatus)

	return &VerificationResult{
		Outcome:       OutcomePaid,
		Order:         updated,
		GatewayStatus: payment.RawStatus,
	}, nil
}

func (s *PaymentService) applyFailure(ctx context.Context, logger *slog.Logger, order *db.Order, payment payments.Payment, recordOutcome func(string)) (*VerificationResult, error) {
	failed := &PaymentFailedError{GatewayStatus: payment.RawStatus}

	if order.PaymentStatus.Terminal() {
		recordOutcome("failed")
		return nil, failed
	}

	updated, err := s.orders.MarkPaymentFailed(ctx, order.ID, payment.RawStatus, payment.Message)
	if err != nil {
		if !errors.Is(err, db.ErrInvalidStatusTransition) {
			recordOutcome("error")
			return nil, fmt.Errorf("failed to record payment failure: %w", err)
		}

		current, reloadErr := s.orders.GetByID(ctx, order.ID)
		if reloadErr != nil {
			recordOutcome("error")
			return nil, fmt.Errorf("failed to reload order: %w", reloadErr)
		}
		if current.PaymentStatus == db.PaymentSuccess {
			recordOutcome(string(OutcomeAlreadyPaid))
			return &VerificationResult{Outcome: OutcomeAlreadyPaid, Order: current}, nil
		}
		recordOutcome("failed")
		return nil, failed
	}

	recordOutcome("failed")
	logger.Warn("payment failed", "payment_id", payment.ID, "gateway_status", payment.RawStatus, "reason", payment.Message)
	publishOrderEvent(ctx, s.publisher, logger, events.OrderPaymentFailed, updated, payment.RawStatus)

	return nil, failed
}
