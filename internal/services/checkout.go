package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefrontapp/storefront/internal/catalog"
	"github.com/storefrontapp/storefront/internal/db"
	"github.com/storefrontapp/storefront/internal/events"
	"github.com/storefrontapp/storefront/internal/logging"
	"github.com/storefrontapp/storefront/internal/observability"
	"github.com/storefrontapp/storefront/internal/payments"
)

type CheckoutItem struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
}

type CheckoutCustomer struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Zip     string `json:"zip" validate:"required"`
}

// CheckoutInput is the cart value submitted by the client. TotalAmount is the total the
// client displayed and is only used as a cross-check.
type CheckoutInput struct {
	Items        []CheckoutItem   `json:"items" validate:"required,min=1,dive"`
	TotalAmount  *decimal.Decimal `json:"totalAmount" validate:"required"`
	CustomerInfo CheckoutCustomer `json:"customerInfo"`
}

type CheckoutResult struct {
	OrderID             uuid.UUID
	PaymentSessionToken string
	ExternalOrderID     string
	TotalAmount         decimal.Decimal
	Currency            string
}

type checkoutPricer interface {
	CheckDeclared(items []db.OrderItem, declared decimal.Decimal) (decimal.Decimal, error)
	Currency() string
	ProcessingFee() decimal.Decimal
}

type CheckoutService struct {
	orders    orderLedger
	gateway   payments.Gateway
	pricer    checkoutPricer
	publisher events.Publisher
	baseURL   string
	now       func() time.Time
	logger    *slog.Logger
}

func NewCheckoutService(orders orderLedger, gateway payments.Gateway, pricer checkoutPricer, publisher events.Publisher, baseURL string, logger *slog.Logger) *CheckoutService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &CheckoutService{
		orders:    orders,
		gateway:   gateway,
		pricer:    pricer,
		publisher: publisher,
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		now:       time.Now,
		logger:    logger,
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *CheckoutService) CreateCheckout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.create",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("CreateCheckout"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("gateway", s.gateway.Name()))
	meter.Count("checkout.received", 1)
	recordFailed := observability.AttributeCounter(meter, "checkout.failed", "reason")

	if err := validateCheckoutInput(input); err != nil {
		recordFailed("invalid_input")
		return nil, err
	}

	items := make([]db.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, db.OrderItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Name:      strings.TrimSpace(item.Name),
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	total, err := s.pricer.CheckDeclared(items, *input.TotalAmount)
	if err != nil {
		var mismatch *catalog.MismatchError
		if errors.As(err, &mismatch) {
			recordFailed("total_mismatch")
			logger.Warn("checkout total mismatch", "expected", mismatch.Expected.StringFixed(2), "received", mismatch.Received.StringFixed(2))
			return nil, ValidationError{Message: mismatch.Error()}
		}
		recordFailed("pricing")
		return nil, fmt.Errorf("failed to price order: %w", err)
	}

	customer := input.CustomerInfo
	order := &db.Order{
		ID:            uuid.New(),
		Items:         items,
		ProcessingFee: s.pricer.ProcessingFee(),
		TotalAmount:   total,
		Currency:      s.pricer.Currency(),
		CustomerInfo: db.CustomerInfo{
			Name:    strings.TrimSpace(customer.Name),
			Email:   strings.TrimSpace(customer.Email),
			Phone:   strings.TrimSpace(customer.Phone),
			Address: strings.TrimSpace(customer.Address),
			City:    strings.TrimSpace(customer.City),
			State:   strings.TrimSpace(customer.State),
			Zip:     strings.TrimSpace(customer.Zip),
		},
		Status:        db.StatusPending,
		PaymentStatus: db.PaymentPending,
		CreatedAt:     s.now().UTC(),
	}
	order.ExternalOrderID = ExternalOrderID(order.ID, order.CreatedAt)

	if err := s.orders.Create(ctx, order); err != nil {
		recordFailed("persist_order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	logger = logger.With("order_id", order.ID, "external_order_id", order.ExternalOrderID)

	session, err := s.gateway.CreateSession(ctx, payments.SessionRequest{
		ExternalOrderID: order.ExternalOrderID,
		Amount:          total,
		Currency:        order.Currency,
		Customer: payments.Customer{
			ID:    order.ID.String(),
			Name:  order.CustomerInfo.Name,
			Email: order.CustomerInfo.Email,
			Phone: order.CustomerInfo.Phone,
		},
		ReturnURL: s.returnURL(order.ID),
	})
	if err == nil && (session == nil || strings.TrimSpace(session.Token) == "") {
		err = errors.New("gateway returned an empty payment session")
	}
	if err != nil {
		// The order row stays Pending without a session token.
		meter.Count("checkout.session.failed", 1)
		recordFailed("gateway")
		logger.Error("failed to create payment session", "error", err, "gateway", s.gateway.Name())
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	if err := s.orders.AttachPaymentSession(ctx, order.ID, session.Token); err != nil {
		recordFailed("attach_session")
		return nil, fmt.Errorf("failed to record payment session: %w", err)
	}
	order.PaymentSessionToken = session.Token

	publishOrderEvent(ctx, s.publisher, logger, events.OrderCreated, order, "")

	meter.Count("checkout.created", 1)
	logger.Info("checkout created", "total", total.StringFixed(2), "currency", order.Currency, "items", len(items))

	return &CheckoutResult{
		OrderID:             order.ID,
		PaymentSessionToken: session.Token,
		ExternalOrderID:     order.ExternalOrderID,
		TotalAmount:         total,
		Currency:            order.Currency,
	}, nil
}

// returnURL is where the gateway sends the customer back. The gateway substitutes {order_id}.
func (s *CheckoutService) returnURL(orderID uuid.UUID) string {
	return s.baseURL + "/order/" + orderID.String() + "/verify?order_id={order_id}"
}

// ExternalOrderID derives the gateway-facing order reference from the order id and its
// creation time.
func ExternalOrderID(orderID uuid.UUID, createdAt time.Time) string {
	return strings.ReplaceAll(orderID.String(), "-", "") + "_" + strconv.FormatInt(createdAt.UnixMilli(), 36)
}

var checkoutValidator = newCheckoutValidator()

func newCheckoutValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateCheckoutInput(input CheckoutInput) error {
	err := checkoutValidator.Struct(input)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return ValidationError{Message: "Invalid checkout request"}
		}
		return ValidationError{Message: checkoutFieldMessage(fieldErrs[0])}
	}

	for _, item := range input.Items {
		if item.UnitPrice.IsNegative() {
			return ValidationError{Message: fmt.Sprintf("Invalid price for item: %s", item.Name)}
		}
	}
	if !input.TotalAmount.IsPositive() {
		return ValidationError{Message: "Missing required fields"}
	}
	return nil
}

func checkoutFieldMessage(fe validator.FieldError) string {
	namespace := fe.Namespace()
	switch {
	case strings.Contains(namespace, ".customerInfo."):
		if fe.Tag() == "email" {
			return "Invalid customer field: " + fe.Field()
		}
		return "Missing customer field: " + fe.Field()
	case fe.Field() == "quantity":
		return "Item quantity must be at least 1"
	default:
		return "Missing required fields"
	}
}
