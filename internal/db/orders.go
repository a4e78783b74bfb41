package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/storefrontapp/storefront/internal/crypto"
)

// OrderStore is the order ledger. Payment transitions are conditional updates keyed on
// the current payment_status, so concurrent reconcilers cannot both apply one.
type OrderStore struct {
	pool   *pgxpool.Pool
	sealer crypto.Sealer
}

const orderColumns = `id, items, processing_fee::text, total_amount::text, currency, customer_info,
	status, payment_status, external_order_id, payment_session_token, gateway_payment_status,
	failure_reason, created_at, updated_at, paid_at`

func NewOrderStore(pool *pgxpool.Pool, sealer crypto.Sealer) (*OrderStore, error) {
	if sealer == nil {
		return nil, fmt.Errorf("sealer is required")
	}
	return &OrderStore{
		pool:   pool,
		sealer: sealer,
	}, nil
}

// Create inserts a new order. ID, ExternalOrderID and CreatedAt must already be assigned.
func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if order.ID == uuid.Nil || order.ExternalOrderID == "" || order.CreatedAt.IsZero() {
		return fmt.Errorf("order id, external order id and created at are required")
	}
	if order.Status == "" {
		order.Status = StatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = PaymentPending
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}
	customerInfo, err := crypto.SealJSON(s.sealer, order.CustomerInfo, order.ID.String())
	if err != nil {
		return fmt.Errorf("failed to seal customer info: %w", err)
	}

	query := `
		INSERT INTO orders (id, items, processing_fee, total_amount, currency, customer_info,
			status, payment_status, external_order_id, created_at, updated_at)
		VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5, $6, $7, $8, $9, $10, $10)
		RETURNING updated_at
	`
	err = s.pool.QueryRow(ctx, query,
		order.ID,
		itemsJSON,
		order.ProcessingFee.StringFixed(2),
		order.TotalAmount.StringFixed(2),
		order.Currency,
		customerInfo,
		string(order.Status),
		string(order.PaymentStatus),
		order.ExternalOrderID,
		order.CreatedAt,
	).Scan(&order.UpdatedAt)
	if err != nil {
		return translateError(err)
	}
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	order, err := s.scanOrder(row)
	if err != nil {
		return nil, translateError(err)
	}
	return order, nil
}

// ListRecent returns the newest orders first.
func (s *OrderStore) ListRecent(ctx context.Context, limit int) ([]*Order, error) {
	limitInt32, err := intToInt32(limit, "limit")
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1`, limitInt32)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*Order, 0, limit)
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// AttachPaymentSession records the gateway session token. It succeeds only once per order.
func (s *OrderStore) AttachPaymentSession(ctx context.Context, orderID uuid.UUID, token string) error {
	if token == "" {
		return fmt.Errorf("payment session token is required")
	}
	query := `
		UPDATE orders
		SET payment_session_token = $2, updated_at = NOW()
		WHERE id = $1 AND payment_session_token IS NULL AND payment_status = 'Pending'
	`
	cmdTag, err := s.pool.Exec(ctx, query, orderID, token)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment session already attached or payment settled", ErrInvalidStatusTransition)
	}
	return nil
}

// MarkPaymentSucceeded moves a Pending payment to Success and advances a Pending order to
// Processing in the same statement.
func (s *OrderStore) MarkPaymentSucceeded(ctx context.Context, orderID uuid.UUID, gatewayStatus string) (*Order, error) {
	query := `
		UPDATE orders
		SET payment_status = 'Success',
		    status = CASE WHEN status = 'Pending' THEN 'Processing' ELSE status END,
		    gateway_payment_status = $2, failure_reason = NULL,
		    paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND payment_status = 'Pending'
		RETURNING ` + orderColumns
	return s.transition(ctx, query, "expected payment Pending", orderID, gatewayStatus)
}

func (s *OrderStore) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID, gatewayStatus, reason string) (*Order, error) {
	query := `
		UPDATE orders
		SET payment_status = 'Failed', gateway_payment_status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'Pending'
		RETURNING ` + orderColumns
	return s.transition(ctx, query, "expected payment Pending", orderID, gatewayStatus, reason)
}

// AdvanceStatus changes the fulfillment status only if it still equals from.
func (s *OrderStore) AdvanceStatus(ctx context.Context, orderID uuid.UUID, from, to OrderStatus) (*Order, error) {
	query := `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + orderColumns
	return s.transition(ctx, query, "expected status "+string(from), orderID, string(from), string(to))
}

func (s *OrderStore) transition(ctx context.Context, query, expectation string, args ...any) (*Order, error) {
	order, err := s.scanOrder(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatusTransition, expectation)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

type orderRow struct {
	ID                   uuid.UUID
	Items                []byte
	ProcessingFee        string
	TotalAmount          string
	Currency             string
	CustomerInfo         string
	Status               string
	PaymentStatus        string
	ExternalOrderID      string
	PaymentSessionToken  pgtype.Text
	GatewayPaymentStatus pgtype.Text
	FailureReason        pgtype.Text
	CreatedAt            time.Time
	UpdatedAt            time.Time
	PaidAt               pgtype.Timestamptz
}

func (s *OrderStore) scanOrder(row pgx.Row) (*Order, error) {
	var r orderRow
	if err := row.Scan(
		&r.ID,
		&r.Items,
		&r.ProcessingFee,
		&r.TotalAmount,
		&r.Currency,
		&r.CustomerInfo,
		&r.Status,
		&r.PaymentStatus,
		&r.ExternalOrderID,
		&r.PaymentSessionToken,
		&r.GatewayPaymentStatus,
		&r.FailureReason,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.PaidAt,
	); err != nil {
		return nil, err
	}
	return s.rowToOrder(r)
}

func (s *OrderStore) rowToOrder(row orderRow) (*Order, error) {
	order := &Order{
		ID:              row.ID,
		Currency:        row.Currency,
		Status:          OrderStatus(row.Status),
		PaymentStatus:   PaymentStatus(row.PaymentStatus),
		ExternalOrderID: row.ExternalOrderID,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}

	var err error
	if order.ProcessingFee, err = decimal.NewFromString(row.ProcessingFee); err != nil {
		return nil, fmt.Errorf("invalid processing fee for order %s: %w", row.ID, err)
	}
	if order.TotalAmount, err = decimal.NewFromString(row.TotalAmount); err != nil {
		return nil, fmt.Errorf("invalid total amount for order %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Items, &order.Items); err != nil {
		return nil, fmt.Errorf("invalid items for order %s: %w", row.ID, err)
	}
	if err := crypto.OpenJSON(s.sealer, row.CustomerInfo, row.ID.String(), &order.CustomerInfo); err != nil {
		return nil, fmt.Errorf("failed to open customer info for order %s: %w", row.ID, err)
	}

	if row.PaymentSessionToken.Valid {
		order.PaymentSessionToken = row.PaymentSessionToken.String
	}
	if row.GatewayPaymentStatus.Valid {
		order.GatewayPaymentStatus = row.GatewayPaymentStatus.String
	}
	if row.FailureReason.Valid {
		order.FailureReason = row.FailureReason.String
	}
	if row.PaidAt.Valid {
		order.PaidAt = row.PaidAt.Time
	}

	return order, nil
}

func intToInt32(value int, name string) (int32, error) {
	if value < math.MinInt32 || value > math.MaxInt32 {
		return 0, fmt.Errorf("%s out of int32 range: %d", name, value)
	}
	return int32(value), nil
}
