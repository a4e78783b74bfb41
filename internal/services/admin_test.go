package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/storefrontapp/storefront/internal/db"
	"github.com/storefrontapp/storefront/internal/events"
)

func seedPaidOrder(ledger *fakeLedger, status db.OrderStatus) *db.Order {
	order := seedPendingOrder(ledger)
	order.PaymentStatus = db.PaymentSuccess
	order.Status = status
	ledger.put(order)
	return order
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		paymentStatus db.PaymentStatus
		from          db.OrderStatus
		to            string
		wantErr       error
		wantShipped   int
		wantDelivered int
	}{
		{name: "processing to shipped", paymentStatus: db.PaymentSuccess, from: db.StatusProcessing, to: "Shipped", wantShipped: 1},
		{name: "shipped to delivered", paymentStatus: db.PaymentSuccess, from: db.StatusShipped, to: "Delivered", wantDelivered: 1},
		{name: "skip ahead", paymentStatus: db.PaymentSuccess, from: db.StatusProcessing, to: "Delivered", wantDelivered: 1},
		{name: "backwards", paymentStatus: db.PaymentSuccess, from: db.StatusShipped, to: "Processing", wantErr: ErrOrderStatusConflict},
		{name: "same status", paymentStatus: db.PaymentSuccess, from: db.StatusShipped, to: "Shipped", wantErr: ErrOrderStatusConflict},
		{name: "pending payment", paymentStatus: db.PaymentPending, from: db.StatusPending, to: "Processing"},
		{name: "failed payment shipped by staff", paymentStatus: db.PaymentFailed, from: db.StatusPending, to: "Shipped", wantShipped: 1},
		{name: "failed payment backwards", paymentStatus: db.PaymentFailed, from: db.StatusShipped, to: "Pending", wantErr: ErrOrderStatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ledger := newFakeLedger()
			emailer := &recordingEmailer{}
			publisher := &recordingPublisher{}
			service := NewAdminService(ledger, emailer, publisher, discardLogger())

			order := seedPendingOrder(ledger)
			order.PaymentStatus = tt.paymentStatus
			order.Status = tt.from
			ledger.put(order)

			updated, err := service.UpdateOrderStatus(context.Background(), order.ID, tt.to)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				stored := ledger.get(order.ID)
				if stored.Status != tt.from || stored.PaymentStatus != tt.paymentStatus {
					t.Fatalf("rejected change must not mutate: %s/%s", stored.Status, stored.PaymentStatus)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateOrderStatus() error = %v", err)
			}
			if string(updated.Status) != tt.to {
				t.Fatalf("Status = %s, want %s", updated.Status, tt.to)
			}
			if updated.PaymentStatus != tt.paymentStatus {
				t.Fatalf("payment status changed to %s, want %s", updated.PaymentStatus, tt.paymentStatus)
			}
			if len(emailer.shipped) != tt.wantShipped || len(emailer.delivered) != tt.wantDelivered {
				t.Fatalf("emails shipped=%d delivered=%d", len(emailer.shipped), len(emailer.delivered))
			}
			if got := publisher.types(); len(got) != 1 || got[0] != events.OrderStatusChanged {
				t.Fatalf("published events = %v", got)
			}
		})
	}
}

func TestAdminUpdateOrderStatus_InvalidInput(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	service := NewAdminService(ledger, nil, nil, discardLogger())
	order := seedPaidOrder(ledger, db.StatusProcessing)

	var validationErr ValidationError
	if _, err := service.UpdateOrderStatus(context.Background(), order.ID, "Lost"); !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, err := service.UpdateOrderStatus(context.Background(), uuid.New(), "Shipped"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestAdminListOrders(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range 60 {
		order := seedPendingOrder(ledger)
		order.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		ledger.put(order)
	}
	service := NewAdminService(ledger, nil, nil, discardLogger())

	orders, err := service.ListOrders(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if len(orders) != DefaultOrderListLimit {
		t.Fatalf("len = %d, want %d", len(orders), DefaultOrderListLimit)
	}
	if !orders[0].CreatedAt.After(orders[1].CreatedAt) {
		t.Fatal("orders must be newest first")
	}

	orders, err = service.ListOrders(context.Background(), 1000)
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if len(orders) != 60 {
		t.Fatalf("len = %d, want 60", len(orders))
	}
}

func TestAdminGetOrder(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	service := NewAdminService(ledger, nil, nil, discardLogger())
	order := seedPendingOrder(ledger)

	got, err := service.GetOrder(context.Background(), order.ID)
	if err != nil || got.ID != order.ID {
		t.Fatalf("GetOrder() = %v, %v", got, err)
	}
	if _, err := service.GetOrder(context.Background(), uuid.Nil); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
