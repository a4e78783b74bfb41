package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type recordingWriter struct {
	messages []kafka.Message
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherPublish(t *testing.T) {
	t.Parallel()

	writer := &recordingWriter{}
	publisher := &KafkaPublisher{writer: writer}

	orderID := uuid.New()
	event := NewOrderEvent(OrderPaymentSucceeded, orderID)
	event.TotalAmount = decimal.RequireFromString("210.79")
	event.Currency = "INR"

	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.messages))
	}

	msg := writer.messages[0]
	if string(msg.Key) != orderID.String() {
		t.Fatalf("message key = %q, want order id", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != string(OrderPaymentSucceeded) {
		t.Fatalf("unexpected headers: %+v", msg.Headers)
	}

	var decoded OrderEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Type != OrderPaymentSucceeded || !decoded.TotalAmount.Equal(event.TotalAmount) {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}

	if err := publisher.Close(); err != nil || !writer.closed {
		t.Fatalf("close failed: %v", err)
	}
}

func TestNewPublisher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default is noop", cfg: Config{}},
		{name: "explicit none", cfg: Config{Provider: "none"}},
		{name: "kafka", cfg: Config{Provider: "kafka", Brokers: []string{"localhost:9092"}, Topic: "storefront.orders"}},
		{name: "kafka without brokers", cfg: Config{Provider: "kafka", Topic: "t"}, wantErr: true},
		{name: "kafka without topic", cfg: Config{Provider: "kafka", Brokers: []string{"localhost:9092"}}, wantErr: true},
		{name: "unknown", cfg: Config{Provider: "nats"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			publisher, err := NewPublisher(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			_ = publisher.Close()
		})
	}
}
