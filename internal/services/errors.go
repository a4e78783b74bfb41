package services

import (
	"errors"
	"fmt"
)

// ValidationError carries a message that is safe to show to the caller.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// PaymentFailedError is returned when the gateway reports a failed payment.
type PaymentFailedError struct {
	GatewayStatus string
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment failed with gateway status %s", e.GatewayStatus)
}

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrGateway             = errors.New("payment gateway error")
	ErrPaymentConflict     = errors.New("payment state conflict")
	ErrOrderStatusConflict = errors.New("order status conflict")
	ErrProductNotFound     = errors.New("product not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryExists      = errors.New("category already exists")
)
