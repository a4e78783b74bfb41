package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefrontapp/storefront/internal/db"
	"github.com/storefrontapp/storefront/internal/services"
)

type createOrderResponse struct {
	Success             bool            `json:"success"`
	OrderID             string          `json:"orderId"`
	PaymentSessionToken string          `json:"paymentSessionToken"`
	ExternalOrderID     string          `json:"externalOrderId"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
}

type verifyPaymentResponse struct {
	Success       bool      `json:"success"`
	Status        string    `json:"status"`
	Order         *db.Order `json:"order,omitempty"`
	PaymentStatus string    `json:"paymentStatus,omitempty"`
	Message       string    `json:"message,omitempty"`
}

// CreatePaymentOrder creates a pending order and opens a gateway payment session for it.
func (h *Handlers) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input services.CheckoutInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.checkoutService.CreateCheckout(ctx, input)
	if err != nil {
		var validationErr services.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, validationErr.Message)
		case errors.Is(err, services.ErrGateway):
			writeError(w, http.StatusInternalServerError, "Failed to create payment session")
		default:
			h.loggerFromContext(ctx).Error("failed to create payment order", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create payment order")
		}
		return
	}

	h.writeJSON(w, r, http.StatusOK, createOrderResponse{
		Success:             true,
		OrderID:             result.OrderID.String(),
		PaymentSessionToken: result.PaymentSessionToken,
		ExternalOrderID:     result.ExternalOrderID,
		TotalAmount:         result.TotalAmount,
	})
}

// VerifyPayment reconciles the gateway outcome for an order after the customer returns.
func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	orderID := strings.TrimSpace(query.Get("orderId"))
	externalOrderID := strings.TrimSpace(query.Get("externalOrderId"))
	if externalOrderID == "" {
		externalOrderID = strings.TrimSpace(query.Get("cashfreeOrderId"))
	}

	result, err := h.paymentService.VerifyPayment(ctx, orderID, externalOrderID)
	if err != nil {
		var (
			validationErr services.ValidationError
			failedErr     *services.PaymentFailedError
		)
		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, validationErr.Message)
		case errors.As(err, &failedErr):
			h.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "Payment failed", Status: failedErr.GatewayStatus})
		case errors.Is(err, services.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, services.ErrPaymentNotFound):
			writeError(w, http.StatusNotFound, "Payment not found")
		case errors.Is(err, services.ErrPaymentConflict):
			writeError(w, http.StatusConflict, "Payment state conflict, please contact support")
		default:
			h.loggerFromContext(ctx).Error("payment verification failed", "error", err, "order_id", orderID)
			writeError(w, http.StatusInternalServerError, "Payment verification failed")
		}
		return
	}

	if result.Outcome == services.OutcomePending {
		h.writeJSON(w, r, http.StatusAccepted, verifyPaymentResponse{
			Success:       false,
			Status:        string(result.Outcome),
			PaymentStatus: result.GatewayStatus,
			Message:       result.Message,
		})
		return
	}

	h.writeJSON(w, r, http.StatusOK, verifyPaymentResponse{
		Success: true,
		Status:  string(result.Outcome),
		Order:   result.Order,
	})
}
