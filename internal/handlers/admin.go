package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/storefrontapp/storefront/internal/services"
)

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handlers) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	orders, err := h.adminService.ListOrders(ctx, limit)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to list orders", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}
	h.writeJSON(w, r, http.StatusOK, orders)
}

func (h *Handlers) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := h.adminService.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.loggerFromContext(ctx).Error("failed to load order", "error", err, "order_id", orderID)
		writeError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

func (h *Handlers) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.adminService.UpdateOrderStatus(ctx, orderID, req.Status)
	if err != nil {
		var validationErr services.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, validationErr.Message)
		case errors.Is(err, services.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, services.ErrOrderStatusConflict):
			writeError(w, http.StatusConflict, "Order status can only move forward")
		default:
			h.loggerFromContext(ctx).Error("failed to update order status", "error", err, "order_id", orderID)
			writeError(w, http.StatusInternalServerError, "Failed to update order")
		}
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}
