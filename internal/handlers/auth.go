package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/storefrontapp/storefront/internal/logging"
	"github.com/storefrontapp/storefront/internal/observability"
	"github.com/storefrontapp/storefront/internal/session"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	meter := observability.MeterFromContext(ctx)

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required")
		return
	}

	token, data, err := h.sessionManager.Login(w, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidPassword) {
			meter.Count("admin.login.failed", 1, sentry.WithAttributes(attribute.String("reason", "invalid_password")))
			h.loggerFromContext(ctx).Warn("admin login rejected", "remote_ip", clientIP(r))
			writeError(w, http.StatusUnauthorized, "Invalid password")
			return
		}
		meter.Count("admin.login.failed", 1, sentry.WithAttributes(attribute.String("reason", "token_issue")))
		h.loggerFromContext(ctx).Error("failed to issue admin token", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	meter.Count("admin.login.succeeded", 1)
	h.writeJSON(w, r, http.StatusOK, loginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: data.ExpiresAt,
	})
}

func (h *Handlers) AdminLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.sessionManager.Logout(ctx, w, r); err != nil {
		h.loggerFromContext(ctx).Error("failed to revoke admin token", "error", err)
	}
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

// RequireAdmin rejects requests without a valid admin token and stores the session in context.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		data, err := h.sessionManager.Authenticate(ctx, r)
		if err != nil {
			logger := h.loggerFromContext(ctx)
			switch {
			case errors.Is(err, session.ErrNoToken):
			case errors.Is(err, session.ErrInvalidToken), errors.Is(err, session.ErrTokenRevoked):
				logger.Warn("rejected admin token", "error", err)
			default:
				logger.Error("admin authentication failed", "error", err)
			}
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		meter := observability.MeterFromContext(ctx)
		meter.SetAttributes(
			attribute.String("admin.subject", data.Subject),
			attribute.String("admin.token_id", data.TokenID),
		)
		ctx = session.WithData(ctx, data)
		ctx = observability.WithMeter(ctx, meter)
		ctx, _ = logging.Enrich(ctx, h.logger, "admin_token_id", data.TokenID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
