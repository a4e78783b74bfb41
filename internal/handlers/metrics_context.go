package handlers

import (
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/gorilla/mux"

	"github.com/storefrontapp/storefront/internal/observability"
)

// MetricsContext adds a request-scoped meter to the context, pre-attributed with the request
// and, where the route names one, the order being acted on.
func (h *Handlers) MetricsContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		attrs := []attribute.Builder{
			attribute.String("http.request_id", requestIDFromRequest(r)),
			attribute.String("http.method", r.Method),
			attribute.String("network.client.ip", clientIP(r)),
		}
		route := routeLabel(r)
		if route != "" {
			attrs = append(attrs, attribute.String("http.route", route))
		}
		if orderID := orderIDForMetrics(r, route); orderID != "" {
			attrs = append(attrs, attribute.String("order.id", orderID))
		}
		if userAgent := strings.TrimSpace(r.UserAgent()); userAgent != "" {
			attrs = append(attrs, attribute.String("http.user_agent", userAgent))
		}

		meter := sentry.NewMeter(ctx).WithCtx(ctx)
		meter.SetAttributes(attrs...)

		ctx = observability.WithMeter(ctx, meter)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func orderIDForMetrics(r *http.Request, route string) string {
	switch {
	case route == "payment.verify":
		return strings.TrimSpace(r.URL.Query().Get("orderId"))
	case strings.HasPrefix(route, "admin.orders."):
		return mux.Vars(r)["id"]
	default:
		return ""
	}
}
