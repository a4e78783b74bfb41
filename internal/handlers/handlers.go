package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/storefrontapp/storefront/internal/config"
	"github.com/storefrontapp/storefront/internal/db"
	"github.com/storefrontapp/storefront/internal/logging"
	"github.com/storefrontapp/storefront/internal/services"
	"github.com/storefrontapp/storefront/internal/session"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

type pinger interface {
	Ping(ctx context.Context) error
}

type checkoutCreator interface {
	CreateCheckout(ctx context.Context, input services.CheckoutInput) (*services.CheckoutResult, error)
}

type paymentVerifier interface {
	VerifyPayment(ctx context.Context, orderID, externalOrderID string) (*services.VerificationResult, error)
}

type catalogManager interface {
	ListProducts(ctx context.Context) ([]*db.Product, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*db.Product, error)
	CreateProduct(ctx context.Context, input services.ProductInput) (*db.Product, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input services.ProductInput) (*db.Product, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	ListCategories(ctx context.Context) ([]*db.Category, error)
	CreateCategory(ctx context.Context, name string) (*db.Category, error)
	UpdateCategory(ctx context.Context, categoryID uuid.UUID, name string) (*db.Category, error)
	DeleteCategory(ctx context.Context, categoryID uuid.UUID) error
	Seed(ctx context.Context, content []byte) (*services.SeedResult, error)
}

type orderAdministrator interface {
	ListOrders(ctx context.Context, limit int) ([]*db.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (*db.Order, error)
}

// Handlers provides the HTTP handlers for the storefront JSON API.
type Handlers struct {
	config          *config.Config
	db              pinger
	checkoutService checkoutCreator
	paymentService  paymentVerifier
	catalogService  catalogManager
	adminService    orderAdministrator
	sessionManager  *session.Manager
	logger          *slog.Logger
}

type Dependencies struct {
	Config          *config.Config
	DB              pinger
	CheckoutService checkoutCreator
	PaymentService  paymentVerifier
	CatalogService  catalogManager
	AdminService    orderAdministrator
	SessionManager  *session.Manager
	Logger          *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.PaymentService == nil {
		return nil, fmt.Errorf("handlers dependencies: paymentService is required")
	}
	if deps.CatalogService == nil {
		return nil, fmt.Errorf("handlers dependencies: catalogService is required")
	}
	if deps.AdminService == nil {
		return nil, fmt.Errorf("handlers dependencies: adminService is required")
	}
	if deps.SessionManager == nil {
		return nil, fmt.Errorf("handlers dependencies: sessionManager is required")
	}

	return &Handlers{
		config:          deps.Config,
		db:              deps.DB,
		checkoutService: deps.CheckoutService,
		paymentService:  deps.PaymentService,
		catalogService:  deps.CatalogService,
		adminService:    deps.AdminService,
		sessionManager:  deps.SessionManager,
		logger:          logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Database unhealthy")
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	return id, err == nil
}
