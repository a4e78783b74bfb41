package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storefrontapp/storefront/internal/db"
	"github.com/storefrontapp/storefront/internal/events"
	"github.com/storefrontapp/storefront/internal/payments"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLedger struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*db.Order

	createErr error
	// beforeTransition runs inside payment transitions before the compare step.
	beforeTransition func()
	succeededCalls   int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{orders: map[uuid.UUID]*db.Order{}}
}

func cloneOrder(order *db.Order) *db.Order {
	copied := *order
	copied.Items = append([]db.OrderItem(nil), order.Items...)
	return &copied
}

func (l *fakeLedger) put(order *db.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders[order.ID] = cloneOrder(order)
}

func (l *fakeLedger) get(id uuid.UUID) *db.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[id]
	if !ok {
		return nil
	}
	return cloneOrder(order)
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.orders)
}

func (l *fakeLedger) Create(_ context.Context, order *db.Order) error {
	if l.createErr != nil {
		return l.createErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.orders[order.ID]; exists {
		return db.ErrDuplicate
	}
	order.UpdatedAt = order.CreatedAt
	l.orders[order.ID] = cloneOrder(order)
	return nil
}

func (l *fakeLedger) GetByID(_ context.Context, orderID uuid.UUID) (*db.Order, error) {
	order := l.get(orderID)
	if order == nil {
		return nil, db.ErrNotFound
	}
	return order, nil
}

func (l *fakeLedger) ListRecent(_ context.Context, limit int) ([]*db.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	orders := make([]*db.Order, 0, len(l.orders))
	for _, order := range l.orders {
		orders = append(orders, cloneOrder(order))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (l *fakeLedger) AttachPaymentSession(_ context.Context, orderID uuid.UUID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok {
		return db.ErrNotFound
	}
	if order.PaymentSessionToken != "" || order.PaymentStatus != db.PaymentPending {
		return db.ErrInvalidStatusTransition
	}
	order.PaymentSessionToken = token
	return nil
}

func (l *fakeLedger) MarkPaymentSucceeded(_ context.Context, orderID uuid.UUID, gatewayStatus string) (*db.Order, error) {
	if l.beforeTransition != nil {
		l.beforeTransition()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok || order.PaymentStatus != db.PaymentPending {
		return nil, fmt.Errorf("%w: expected payment Pending", db.ErrInvalidStatusTransition)
	}
	l.succeededCalls++
	order.PaymentStatus = db.PaymentSuccess
	if order.Status == db.StatusPending {
		order.Status = db.StatusProcessing
	}
	order.GatewayPaymentStatus = gatewayStatus
	order.PaidAt = time.Now()
	return cloneOrder(order), nil
}

func (l *fakeLedger) MarkPaymentFailed(_ context.Context, orderID uuid.UUID, gatewayStatus, reason string) (*db.Order, error) {
	if l.beforeTransition != nil {
		l.beforeTransition()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok || order.PaymentStatus != db.PaymentPending {
		return nil, fmt.Errorf("%w: expected payment Pending", db.ErrInvalidStatusTransition)
	}
	order.PaymentStatus = db.PaymentFailed
	order.GatewayPaymentStatus = gatewayStatus
	order.FailureReason = reason
	return cloneOrder(order), nil
}

func (l *fakeLedger) AdvanceStatus(_ context.Context, orderID uuid.UUID, from, to db.OrderStatus) (*db.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok || order.Status != from {
		return nil, db.ErrInvalidStatusTransition
	}
	order.Status = to
	return cloneOrder(order), nil
}

type fakeGateway struct {
	mu sync.Mutex

	session    *payments.Session
	sessionErr error
	payments   []payments.Payment
	listErr    error

	sessionRequests []payments.SessionRequest
	listCalls       int
	lookups         []payments.PaymentLookup
}

func (g *fakeGateway) Name() string {
	return "fake"
}

func (g *fakeGateway) CreateSession(_ context.Context, req payments.SessionRequest) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessionRequests = append(g.sessionRequests, req)
	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	if g.session != nil {
		return g.session, nil
	}
	return &payments.Session{ExternalOrderID: req.ExternalOrderID, Token: "session_" + req.ExternalOrderID}, nil
}

func (g *fakeGateway) recordedLookups() []payments.PaymentLookup {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payments.PaymentLookup(nil), g.lookups...)
}

func (g *fakeGateway) ListPayments(_ context.Context, lookup payments.PaymentLookup) ([]payments.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	g.lookups = append(g.lookups, lookup)
	if g.listErr != nil {
		return nil, g.listErr
	}
	return append([]payments.Payment(nil), g.payments...), nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listCalls
}

type recordingEmailer struct {
	mu           sync.Mutex
	confirmation []uuid.UUID
	shipped      []uuid.UUID
	delivered    []uuid.UUID
	err          error
}

func (e *recordingEmailer) SendOrderConfirmation(_ context.Context, order *db.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.confirmation = append(e.confirmation, order.ID)
	return e.err
}

func (e *recordingEmailer) SendOrderShipped(_ context.Context, order *db.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shipped = append(e.shipped, order.ID)
	return e.err
}

func (e *recordingEmailer) SendOrderDelivered(_ context.Context, order *db.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delivered = append(e.delivered, order.ID)
	return e.err
}

func (e *recordingEmailer) confirmations() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.confirmation)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]events.Type, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

type fakeProductStore struct {
	mu         sync.Mutex
	products   map[uuid.UUID]*db.Product
	categories []*db.Category
	listCalls  int
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{products: map[uuid.UUID]*db.Product{}}
}

func (s *fakeProductStore) List(context.Context) ([]*db.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	products := make([]*db.Product, 0, len(s.products))
	for _, product := range s.products {
		copied := *product
		products = append(products, &copied)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (s *fakeProductStore) GetByID(_ context.Context, productID uuid.UUID) (*db.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[productID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *product
	return &copied, nil
}

func (s *fakeProductStore) Create(_ context.Context, product *db.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	product.ID = uuid.New()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	copied := *product
	s.products[product.ID] = &copied
	return nil
}

func (s *fakeProductStore) Update(_ context.Context, product *db.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[product.ID]; !ok {
		return db.ErrNotFound
	}
	copied := *product
	s.products[product.ID] = &copied
	return nil
}

func (s *fakeProductStore) Delete(_ context.Context, productID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		return db.ErrNotFound
	}
	delete(s.products, productID)
	return nil
}

func (s *fakeProductStore) ReplaceAll(_ context.Context, categories []*db.Category, products []*db.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = map[uuid.UUID]*db.Product{}
	for _, product := range products {
		product.ID = uuid.New()
		copied := *product
		s.products[product.ID] = &copied
	}
	for _, category := range categories {
		category.ID = uuid.New()
	}
	s.categories = categories
	return nil
}

type fakeCategoryStore struct {
	mu         sync.Mutex
	categories map[uuid.UUID]*db.Category
}

func newFakeCategoryStore() *fakeCategoryStore {
	return &fakeCategoryStore{categories: map[uuid.UUID]*db.Category{}}
}

func (s *fakeCategoryStore) List(context.Context) ([]*db.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	categories := make([]*db.Category, 0, len(s.categories))
	for _, category := range s.categories {
		copied := *category
		categories = append(categories, &copied)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (s *fakeCategoryStore) GetByID(_ context.Context, categoryID uuid.UUID) (*db.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	category, ok := s.categories[categoryID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *category
	return &copied, nil
}

func (s *fakeCategoryStore) Create(_ context.Context, category *db.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Name == category.Name || existing.Slug == category.Slug {
			return db.ErrDuplicate
		}
	}
	category.ID = uuid.New()
	copied := *category
	s.categories[category.ID] = &copied
	return nil
}

func (s *fakeCategoryStore) Update(_ context.Context, category *db.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[category.ID]; !ok {
		return db.ErrNotFound
	}
	for id, existing := range s.categories {
		if id != category.ID && (existing.Name == category.Name || existing.Slug == category.Slug) {
			return db.ErrDuplicate
		}
	}
	copied := *category
	s.categories[category.ID] = &copied
	return nil
}

func (s *fakeCategoryStore) Delete(_ context.Context, categoryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[categoryID]; !ok {
		return db.ErrNotFound
	}
	delete(s.categories, categoryID)
	return nil
}

var errBoom = errors.New("boom")
