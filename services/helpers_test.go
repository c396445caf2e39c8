package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Templasan/MarketPlacer/cache"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/repository"
	"github.com/Templasan/MarketPlacer/repository/memory"
	"github.com/Templasan/MarketPlacer/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stepClock advances one second on every read so ordering by time is deterministic.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type mockPublisher struct {
	mu     sync.Mutex
	events []models.OrderStatusEvent
	err    error
}

func (m *mockPublisher) PublishOrderEvent(_ context.Context, event models.OrderStatusEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *mockPublisher) published() []models.OrderStatusEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.OrderStatusEvent(nil), m.events...)
}

type mockPresigner struct {
	key         string
	contentType string
}

func (m *mockPresigner) PresignPut(_ context.Context, key, contentType string) (string, map[string]string, time.Duration, error) {
	m.key = key
	m.contentType = contentType
	return "https://uploads.example.com/" + key, map[string]string{"Content-Type": contentType}, 15 * time.Minute, nil
}

type env struct {
	store     *memory.Store
	clock     *stepClock
	publisher *mockPublisher
	presigner *mockPresigner
	homeCache *cache.MemoryCache
	locks     *services.CartLocks

	catalog  services.CatalogService
	carts    services.CartService
	checkout services.CheckoutService
	orders   services.OrderService
	home     services.HomeService
}

// storeHooks lets a test observe stock adjustments and inject repository failures.
type storeHooks struct {
	mu        sync.Mutex
	adjusted  []uuid.UUID
	adjustErr error
	auditErr  error
}

func (h *storeHooks) adjustments() []uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]uuid.UUID(nil), h.adjusted...)
}

func (h *storeHooks) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.adjusted = nil
}

type hookedStore struct {
	repository.Store
	hooks *storeHooks
}

func (s hookedStore) Products() repository.ProductRepository {
	return hookedProducts{ProductRepository: s.Store.Products(), hooks: s.hooks}
}

func (s hookedStore) Audits() repository.AuditRepository {
	if s.hooks.auditErr != nil {
		return failingAudits{err: s.hooks.auditErr}
	}
	return s.Store.Audits()
}

func (s hookedStore) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTransaction(ctx, func(tx repository.Store) error {
		return fn(hookedStore{Store: tx, hooks: s.hooks})
	})
}

type hookedProducts struct {
	repository.ProductRepository
	hooks *storeHooks
}

func (p hookedProducts) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	p.hooks.mu.Lock()
	p.hooks.adjusted = append(p.hooks.adjusted, id)
	err := p.hooks.adjustErr
	p.hooks.mu.Unlock()
	if err != nil {
		return err
	}
	return p.ProductRepository.AdjustStock(ctx, id, delta)
}

type failingAudits struct{ err error }

func (f failingAudits) Append(context.Context, *models.OrderStatusAudit) error { return f.err }

func (f failingAudits) ListByOrder(context.Context, uuid.UUID) ([]models.OrderStatusAudit, error) {
	return nil, nil
}

func newEnv() *env { return newHookedEnv(nil) }

// newHookedEnv builds the services on the memory store, routed through hooks when non-nil.
func newHookedEnv(hooks *storeHooks) *env {
	e := &env{
		store:     memory.NewStore(),
		clock:     newStepClock(),
		publisher: &mockPublisher{},
		presigner: &mockPresigner{},
		homeCache: cache.NewMemoryCache(),
		locks:     services.NewCartLocks(),
	}
	var store repository.Store = e.store
	if hooks != nil {
		store = hookedStore{Store: e.store, hooks: hooks}
	}
	log := zap.NewNop()
	e.catalog = services.NewCatalogService(store, e.homeCache, e.presigner, e.clock, log)
	e.carts = services.NewCartService(store, e.locks, e.clock, log)
	e.checkout = services.NewCheckoutService(store, e.locks, e.publisher, nil, e.clock, log)
	e.orders = services.NewOrderService(store, e.publisher, nil, e.clock, log)
	e.home = services.NewHomeService(store, e.homeCache, nil, e.clock, log)
	return e
}

func buyer() models.Caller  { return models.Caller{ID: uuid.New(), Role: models.RoleComum} }
func seller() models.Caller { return models.Caller{ID: uuid.New(), Role: models.RoleVendedor} }
func admin() models.Caller  { return models.Caller{ID: uuid.New(), Role: models.RoleAdmin} }

func (e *env) product(t *testing.T, owner models.Caller, name, price string, stock int) *models.Product {
	t.Helper()
	p, err := e.catalog.Create(context.Background(), owner, &models.CreateProductRequest{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "Gamer",
		Stock:    stock,
	})
	require.NoError(t, err)
	return p
}

func (e *env) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := e.catalog.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}
