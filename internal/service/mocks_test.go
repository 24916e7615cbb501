package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

var errStorage = errors.New("storage offline")

// flakyRepository wraps the memory repository and fails on demand.
type flakyRepository struct {
	*repository.MemoryRepository

	m        sync.Mutex
	getErr   error
	putErr   error
	applyErr error
}

func newFlakyRepository() *flakyRepository {
	return &flakyRepository{MemoryRepository: repository.NewMemoryRepository()}
}

func (r *flakyRepository) fail(get, put, apply error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.getErr, r.putErr, r.applyErr = get, put, apply
}

func (r *flakyRepository) Get(ctx context.Context, sessionID string, slot repository.Slot) ([]byte, error) {
	r.m.Lock()
	err := r.getErr
	r.m.Unlock()
	if err != nil {
		return nil, err
	}
	return r.MemoryRepository.Get(ctx, sessionID, slot)
}

func (r *flakyRepository) Put(ctx context.Context, sessionID string, slot repository.Slot, data []byte) error {
	r.m.Lock()
	err := r.putErr
	r.m.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryRepository.Put(ctx, sessionID, slot, data)
}

func (r *flakyRepository) Apply(ctx context.Context, sessionID string, commit repository.Commit) error {
	r.m.Lock()
	err := r.applyErr
	r.m.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryRepository.Apply(ctx, sessionID, commit)
}

// gatedRepository parks the next write to one slot until released.
type gatedRepository struct {
	*repository.MemoryRepository

	m       sync.Mutex
	slot    repository.Slot
	reached chan struct{}
	release chan struct{}
}

func newGatedRepository() *gatedRepository {
	return &gatedRepository{MemoryRepository: repository.NewMemoryRepository()}
}

// hold arms the gate for the next Put to slot.
func (r *gatedRepository) hold(slot repository.Slot) {
	r.m.Lock()
	defer r.m.Unlock()
	r.slot = slot
	r.reached = make(chan struct{})
	r.release = make(chan struct{})
}

func (r *gatedRepository) Put(ctx context.Context, sessionID string, slot repository.Slot, data []byte) error {
	r.m.Lock()
	reached, release := r.reached, r.release
	armed := reached != nil && slot == r.slot
	if armed {
		r.reached, r.release = nil, nil
	}
	r.m.Unlock()

	if armed {
		close(reached)
		<-release
	}
	return r.MemoryRepository.Put(ctx, sessionID, slot, data)
}

type mockOrderClient struct {
	m       sync.Mutex
	created []backend.CreateOrderRequest
	fetched []string
	orderID string
	order   *domain.Order
	err     error
	getErr  error
	block   chan struct{}
	entered chan struct{}
}

func (c *mockOrderClient) CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (string, error) {
	c.m.Lock()
	c.created = append(c.created, req)
	block, entered := c.block, c.entered
	c.m.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	c.m.Lock()
	defer c.m.Unlock()
	if c.err != nil {
		return "", c.err
	}
	return c.orderID, nil
}

func (c *mockOrderClient) GetOrder(_ context.Context, orderID string, identity domain.Identity) (*domain.Order, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.fetched = append(c.fetched, orderID+"|"+identity.Token)
	if c.getErr != nil {
		return nil, c.getErr
	}
	if c.order == nil {
		return nil, backend.ErrOrderNotFound
	}
	o := *c.order
	o.ID = orderID
	return &o, nil
}

func (c *mockOrderClient) createCalls() []backend.CreateOrderRequest {
	c.m.Lock()
	defer c.m.Unlock()
	return append([]backend.CreateOrderRequest(nil), c.created...)
}

func (c *mockOrderClient) fetchCalls() []string {
	c.m.Lock()
	defer c.m.Unlock()
	return append([]string(nil), c.fetched...)
}

type mockPublisher struct {
	m      sync.Mutex
	events []publisher.OrderSubmitted
	err    error
}

func (p *mockPublisher) PublishOrderSubmitted(_ context.Context, event publisher.OrderSubmitted) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *mockPublisher) published() []publisher.OrderSubmitted {
	p.m.Lock()
	defer p.m.Unlock()
	return append([]publisher.OrderSubmitted(nil), p.events...)
}

// fixture wires every service over one repository.
type fixture struct {
	repo     *flakyRepository
	store    *SessionStore
	cart     *CartService
	checkout *CheckoutService
	payment  *PaymentService
	receipt  *ReceiptService
	flow     *FlowService
	orders   *mockOrderClient
	events   *mockPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Nop()
	repo := newFlakyRepository()
	store := NewSessionStore(repo, log)
	orders := &mockOrderClient{orderID: "ord-1", order: &domain.Order{Status: domain.OrderStatusPending}}
	events := &mockPublisher{}
	f := &fixture{
		repo:     repo,
		store:    store,
		cart:     NewCartService(store, pricing.DefaultPolicy(), log),
		checkout: NewCheckoutService(store, pricing.DefaultPolicy(), "UK", log),
		payment:  NewPaymentService(store, orders, events, 0, log),
		receipt:  NewReceiptService(store, orders, log),
		flow:     NewFlowService(store),
		orders:   orders,
		events:   events,
	}
	t.Cleanup(func() { _ = repo.Close() })
	return f
}

func product(id, price string) domain.CartItem {
	return domain.CartItem{ID: id, Name: "Product " + id, UnitPrice: decimal.RequireFromString(price)}
}

func validDetails() domain.CustomerDetails {
	return domain.CustomerDetails{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Phone:    "07700 900123",
		Street:   "12 Analytical Row",
		City:     "London",
		Postcode: "N1 9GU",
	}
}

// withDraft puts items in the cart and submits the checkout form.
func (f *fixture) withDraft(t *testing.T, sessionID string) *domain.CheckoutDraft {
	t.Helper()
	ctx := context.Background()
	if _, err := f.cart.AddItem(ctx, sessionID, product("p1", "20.00"), 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	draft, err := f.checkout.Submit(ctx, sessionID, validDetails())
	if err != nil {
		t.Fatalf("submit checkout: %v", err)
	}
	return draft
}
