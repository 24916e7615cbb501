package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/stretchr/testify/require"
)

type OrdersMock struct {
	m       sync.Mutex
	orderID string
	err     error
	order   *domain.Order
	getErr  error
	created []backend.CreateOrderRequest
}

func (o *OrdersMock) CreateOrder(_ context.Context, req backend.CreateOrderRequest) (string, error) {
	o.m.Lock()
	defer o.m.Unlock()
	o.created = append(o.created, req)
	if o.err != nil {
		return "", o.err
	}
	return o.orderID, nil
}

func (o *OrdersMock) GetOrder(_ context.Context, orderID string, _ domain.Identity) (*domain.Order, error) {
	o.m.Lock()
	defer o.m.Unlock()
	if o.getErr != nil {
		return nil, o.getErr
	}
	if o.order == nil {
		return nil, backend.ErrOrderNotFound
	}
	order := *o.order
	order.ID = orderID
	return &order, nil
}

func (o *OrdersMock) requests() []backend.CreateOrderRequest {
	o.m.Lock()
	defer o.m.Unlock()
	return append([]backend.CreateOrderRequest(nil), o.created...)
}

func newTestRouter(t *testing.T, orders *OrdersMock) http.Handler {
	t.Helper()
	log := logger.Nop()
	repo := repository.NewMemoryRepository()
	t.Cleanup(func() { _ = repo.Close() })

	store := service.NewSessionStore(repo, log)
	policy := pricing.DefaultPolicy()
	cart := service.NewCartService(store, policy, log)
	checkout := service.NewCheckoutService(store, policy, "UK", log)
	payment := service.NewPaymentService(store, orders, publisher.Nop{}, 5*time.Second, log)
	receipt := service.NewReceiptService(store, orders, log)
	flow := service.NewFlowService(store)

	return NewRouter(Handlers{
		Cart:     NewCartHandler(cart, 5*time.Second, log),
		Checkout: NewCheckoutHandler(checkout, flow, 5*time.Second, log),
		Payment:  NewPaymentHandler(payment, log),
		Receipt:  NewReceiptHandler(receipt, 5*time.Second, log),
	}, RouterOptions{
		Session:        SessionOptions{CookieName: "sid", TTL: time.Hour},
		RequestTimeout: 5 * time.Second,
	})
}

// shopper keeps the session cookie between requests like a browser would.
type shopper struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
	token   string
}

func newShopper(t *testing.T, handler http.Handler) *shopper {
	return &shopper{t: t, handler: handler}
}

func (s *shopper) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			s.cookie = c
		}
	}
	return rec
}

func (s *shopper) doJSON(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(raw)
	}
	return s.do(method, path, r, "application/json")
}

func (s *shopper) addItem(id, price string, quantity int) {
	s.t.Helper()
	rec := s.doJSON(http.MethodPost, "/api/v1/cart/items", map[string]any{
		"id": id, "name": "Product " + id, "unitPrice": price, "quantity": quantity,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *shopper) submitCheckout() {
	s.t.Helper()
	rec := s.doJSON(http.MethodPost, "/api/v1/checkout", validCheckout())
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func validCheckout() CheckoutRequestDTO {
	return CheckoutRequestDTO{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Phone:    "07700 900123",
		Street:   "12 Analytical Row",
		City:     "London",
		Postcode: "N1 9GU",
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(strings.NewReader(rec.Body.String())).Decode(&v), rec.Body.String())
	return v
}

func doWithHeaders(t *testing.T, handler http.Handler, s *shopper, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}
