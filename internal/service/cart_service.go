package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

// CartView is a cart together with its current totals.
type CartView struct {
	Items   []domain.CartItem      `json:"items"`
	Count   int                    `json:"count"`
	Pricing domain.PricingSnapshot `json:"pricing"`
}

type CartService struct {
	store  *SessionStore
	policy pricing.Policy
	log    *slog.Logger
}

func NewCartService(store *SessionStore, policy pricing.Policy, log *slog.Logger) *CartService {
	if log == nil {
		log = slog.Default()
	}
	return &CartService{store: store, policy: policy, log: log}
}

// OnChange registers fn to be called with the unit count after every
// successful cart change, including the clear that follows an order.
func (s *CartService) OnChange(fn CartChangeFunc) {
	s.store.OnCartChange(fn)
}

// Load returns the session's cart. It never fails: unreadable state is shown
// as an empty cart.
func (s *CartService) Load(ctx context.Context, sessionID string) CartView {
	cart := s.store.loadCart(ctx, sessionID)
	return s.view(cart)
}

func (s *CartService) AddItem(ctx context.Context, sessionID string, item domain.CartItem, quantity int) (CartView, error) {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrInvalidItem)
	}
	if item.UnitPrice.IsNegative() {
		return CartView{}, fmt.Errorf("%w: unit price must not be negative", ErrInvalidItem)
	}
	if quantity < 1 {
		return CartView{}, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidItem)
	}

	return s.mutate(ctx, sessionID, func(cart *domain.Cart) (bool, error) {
		if cart.Quantity(item.ID)+quantity > domain.MaxLineQuantity {
			return false, fmt.Errorf("%w: at most %d of a product per order", ErrInvalidItem, domain.MaxLineQuantity)
		}
		cart.Add(item, quantity)
		return true, nil
	})
}

// UpdateQuantity sets the quantity of a line; quantity <= 0 removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (CartView, error) {
	if quantity > domain.MaxLineQuantity {
		return CartView{}, fmt.Errorf("%w: at most %d of a product per order", ErrInvalidItem, domain.MaxLineQuantity)
	}
	return s.mutate(ctx, sessionID, func(cart *domain.Cart) (bool, error) {
		if !cart.SetQuantity(productID, quantity) {
			return false, ErrItemNotFound
		}
		return true, nil
	})
}

// RemoveItem removes a line. Removing an absent product is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (CartView, error) {
	return s.mutate(ctx, sessionID, func(cart *domain.Cart) (bool, error) {
		return cart.Remove(productID), nil
	})
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	_, err := s.mutate(ctx, sessionID, func(cart *domain.Cart) (bool, error) {
		if cart.IsEmpty() {
			return false, nil
		}
		cart.Items = nil
		return true, nil
	})
	return err
}

// mutate runs fn against the stored cart under the session lock and persists
// the result if fn reports a change.
func (s *CartService) mutate(ctx context.Context, sessionID string, fn func(*domain.Cart) (bool, error)) (CartView, error) {
	unlock := s.store.lock(sessionID)
	defer unlock()

	if s.store.Submitting(sessionID) {
		return CartView{}, ErrSubmissionInProgress
	}

	cart, err := s.store.readCart(ctx, sessionID)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to read cart", slog.String("session_id", sessionID), slog.Any("error", err))
		return CartView{}, err
	}

	changed, err := fn(&cart)
	if err != nil {
		return CartView{}, err
	}
	if !changed {
		return s.view(cart), nil
	}

	if err := s.store.writeSlot(ctx, sessionID, repository.SlotCart, cart); err != nil {
		s.log.ErrorContext(ctx, "failed to persist cart", slog.String("session_id", sessionID), slog.Any("error", err))
		return CartView{}, err
	}

	s.store.notifyCartChange(sessionID, cart.Count())
	return s.view(cart), nil
}

func (s *CartService) view(cart domain.Cart) CartView {
	items := cart.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return CartView{
		Items:   items,
		Count:   cart.Count(),
		Pricing: s.policy.ComputeTotals(items),
	}
}
