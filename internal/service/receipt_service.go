package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"golang.org/x/sync/singleflight"
)

type ReceiptService struct {
	store  *SessionStore
	orders OrderClient
	log    *slog.Logger
	sfg    singleflight.Group
}

func NewReceiptService(store *SessionStore, orders OrderClient, log *slog.Logger) *ReceiptService {
	if log == nil {
		log = slog.Default()
	}
	return &ReceiptService{store: store, orders: orders, log: log}
}

// Load returns the order the session most recently placed. The recorded id
// is consumed once the order has been shown, so a second Load reports
// ErrNoRecentOrder.
func (s *ReceiptService) Load(ctx context.Context, sessionID string, identity domain.Identity) (*domain.Order, error) {
	last, ok := s.store.loadLastOrder(ctx, sessionID)
	if !ok {
		return nil, ErrNoRecentOrder
	}

	order, err := s.fetch(ctx, last.OrderID, identity)
	if err != nil {
		return nil, err
	}

	if err := s.store.consumeLastOrder(ctx, sessionID); err != nil {
		s.log.WarnContext(ctx, "failed to consume last order",
			slog.String("session_id", sessionID),
			slog.String("order_id", last.OrderID),
			slog.Any("error", err))
	}
	return order, nil
}

// LoadByID looks an order up directly. Only authenticated shoppers may do
// this; the backend decides whether the order is theirs.
func (s *ReceiptService) LoadByID(ctx context.Context, orderID string, identity domain.Identity) (*domain.Order, error) {
	if !identity.Authenticated() {
		return nil, ErrUnauthenticated
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrOrderNotFound
	}
	return s.fetch(ctx, orderID, identity)
}

func (s *ReceiptService) fetch(ctx context.Context, orderID string, identity domain.Identity) (*domain.Order, error) {
	// Callers with different credentials must not share a result.
	key := orderID + "|" + identity.Token
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		return s.orders.GetOrder(ctx, orderID, identity)
	})
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrOrderNotFound):
			return nil, ErrOrderNotFound
		case errors.Is(err, backend.ErrUnauthorized):
			return nil, ErrUnauthenticated
		default:
			s.log.ErrorContext(ctx, "failed to load order", slog.String("order_id", orderID), slog.Any("error", err))
			return nil, fmt.Errorf("load order %s: %w", orderID, err)
		}
	}
	return v.(*domain.Order), nil
}
