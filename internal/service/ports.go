package service

import (
	"context"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/publisher"
)

// OrderClient is the slice of the platform backend this package needs.
type OrderClient interface {
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (string, error)
	GetOrder(ctx context.Context, orderID string, identity domain.Identity) (*domain.Order, error)
}

type EventPublisher interface {
	PublishOrderSubmitted(ctx context.Context, event publisher.OrderSubmitted) error
}

// CartChangeFunc is told the new unit count after every cart change.
type CartChangeFunc func(sessionID string, count int)
