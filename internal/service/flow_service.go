package service

import (
	"context"

	"github.com/fjod/go_cart/storefront/domain"
)

// FlowService reports where a session is in the checkout flow. The step is
// derived from stored state every time and never stored itself.
type FlowService struct {
	store *SessionStore
}

func NewFlowService(store *SessionStore) *FlowService {
	return &FlowService{store: store}
}

func (s *FlowService) Step(ctx context.Context, sessionID string) domain.CheckoutStep {
	if s.store.Submitting(sessionID) {
		return domain.StepPaymentSubmitted
	}
	if _, ok := s.store.loadDraft(ctx, sessionID); ok {
		return domain.StepCheckoutDraft
	}
	cart := s.store.loadCart(ctx, sessionID)
	if !cart.IsEmpty() {
		return domain.StepCartHasItems
	}
	if _, ok := s.store.loadLastOrder(ctx, sessionID); ok {
		return domain.StepOrderConfirmed
	}
	return domain.StepEmptyCart
}

// DraftOutdated reports whether the session has a draft whose frozen cart
// differs from the live one.
func (s *FlowService) DraftOutdated(ctx context.Context, sessionID string) bool {
	draft, ok := s.store.loadDraft(ctx, sessionID)
	if !ok {
		return false
	}
	cart := s.store.loadCart(ctx, sessionID)
	return !cart.SameItems(&draft.Cart)
}
