package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

// LastOrder is what the receipt step needs after a successful submission.
type LastOrder struct {
	OrderID  string    `json:"orderId"`
	PlacedAt time.Time `json:"placedAt"`
}

// SessionStore owns the per-session slots shared by all checkout services:
// it serializes mutations per session, tracks in-flight submissions and fans
// out cart change notifications.
type SessionStore struct {
	repo repository.SessionRepository
	log  *slog.Logger

	mu       sync.Mutex
	locks    map[string]*sessionLock
	inflight map[string]struct{}

	listenersMu sync.RWMutex
	listeners   []CartChangeFunc
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessionStore(repo repository.SessionRepository, log *slog.Logger) *SessionStore {
	if log == nil {
		log = slog.Default()
	}
	return &SessionStore{
		repo:     repo,
		log:      log,
		locks:    make(map[string]*sessionLock),
		inflight: make(map[string]struct{}),
	}
}

// lock blocks until the session is free and returns the unlock func.
func (s *SessionStore) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

// beginSubmission marks the session as having a submission in flight. It
// returns false if one already is. The flag is set under the session lock, so
// a mutation already holding it finishes first and every later one sees the
// flag once it gets the lock.
func (s *SessionStore) beginSubmission(sessionID string) bool {
	unlock := s.lock(sessionID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[sessionID]; busy {
		return false
	}
	s.inflight[sessionID] = struct{}{}
	return true
}

func (s *SessionStore) endSubmission(sessionID string) {
	s.mu.Lock()
	delete(s.inflight, sessionID)
	s.mu.Unlock()
}

// Submitting reports whether an order submission is in flight for the session.
func (s *SessionStore) Submitting(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inflight[sessionID]
	return busy
}

func (s *SessionStore) OnCartChange(fn CartChangeFunc) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

func (s *SessionStore) notifyCartChange(sessionID string, count int) {
	s.listenersMu.RLock()
	listeners := append([]CartChangeFunc(nil), s.listeners...)
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(sessionID, count)
	}
}

// readSlot decodes a slot into T. Missing and malformed values both report
// found=false with a nil error; only storage failures are returned.
func readSlot[T any](ctx context.Context, s *SessionStore, sessionID string, slot repository.Slot) (T, bool, error) {
	var v T
	raw, err := s.repo.Get(ctx, sessionID, slot)
	if errors.Is(err, repository.ErrSlotNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.WarnContext(ctx, "discarding malformed session slot",
			slog.String("session_id", sessionID),
			slog.String("slot", string(slot)),
			slog.Any("error", err))
		var zero T
		return zero, false, nil
	}
	return v, true, nil
}

func (s *SessionStore) writeSlot(ctx context.Context, sessionID string, slot repository.Slot, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &PersistenceError{Slot: slot, Err: err}
	}
	if err := s.repo.Put(ctx, sessionID, slot, raw); err != nil {
		return &PersistenceError{Slot: slot, Err: err}
	}
	return nil
}

// readCart returns the stored cart, or an empty one when nothing usable is
// stored. Storage failures are returned so mutations never overwrite a cart
// they could not read.
func (s *SessionStore) readCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	cart, _, err := readSlot[domain.Cart](ctx, s, sessionID, repository.SlotCart)
	if err != nil {
		return domain.Cart{}, &PersistenceError{Slot: repository.SlotCart, Err: err}
	}
	cart.Normalize()
	return cart, nil
}

// loadCart never fails; storage errors degrade to an empty cart.
func (s *SessionStore) loadCart(ctx context.Context, sessionID string) domain.Cart {
	cart, err := s.readCart(ctx, sessionID)
	if err != nil {
		s.log.WarnContext(ctx, "cart unavailable, showing empty cart",
			slog.String("session_id", sessionID),
			slog.Any("error", err))
		return domain.Cart{}
	}
	return cart
}

func (s *SessionStore) loadDraft(ctx context.Context, sessionID string) (*domain.CheckoutDraft, bool) {
	draft, ok, err := readSlot[domain.CheckoutDraft](ctx, s, sessionID, repository.SlotDraft)
	if err != nil {
		s.log.WarnContext(ctx, "checkout draft unavailable",
			slog.String("session_id", sessionID),
			slog.Any("error", err))
		return nil, false
	}
	if !ok || draft.ID == "" {
		return nil, false
	}
	return &draft, true
}

func (s *SessionStore) loadLastOrder(ctx context.Context, sessionID string) (*LastOrder, bool) {
	last, ok, err := readSlot[LastOrder](ctx, s, sessionID, repository.SlotLastOrder)
	if err != nil {
		s.log.WarnContext(ctx, "last order unavailable",
			slog.String("session_id", sessionID),
			slog.Any("error", err))
		return nil, false
	}
	if !ok || last.OrderID == "" {
		return nil, false
	}
	return &last, true
}

// completeOrder clears the cart and the draft and records the order in one
// commit.
func (s *SessionStore) completeOrder(ctx context.Context, sessionID string, last LastOrder) error {
	raw, err := json.Marshal(last)
	if err != nil {
		return &PersistenceError{Slot: repository.SlotLastOrder, Err: err}
	}
	commit := repository.Commit{
		Writes:  map[repository.Slot][]byte{repository.SlotLastOrder: raw},
		Deletes: []repository.Slot{repository.SlotCart, repository.SlotDraft},
	}
	if err := s.repo.Apply(ctx, sessionID, commit); err != nil {
		return &PersistenceError{Slot: repository.SlotLastOrder, Err: err}
	}
	return nil
}

func (s *SessionStore) consumeLastOrder(ctx context.Context, sessionID string) error {
	commit := repository.Commit{Deletes: []repository.Slot{repository.SlotLastOrder}}
	if err := s.repo.Apply(ctx, sessionID, commit); err != nil {
		return &PersistenceError{Slot: repository.SlotLastOrder, Err: err}
	}
	return nil
}
