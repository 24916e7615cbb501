package service

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var fieldLabels = map[string]string{
	"name":     "Full name",
	"email":    "Email",
	"phone":    "Phone",
	"street":   "Street address",
	"city":     "City",
	"postcode": "Postcode",
}

// CheckoutForm is what the checkout page renders: the pre-filled fields and
// the cart summary they will be applied to. CartChanged means the cart was
// edited after the draft was made, so the form has to be submitted again.
type CheckoutForm struct {
	Customer    domain.CustomerDetails `json:"customer"`
	Items       []domain.CartItem      `json:"items"`
	Pricing     domain.PricingSnapshot `json:"pricing"`
	DraftID     string                 `json:"draftId,omitempty"`
	CartChanged bool                   `json:"cartChanged,omitempty"`
}

type CheckoutService struct {
	store    *SessionStore
	policy   pricing.Policy
	country  string
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

func NewCheckoutService(store *SessionStore, policy pricing.Policy, country string, log *slog.Logger) *CheckoutService {
	if log == nil {
		log = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &CheckoutService{
		store:    store,
		policy:   policy,
		country:  country,
		validate: v,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Enter prepares the checkout form. An existing draft's fields win over the
// identity, which only ever pre-fills name and email.
func (s *CheckoutService) Enter(ctx context.Context, sessionID string, identity domain.Identity) (*CheckoutForm, error) {
	cart := s.store.loadCart(ctx, sessionID)
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	form := &CheckoutForm{
		Customer: domain.CustomerDetails{Country: s.country},
		Items:    cart.Items,
		Pricing:  s.policy.ComputeTotals(cart.Items),
	}
	if draft, ok := s.store.loadDraft(ctx, sessionID); ok {
		form.Customer = draft.Customer
		form.Customer.Country = s.country
		form.DraftID = draft.ID
		form.CartChanged = !cart.SameItems(&draft.Cart)
		return form, nil
	}
	if identity.Authenticated() {
		form.Customer.Name = identity.Name
		form.Customer.Email = identity.Email
	}
	return form, nil
}

// Submit validates the form and freezes the current cart into a new draft,
// replacing any earlier draft.
func (s *CheckoutService) Submit(ctx context.Context, sessionID string, details domain.CustomerDetails) (*domain.CheckoutDraft, error) {
	unlock := s.store.lock(sessionID)
	defer unlock()

	if s.store.Submitting(sessionID) {
		return nil, ErrSubmissionInProgress
	}

	cart := s.store.loadCart(ctx, sessionID)
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	details = trimDetails(details)
	details.Country = s.country
	if err := s.validateDetails(details); err != nil {
		return nil, err
	}

	snapshot := cart.Clone()
	draft := &domain.CheckoutDraft{
		ID:        s.newID(),
		Customer:  details,
		Cart:      snapshot,
		Pricing:   s.policy.ComputeTotals(snapshot.Items),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.writeSlot(ctx, sessionID, repository.SlotDraft, draft); err != nil {
		s.log.ErrorContext(ctx, "failed to persist checkout draft", slog.String("session_id", sessionID), slog.Any("error", err))
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout draft created",
		slog.String("session_id", sessionID),
		slog.String("draft_id", draft.ID),
		slog.Int("item_count", snapshot.Count()))
	return draft, nil
}

// Draft returns the session's checkout draft, if one is usable.
func (s *CheckoutService) Draft(ctx context.Context, sessionID string) (*domain.CheckoutDraft, error) {
	draft, ok := s.store.loadDraft(ctx, sessionID)
	if !ok {
		return nil, ErrNoDraft
	}
	return draft, nil
}

func (s *CheckoutService) validateDetails(details domain.CustomerDetails) error {
	err := s.validate.Struct(details)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		label := fieldLabels[fe.Field()]
		if label == "" {
			label = fe.Field()
		}
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: label + " is required"})
	}
	return out
}

func trimDetails(d domain.CustomerDetails) domain.CustomerDetails {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Street = strings.TrimSpace(d.Street)
	d.City = strings.TrimSpace(d.City)
	d.Postcode = strings.TrimSpace(d.Postcode)
	d.Notes = strings.TrimSpace(d.Notes)
	return d
}
