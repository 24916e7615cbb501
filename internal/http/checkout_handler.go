package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
	flow     *service.FlowService
	timeout  time.Duration
	log      *slog.Logger
}

func NewCheckoutHandler(checkout *service.CheckoutService, flow *service.FlowService, timeout time.Duration, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		flow:     flow,
		timeout:  timeout,
		log:      log,
	}
}

type CheckoutRequestDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Notes    string `json:"notes"`
}

type CheckoutStateDTO struct {
	Step          domain.CheckoutStep `json:"step"`
	Terminal      bool                `json:"terminal"`
	DraftOutdated bool                `json:"draftOutdated,omitempty"`
}

// Enter returns the pre-filled checkout form, or a redirect to the cart when
// there is nothing to check out.
func (h *CheckoutHandler) Enter(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	form, err := h.checkout.Enter(ctx, sessionID, getIdentity(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, form)
}

func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	draft, err := h.checkout.Submit(ctx, sessionID, domain.CustomerDetails{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Street:   req.Street,
		City:     req.City,
		Postcode: req.Postcode,
		Notes:    req.Notes,
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	w.Header().Set("Location", "/payment")
	respondJSON(w, http.StatusCreated, draft)
}

func (h *CheckoutHandler) State(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	step := h.flow.Step(ctx, sessionID)
	state := CheckoutStateDTO{Step: step, Terminal: step.IsTerminal()}
	if step == domain.StepCheckoutDraft {
		state.DraftOutdated = h.flow.DraftOutdated(ctx, sessionID)
	}
	respondJSON(w, http.StatusOK, state)
}
