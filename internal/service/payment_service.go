package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/gabriel-vasile/mimetype"
)

const (
	FieldPaymentProof      = "paymentProof"
	FieldTransactionNumber = "transactionNumber"
	FieldPaymentMethod     = "paymentMethod"
)

type PaymentService struct {
	store   *SessionStore
	orders  OrderClient
	events  EventPublisher
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time
}

func NewPaymentService(store *SessionStore, orders OrderClient, events EventPublisher, timeout time.Duration, log *slog.Logger) *PaymentService {
	if log == nil {
		log = slog.Default()
	}
	if events == nil {
		events = publisher.Nop{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PaymentService{
		store:   store,
		orders:  orders,
		events:  events,
		timeout: timeout,
		log:     log,
		now:     time.Now,
	}
}

// ValidateEvidence checks payment evidence without touching the network. An
// upload with a generic or missing content type gets the sniffed one.
func ValidateEvidence(evidence domain.PaymentEvidence) (domain.PaymentEvidence, error) {
	switch evidence.Kind() {
	case domain.EvidenceUpload:
		up, _ := evidence.Upload()
		if len(up.Data) == 0 {
			return evidence, &EvidenceError{Field: FieldPaymentProof, Reason: "a payment proof image is required"}
		}
		if len(up.Data) > domain.MaxProofBytes {
			return evidence, &EvidenceError{Field: FieldPaymentProof, Reason: "payment proof must be 5 MB or smaller"}
		}
		declared := strings.ToLower(strings.TrimSpace(up.ContentType))
		if i := strings.IndexByte(declared, ';'); i >= 0 {
			declared = strings.TrimSpace(declared[:i])
		}
		if declared == "" || declared == "application/octet-stream" {
			declared = mimetype.Detect(up.Data).String()
			up.ContentType = declared
			evidence = domain.UploadEvidence(up)
		}
		if !strings.HasPrefix(declared, "image/") {
			return evidence, &EvidenceError{Field: FieldPaymentProof, Reason: "payment proof must be an image"}
		}
		return evidence, nil

	case domain.EvidenceReference:
		ref, _ := evidence.Reference()
		id := strings.TrimSpace(ref.TransactionID)
		if id == "" {
			return evidence, &EvidenceError{Field: FieldTransactionNumber, Reason: "a transaction number is required"}
		}
		return domain.ReferenceEvidence(id), nil

	default:
		return evidence, &EvidenceError{Field: FieldPaymentMethod, Reason: "upload a payment proof or enter a transaction number"}
	}
}

// Submit creates the order for the session's draft. On success the cart and
// draft are cleared and the order id is recorded for the receipt, all in one
// commit. On any failure the cart and draft are left as they were. A draft
// whose cart no longer matches the live one is refused with ErrDraftOutdated.
//
// The backend call does not follow ctx cancellation; it is bounded by the
// service timeout so an accepted order always completes its bookkeeping.
func (s *PaymentService) Submit(ctx context.Context, sessionID string, evidence domain.PaymentEvidence, identity domain.Identity) (string, error) {
	evidence, err := ValidateEvidence(evidence)
	if err != nil {
		return "", err
	}

	if !s.store.beginSubmission(sessionID) {
		return "", ErrSubmissionInProgress
	}
	defer s.store.endSubmission(sessionID)

	draft, ok := s.store.loadDraft(ctx, sessionID)
	if !ok {
		return "", ErrNoDraft
	}
	// Cart edits are refused from here on, so the comparison holds until the
	// commit that clears the cart.
	cart, err := s.store.readCart(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !cart.SameItems(&draft.Cart) {
		return "", ErrDraftOutdated
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	log := s.log.With(slog.String("session_id", sessionID), slog.String("draft_id", draft.ID))
	log.InfoContext(ctx, "submitting order", slog.String("evidence", evidence.Kind().String()))

	orderID, err := s.orders.CreateOrder(callCtx, backend.CreateOrderRequest{
		Draft:    *draft,
		Evidence: evidence,
		Identity: identity,
	})
	if err != nil {
		log.WarnContext(ctx, "order submission failed", slog.Any("error", err))
		return "", &SubmissionError{Message: submissionMessage(err), Err: err}
	}

	unlock := s.store.lock(sessionID)
	err = s.store.completeOrder(callCtx, sessionID, LastOrder{OrderID: orderID, PlacedAt: s.now().UTC()})
	unlock()
	if err != nil {
		log.ErrorContext(ctx, "order accepted but session not updated", slog.String("order_id", orderID), slog.Any("error", err))
		return "", fmt.Errorf("%w: order %s: %w", ErrOrderNotRecorded, orderID, err)
	}

	log.InfoContext(ctx, "order submitted", slog.String("order_id", orderID))
	s.store.notifyCartChange(sessionID, 0)

	event := publisher.NewOrderSubmitted(sessionID, orderID, *draft, evidence.Kind(), s.now().UTC())
	if err := s.events.PublishOrderSubmitted(callCtx, event); err != nil {
		log.WarnContext(ctx, "failed to publish order event", slog.String("order_id", orderID), slog.Any("error", err))
	}
	return orderID, nil
}

// submissionMessage picks the text shown to the shopper for a failed
// submission.
func submissionMessage(err error) string {
	var rejected *backend.RejectedError
	switch {
	case errors.As(err, &rejected) && rejected.Message != "":
		return rejected.Message
	case errors.Is(err, backend.ErrUnauthorized):
		return "Please sign in again to place your order."
	case errors.Is(err, backend.ErrUnavailable):
		return "We could not reach the order service. Please try again."
	default:
		return "Failed to create order. Please try again."
	}
}
