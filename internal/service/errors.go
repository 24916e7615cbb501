package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/repository"
)

var (
	ErrEmptyCart            = errors.New("cart is empty, nothing to checkout")
	ErrInvalidItem          = errors.New("invalid cart item")
	ErrItemNotFound         = errors.New("item not found in cart")
	ErrNoDraft              = errors.New("no checkout draft to pay for")
	ErrDraftOutdated        = errors.New("cart changed since checkout, please confirm your details again")
	ErrSubmissionInProgress = errors.New("an order submission is already in progress")
	ErrOrderNotRecorded     = errors.New("order was accepted but could not be recorded for this session")
	ErrNoRecentOrder        = errors.New("no recently submitted order")
	ErrOrderNotFound        = errors.New("order not found")
	ErrUnauthenticated      = errors.New("authentication required")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every missing or invalid checkout field, in form order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return "validation failed: " + strings.Join(names, ", ")
}

// EvidenceError is a payment evidence problem found before any network call.
type EvidenceError struct {
	Field  string
	Reason string
}

func (e *EvidenceError) Error() string {
	return fmt.Sprintf("invalid payment evidence (%s): %s", e.Field, e.Reason)
}

// SubmissionError is a failed order submission. Message is safe to show to
// the shopper; Err keeps the cause for logs.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err == nil {
		return "order submission failed: " + e.Message
	}
	return fmt.Sprintf("order submission failed: %s: %v", e.Message, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed write of session state. Nothing was
// changed when it is returned.
type PersistenceError struct {
	Slot repository.Slot
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Slot, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
