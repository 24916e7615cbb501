package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/service"
)

type ErrorResponse struct {
	Error    string               `json:"error"`
	Code     string               `json:"code,omitempty"`
	Details  string               `json:"details,omitempty"`
	Fields   []service.FieldError `json:"fields,omitempty"`
	Redirect string               `json:"redirect,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondRedirect tells the page layer to navigate elsewhere.
func respondRedirect(w http.ResponseWriter, status int, location, code, message string) {
	w.Header().Set("Location", location)
	respondJSON(w, status, ErrorResponse{
		Error:    message,
		Code:     code,
		Redirect: location,
	})
}

// handleServiceError converts service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	ctx := r.Context()
	var (
		verr *service.ValidationError
		eerr *service.EvidenceError
		serr *service.SubmissionError
		perr *service.PersistenceError
	)

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "please fill in all required fields",
			Code:   "validation_failed",
			Fields: verr.Fields,
		})
	case errors.As(err, &eerr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  eerr.Reason,
			Code:   "invalid_payment_evidence",
			Fields: []service.FieldError{{Field: eerr.Field, Message: eerr.Reason}},
		})
	case errors.Is(err, service.ErrEmptyCart):
		respondRedirect(w, http.StatusConflict, "/cart", "empty_cart", err.Error())
	case errors.Is(err, service.ErrNoDraft):
		respondRedirect(w, http.StatusConflict, "/checkout", "no_checkout_draft", err.Error())
	case errors.Is(err, service.ErrDraftOutdated):
		respondRedirect(w, http.StatusConflict, "/checkout", "cart_changed", err.Error())
	case errors.Is(err, service.ErrNoRecentOrder):
		respondRedirect(w, http.StatusNotFound, "/", "no_recent_order", err.Error())
	case errors.Is(err, service.ErrInvalidItem):
		respondError(w, http.StatusBadRequest, "invalid_item", err.Error())
	case errors.Is(err, service.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrSubmissionInProgress):
		respondError(w, http.StatusConflict, "submission_in_progress", err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.As(err, &serr):
		respondSubmissionError(w, serr)
	case errors.Is(err, service.ErrOrderNotRecorded):
		log.ErrorContext(ctx, "order not recorded", slog.Any("error", err))
		respondRedirect(w, http.StatusInternalServerError, "/", "order_not_recorded",
			"your order was placed but we could not show the receipt, please check your email")
	case errors.As(err, &perr):
		log.ErrorContext(ctx, "session storage failure", slog.Any("error", err))
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "could not save your changes, please try again")
	case errors.Is(err, backend.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "order service is unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.ErrorContext(ctx, "unhandled error", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func respondSubmissionError(w http.ResponseWriter, err *service.SubmissionError) {
	var rejected *backend.RejectedError
	switch {
	case errors.As(err, &rejected):
		respondError(w, http.StatusUnprocessableEntity, "order_rejected", err.Message)
	case errors.Is(err, backend.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthenticated", err.Message)
	case errors.Is(err, backend.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Message)
	default:
		respondError(w, http.StatusBadGateway, "order_failed", err.Message)
	}
}
