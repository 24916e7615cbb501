package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

type ReceiptHandler struct {
	receipt *service.ReceiptService
	timeout time.Duration
	log     *slog.Logger
}

func NewReceiptHandler(receipt *service.ReceiptService, timeout time.Duration, log *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		receipt: receipt,
		timeout: timeout,
		log:     log,
	}
}

// GetReceipt shows the order this session just placed, once.
func (h *ReceiptHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	order, err := h.receipt.Load(ctx, sessionID, getIdentity(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *ReceiptHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	order, err := h.receipt.LoadByID(ctx, orderID, getIdentity(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
