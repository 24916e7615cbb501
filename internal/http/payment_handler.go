package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
)

const (
	paymentMethodUpload    = "upload"
	paymentMethodReference = "reference"
)

type PaymentHandler struct {
	payment *service.PaymentService
	log     *slog.Logger
}

func NewPaymentHandler(payment *service.PaymentService, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payment: payment,
		log:     log,
	}
}

type PaymentRequestDTO struct {
	PaymentMethod     string `json:"paymentMethod"`
	TransactionNumber string `json:"transactionNumber"`
}

type PaymentResponseDTO struct {
	OrderID  string `json:"orderId"`
	Redirect string `json:"redirect"`
}

// Submit places the order for the session's checkout draft. It accepts a
// multipart form carrying a paymentProof file or a transactionNumber, or a
// JSON body with a transactionNumber.
//
// The submission is not bound to the request timeout; the payment service
// applies its own.
func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	evidence, err := readEvidence(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = &service.EvidenceError{Field: service.FieldPaymentProof, Reason: "payment proof must be 5 MB or smaller"}
		}
		var eerr *service.EvidenceError
		if !errors.As(err, &eerr) {
			respondError(w, http.StatusBadRequest, "invalid_request", "could not read payment form")
			return
		}
		handleServiceError(w, r, h.log, err)
		return
	}

	orderID, err := h.payment.Submit(r.Context(), sessionID, evidence, getIdentity(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log.With(slog.String("request_id", getRequestID(r.Context()))), err)
		return
	}

	w.Header().Set("Location", "/receipt")
	respondJSON(w, http.StatusCreated, PaymentResponseDTO{OrderID: orderID, Redirect: "/receipt"})
}

func readEvidence(r *http.Request) (domain.PaymentEvidence, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var method, txn string
	var hasTxn bool
	var upload *domain.Upload

	switch mediaType {
	case "application/json":
		var req PaymentRequestDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return domain.PaymentEvidence{}, err
		}
		method, txn, hasTxn = req.PaymentMethod, req.TransactionNumber, req.TransactionNumber != ""

	case "multipart/form-data":
		if err := r.ParseMultipartForm(int64(domain.MaxProofBytes)); err != nil {
			return domain.PaymentEvidence{}, err
		}
		method = r.FormValue("paymentMethod")
		txn = r.FormValue("transactionNumber")
		_, hasTxn = r.MultipartForm.Value["transactionNumber"]

		file, header, err := r.FormFile("paymentProof")
		switch {
		case err == nil:
			defer file.Close()
			data, err := io.ReadAll(io.LimitReader(file, int64(domain.MaxProofBytes)+1))
			if err != nil {
				return domain.PaymentEvidence{}, err
			}
			upload = &domain.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			}
		case !errors.Is(err, http.ErrMissingFile):
			return domain.PaymentEvidence{}, err
		}

	default:
		if err := r.ParseForm(); err != nil {
			return domain.PaymentEvidence{}, err
		}
		method = r.PostFormValue("paymentMethod")
		txn = r.PostFormValue("transactionNumber")
		_, hasTxn = r.PostForm["transactionNumber"]
	}

	method = strings.ToLower(strings.TrimSpace(method))
	switch {
	case upload != nil && strings.TrimSpace(txn) != "":
		return domain.PaymentEvidence{}, &service.EvidenceError{
			Field:  service.FieldPaymentMethod,
			Reason: "provide either a payment proof or a transaction number, not both",
		}
	case upload != nil:
		return domain.UploadEvidence(*upload), nil
	case method == paymentMethodUpload:
		return domain.UploadEvidence(domain.Upload{}), nil
	case hasTxn || method == paymentMethodReference:
		return domain.ReferenceEvidence(txn), nil
	default:
		return domain.PaymentEvidence{}, nil
	}
}
