package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
)

// wireItem is the line item shape the order endpoint expects inside the
// JSON-encoded "items" field.
type wireItem struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
	Image    string      `json:"image,omitempty"`
}

// CreateOrderRequest carries everything needed for one order submission.
type CreateOrderRequest struct {
	Draft    domain.CheckoutDraft
	Evidence domain.PaymentEvidence
	Identity domain.Identity
}

// WriteOrderForm encodes the order as multipart/form-data into w and returns
// the content type, boundary included. Evidence must already be validated.
func WriteOrderForm(w io.Writer, req CreateOrderRequest) (string, error) {
	mw := multipart.NewWriter(w)

	d := req.Draft
	items, err := encodeItems(d.Cart.Items)
	if err != nil {
		return "", err
	}

	fields := []struct{ name, value string }{
		{"customerName", d.Customer.Name},
		{"customerEmail", d.Customer.Email},
		{"customerPhone", d.Customer.Phone},
		{"shippingAddress", d.Customer.Street},
		{"shippingCity", d.Customer.City},
		{"shippingPostcode", d.Customer.Postcode},
		{"shippingCountry", d.Customer.Country},
		{"orderNotes", d.Customer.Notes},
		{"items", items},
		{"subtotal", pricing.Format(d.Pricing.Subtotal)},
		{"shipping", pricing.Format(d.Pricing.ShippingFee)},
		{"tax", pricing.Format(d.Pricing.Tax)},
		{"totalAmount", pricing.Format(d.Pricing.Total)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	switch req.Evidence.Kind() {
	case domain.EvidenceUpload:
		up, _ := req.Evidence.Upload()
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="paymentProof"; filename="%s"`, escapeQuotes(up.Filename)))
		h.Set("Content-Type", up.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return "", fmt.Errorf("create proof part: %w", err)
		}
		if _, err := part.Write(up.Data); err != nil {
			return "", fmt.Errorf("write proof part: %w", err)
		}
	case domain.EvidenceReference:
		ref, _ := req.Evidence.Reference()
		if err := mw.WriteField("transactionNumber", strings.TrimSpace(ref.TransactionID)); err != nil {
			return "", fmt.Errorf("write field transactionNumber: %w", err)
		}
	default:
		return "", fmt.Errorf("no payment evidence to encode")
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}
	return mw.FormDataContentType(), nil
}

func encodeItems(items []domain.CartItem) (string, error) {
	out := make([]wireItem, 0, len(items))
	for _, item := range items {
		out = append(out, wireItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    json.Number(pricing.Format(item.UnitPrice)),
			Quantity: item.Quantity,
			Image:    item.ImageRef,
		})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}
	return string(b), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
