package domain

import "github.com/shopspring/decimal"

// PricingSnapshot is derived from a cart and never stored on its own, except
// as part of a CheckoutDraft.
type PricingSnapshot struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}
