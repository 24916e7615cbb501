// Package pricing derives cart totals. Every derived amount is rounded half
// away from zero to two decimal places when it is computed, so the figures a
// shopper sees are the figures submitted with the order.
package pricing

import (
	"github.com/fjod/go_cart/storefront/domain"
	"github.com/shopspring/decimal"
)

const places = 2

type Policy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
		FlatShippingFee:       decimal.RequireFromString("5.00"),
		TaxRate:               decimal.RequireFromString("0.20"),
	}
}

// ComputeTotals prices items with the default policy.
func ComputeTotals(items []domain.CartItem) domain.PricingSnapshot {
	return DefaultPolicy().ComputeTotals(items)
}

// ComputeTotals is pure. An empty cart still carries the flat shipping fee;
// checkout refuses empty carts so that total is never submitted.
func (p Policy) ComputeTotals(items []domain.CartItem) domain.PricingSnapshot {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(places)

	shipping := p.FlatShippingFee.Round(places)
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	// tax is on the subtotal only, never on shipping
	tax := subtotal.Mul(p.TaxRate).Round(places)

	return domain.PricingSnapshot{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Tax:         tax,
		Total:       subtotal.Add(shipping).Add(tax),
	}
}

// Format renders an amount the way it is displayed and submitted.
func Format(d decimal.Decimal) string {
	return d.StringFixed(places)
}
