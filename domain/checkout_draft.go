package domain

import "time"

// CustomerDetails are the fields collected by the checkout form.
type CustomerDetails struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Street   string `json:"street" validate:"required"`
	City     string `json:"city" validate:"required"`
	Postcode string `json:"postcode" validate:"required"`
	Country  string `json:"country"`
	Notes    string `json:"notes,omitempty"`
}

// CheckoutDraft freezes the cart and its totals at the moment the checkout
// form was accepted. It lives until an order is created from it.
type CheckoutDraft struct {
	ID        string          `json:"id"`
	Customer  CustomerDetails `json:"customer"`
	Cart      Cart            `json:"cart"`
	Pricing   PricingSnapshot `json:"pricing"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Identity is the authenticated shopper, if any. Token is forwarded to the
// backend untouched.
type Identity struct {
	Token string
	Name  string
	Email string
}

func (i Identity) Authenticated() bool {
	return i.Token != ""
}
