package domain

// CheckoutStep is where a session currently is in the checkout pipeline.
type CheckoutStep string

const (
	StepEmptyCart        CheckoutStep = "EMPTY_CART"
	StepCartHasItems     CheckoutStep = "CART_HAS_ITEMS"
	StepCheckoutDraft    CheckoutStep = "CHECKOUT_DRAFT"
	StepPaymentSubmitted CheckoutStep = "PAYMENT_SUBMITTED"
	StepOrderConfirmed   CheckoutStep = "ORDER_CONFIRMED"
)

var stepOrder = map[CheckoutStep]int{
	StepEmptyCart:        0,
	StepCartHasItems:     1,
	StepCheckoutDraft:    2,
	StepPaymentSubmitted: 3,
	StepOrderConfirmed:   4,
}

// CanTransitionTo allows moving one step forward, or any step back (the
// shopper's own "back" navigation). A confirmed order only leads to a new cart.
func CanTransitionTo(from, to CheckoutStep) bool {
	f, ok := stepOrder[from]
	if !ok {
		return false
	}
	t, ok := stepOrder[to]
	if !ok {
		return false
	}
	if from == StepOrderConfirmed {
		return to == StepEmptyCart || to == StepCartHasItems
	}
	return t == f+1 || t <= f
}

func (s CheckoutStep) IsTerminal() bool {
	return s == StepOrderConfirmed
}

func (s CheckoutStep) String() string {
	return string(s)
}
