package domain

import "github.com/shopspring/decimal"

// MaxLineQuantity caps the units of one product in a cart.
const MaxLineQuantity = 99

// CartItem is one product line in the shopper's cart. Quantity is always >= 1
// once stored.
type CartItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"imageRef,omitempty"`
}

// Cart keeps items in insertion order, unique by product id.
type Cart struct {
	Items []CartItem `json:"items"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Count returns the total number of units, which is what the cart badge shows.
func (c *Cart) Count() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Quantity returns the units of the product in the cart, zero if absent.
func (c *Cart) Quantity(id string) int {
	if c == nil {
		return 0
	}
	if i := c.indexOf(id); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// SameItems reports whether both carts hold the same products at the same
// quantities and prices, in any order.
func (c *Cart) SameItems(other *Cart) bool {
	if c.Count() != other.Count() || len(c.items()) != len(other.items()) {
		return false
	}
	for _, item := range c.items() {
		i := other.indexOf(item.ID)
		if i < 0 {
			return false
		}
		o := other.Items[i]
		if o.Quantity != item.Quantity || !o.UnitPrice.Equal(item.UnitPrice) {
			return false
		}
	}
	return true
}

func (c *Cart) items() []CartItem {
	if c == nil {
		return nil
	}
	return c.Items
}

func (c *Cart) indexOf(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Add merges quantity into an existing line or appends a new one.
// A non-positive quantity is a no-op.
func (c *Cart) Add(item CartItem, quantity int) {
	if quantity <= 0 {
		return
	}
	if i := c.indexOf(item.ID); i >= 0 {
		c.Items[i].Quantity += quantity
		return
	}
	item.Quantity = quantity
	c.Items = append(c.Items, item)
}

// SetQuantity replaces the quantity of a line; quantity <= 0 removes it.
// Reports whether the product was in the cart.
func (c *Cart) SetQuantity(id string, quantity int) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return true
	}
	c.Items[i].Quantity = quantity
	return true
}

func (c *Cart) Remove(id string) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

// Clone returns a deep copy so snapshots never alias live cart state.
func (c *Cart) Clone() Cart {
	if c == nil {
		return Cart{Items: []CartItem{}}
	}
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}

// Normalize drops lines that violate the item invariants. Used when reading
// persisted data that may have been written by an older client.
func (c *Cart) Normalize() {
	kept := c.Items[:0]
	seen := make(map[string]int, len(c.Items))
	for _, item := range c.Items {
		if item.ID == "" || item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			continue
		}
		if i, ok := seen[item.ID]; ok {
			kept[i].Quantity += item.Quantity
			continue
		}
		seen[item.ID] = len(kept)
		kept = append(kept, item)
	}
	c.Items = kept
}
