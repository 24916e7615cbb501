package domain

import "github.com/shopspring/decimal"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusRejected  OrderStatus = "rejected"
)

type OrderItem struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image,omitempty"`
}

// Order is owned by the backend; this service only reads it.
type Order struct {
	ID                string          `json:"id"`
	CustomerName      string          `json:"customerName"`
	CustomerEmail     string          `json:"customerEmail"`
	CustomerPhone     string          `json:"customerPhone"`
	ShippingAddress   string          `json:"shippingAddress"`
	ShippingCity      string          `json:"shippingCity"`
	ShippingPostcode  string          `json:"shippingPostcode"`
	ShippingCountry   string          `json:"shippingCountry"`
	OrderNotes        string          `json:"orderNotes,omitempty"`
	Items             []OrderItem     `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Shipping          decimal.Decimal `json:"shipping"`
	Tax               decimal.Decimal `json:"tax"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	Status            OrderStatus     `json:"status"`
	TransactionNumber string          `json:"transactionNumber,omitempty"`
	PaymentProof      string          `json:"paymentProof,omitempty"`
	CreatedAt         string          `json:"createdAt,omitempty"`
}
