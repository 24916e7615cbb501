package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Payment  *PaymentHandler
	Receipt  *ReceiptHandler
}

type RouterOptions struct {
	Session            SessionOptions
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(h Handlers, opts RouterOptions) chi.Router {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxRequestBodySize <= 0 {
		opts.MaxRequestBodySize = 6 << 20
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequestSize(opts.MaxRequestBodySize))
		r.Use(SessionMiddleware(opts.Session))
		r.Use(IdentityMiddleware)

		// Payment runs on its own deadline.
		r.Post("/payment", h.Payment.Submit)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(opts.RequestTimeout))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
			})
			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", h.Checkout.Enter)
				r.Post("/", h.Checkout.Submit)
				r.Get("/state", h.Checkout.State)
			})
			r.Get("/receipt", h.Receipt.GetReceipt)
			r.Get("/orders/{order_id}", h.Receipt.GetOrder)
		})
	})

	return r
}
