// Package handler exposes the checkout API over HTTP. Handlers decode and
// authorize requests, delegate to the order service, and map domain errors
// to the JSON error envelope.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/xenking/checkout-core/internal/domain/auth"
	"github.com/xenking/checkout-core/internal/domain/order"
)

// Handler implements the HTTP surface of the checkout core.
type Handler struct {
	orders   *order.Service
	verifier auth.Verifier
}

// NewHandler constructs a Handler over the order service and identity
// verifier.
func NewHandler(orders *order.Service, verifier auth.Verifier) *Handler {
	return &Handler{
		orders:   orders,
		verifier: verifier,
	}
}

// Routes returns the API router. Every order route requires a verified
// identity; the full listing and status transitions additionally require the
// admin scope.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/orders", func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Post("/", h.CreateOrder)
		r.Post("/verify-payment", h.VerifyPayment)
		r.Get("/mine", h.ListMyOrders)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", h.ListOrders)
			r.Get("/{orderID}", h.GetOrder)
			r.Patch("/{orderID}/status", h.UpdateStatus)
		})
	})

	return r
}
