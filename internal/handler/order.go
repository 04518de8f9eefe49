package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/checkout-core/internal/domain/order"
)

type createOrderRequest struct {
	Items []struct {
		ProductRef string `json:"productRef"`
		Quantity   int    `json:"quantity"`
	} `json:"items"`
	ShippingAddress order.Address `json:"shippingAddress"`
	PaymentMethod   string        `json:"paymentMethod"`
	// TotalPrice is the client's asserted amount. Advisory only: pricing is
	// always recomputed from the catalog, never taken from the client.
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type createOrderResponse struct {
	OrderID    string          `json:"orderId"`
	GatewayRef string          `json:"gatewayRef"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// CreateOrder turns a submitted cart into a durable order. For online
// payment the response carries the gateway reference the client completes
// the payment against.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	items := make([]order.CartItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.CartItem{ProductRef: it.ProductRef, Quantity: it.Quantity}
	}

	id := IdentityFromContext(ctx)
	o, err := h.orders.PlaceOrder(ctx, order.PlaceOrderRequest{
		OwnerID:       id.UserID,
		Items:         items,
		Address:       req.ShippingAddress,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	if !req.TotalPrice.IsZero() && !req.TotalPrice.Equal(o.TotalPrice) {
		zctx.From(ctx).Info("client total mismatch",
			zap.String("order_id", o.ID),
			zap.String("client_total", req.TotalPrice.String()),
			zap.String("total", o.TotalPrice.String()),
		)
	}

	writeJSON(ctx, w, http.StatusCreated, createOrderResponse{
		OrderID:    o.ID,
		GatewayRef: o.ExternalPaymentRef,
		TotalPrice: o.TotalPrice,
	})
}

type verifyPaymentRequest struct {
	OrderID          string `json:"orderId"`
	GatewayOrderRef  string `json:"gatewayOrderRef"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

// VerifyPayment validates a client-submitted payment confirmation and marks
// the order paid. The order lookup is scoped to the calling identity.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if req.OrderID == "" || req.GatewayOrderRef == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		writeError(ctx, w, http.StatusBadRequest, codeValidation, "orderId, gatewayOrderRef, gatewayPaymentId and signature are required")
		return
	}

	id := IdentityFromContext(ctx)
	o, err := h.orders.VerifyPayment(ctx, order.VerifyPaymentRequest{
		OwnerID:          id.UserID,
		OrderID:          req.OrderID,
		GatewayOrderRef:  req.GatewayOrderRef,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, o)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus applies an administrator-driven fulfillment transition.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	o, err := h.orders.Transition(ctx, chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, o)
}

// GetOrder returns a single order by id (admin read).
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	o, err := h.orders.Order(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, o)
}

// ListOrders returns every order (admin listing).
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orders, err := h.orders.Orders(ctx)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, orders)
}

// ListMyOrders returns the calling user's orders.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := IdentityFromContext(ctx)
	orders, err := h.orders.OrdersByOwner(ctx, id.UserID)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, orders)
}
