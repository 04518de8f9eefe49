package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/checkout-core/internal/domain/catalog"
	"github.com/xenking/checkout-core/internal/domain/payment"
)

// defaultState is used when the shipping address omits the optional state
// field.
const defaultState = "N/A"

// PlaceOrderRequest holds the input for creating an order.
type PlaceOrderRequest struct {
	OwnerID       string
	Items         []CartItem
	Address       Address
	PaymentMethod string
}

// VerifyPaymentRequest holds a client-submitted payment confirmation.
type VerifyPaymentRequest struct {
	OwnerID          string
	OrderID          string
	GatewayOrderRef  string
	GatewayPaymentID string
	Signature        string
}

// Service encapsulates order creation, payment verification and status
// transitions.
type Service struct {
	cart    *CartValidator
	orders  Repository
	gateway payment.Gateway
	pricing PricingConfig
	secret  []byte
	events  EventPublisher

	now   func() time.Time
	newID func() string
}

// NewService creates an order Service with the required dependencies. The
// gateway secret is used only for local signature verification.
func NewService(
	products catalog.Repository,
	orders Repository,
	gateway payment.Gateway,
	pricing PricingConfig,
	gatewaySecret []byte,
	events EventPublisher,
) *Service {
	return &Service{
		cart:    NewCartValidator(products),
		orders:  orders,
		gateway: gateway,
		pricing: pricing,
		secret:  gatewaySecret,
		events:  events,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// PlaceOrder validates the cart and address, prices the order, persists it
// in the pending state, and for online payment registers a payment intent
// with the gateway. When the gateway call fails the order is kept and marked
// failed; the gateway error is surfaced to the caller.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	lines, err := s.cart.Validate(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	addr := req.Address
	if err := validateAddress(&addr); err != nil {
		return nil, err
	}

	method := NormalizePaymentMethod(req.PaymentMethod)

	itemsPrice := decimal.Zero
	for _, l := range lines {
		itemsPrice = itemsPrice.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	quote := s.pricing.QuoteFor(itemsPrice)

	// Ceiling check happens before persisting and before any gateway call.
	if err := s.pricing.CheckMethod(method, quote.TotalPrice); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	o := &Order{
		ID:              s.newID(),
		OwnerID:         req.OwnerID,
		Items:           lines,
		ShippingAddress: addr,
		PaymentMethod:   method,
		ItemsPrice:      quote.ItemsPrice,
		ShippingPrice:   quote.ShippingPrice,
		TotalPrice:      quote.TotalPrice,
		// Every order gets a stable local reference before any gateway call;
		// for online orders the gateway-assigned one replaces it below.
		ExternalPaymentRef: "ref_" + s.newID(),
		PaymentStatus:      PaymentPending,
		Status:             StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if method == PaymentMethodOnline {
		ref, gwErr := s.gateway.CreateIntent(ctx, payment.Intent{
			OrderID:        o.ID,
			OwnerID:        o.OwnerID,
			Amount:         o.TotalPrice,
			IdempotencyKey: o.ID,
		})
		if gwErr != nil {
			// Keep the order for audit rather than rolling it back.
			if markErr := s.orders.MarkFailed(ctx, o.ID); markErr != nil {
				zctx.From(ctx).Error("mark order failed",
					zap.String("order_id", o.ID), zap.Error(markErr))
			}
			o.Status = StatusFailed
			o.PaymentStatus = PaymentFailed
			return nil, &GatewayError{Err: gwErr}
		}

		if err := s.orders.SetGatewayRef(ctx, o.ID, ref); err != nil {
			return nil, errors.Wrap(err, "store gateway ref")
		}
		o.ExternalPaymentRef = ref
	}

	s.publish(ctx, EventCreated, o)
	return o, nil
}

// VerifyPayment validates a payment confirmation signature and, only then,
// applies the paid state to the order scoped to the calling identity. The
// signature check runs before any lookup so forged requests cannot probe for
// order existence. Re-submitting the same valid payload is idempotent.
func (s *Service) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*Order, error) {
	if err := payment.VerifySignature(s.secret, req.GatewayOrderRef, req.GatewayPaymentID, req.Signature); err != nil {
		return nil, err
	}

	o, err := s.orders.ConfirmPayment(ctx, ConfirmPaymentParams{
		OrderID:       req.OrderID,
		OwnerID:       req.OwnerID,
		TransactionID: req.GatewayPaymentID,
		PaidAt:        s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventPaid, o)
	return o, nil
}

// Transition applies an administrator-driven status change with the side
// effects declared for the target state.
func (s *Service) Transition(ctx context.Context, orderID, target string) (*Order, error) {
	st, fx, err := ParseTransition(target)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.ApplyTransition(ctx, orderID, st, fx, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventStatusChanged, o)
	return o, nil
}

// Order returns a single order by id.
func (s *Service) Order(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// Orders returns all orders (admin listing).
func (s *Service) Orders(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// OrdersByOwner returns the calling user's orders.
func (s *Service) OrdersByOwner(ctx context.Context, ownerID string) ([]Order, error) {
	return s.orders.ListByOwner(ctx, ownerID)
}

func (s *Service) publish(ctx context.Context, typ string, o *Order) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, Event{Type: typ, Order: o})
}

// validateAddress checks required fields and defaults the optional state.
func validateAddress(a *Address) error {
	required := []struct {
		field string
		value string
	}{
		{"fullName", a.FullName},
		{"street", a.Street},
		{"city", a.City},
		{"postalCode", a.PostalCode},
		{"phone", a.Phone},
		{"email", a.Email},
	}
	for _, r := range required {
		if r.value == "" {
			return &IncompleteAddressError{Field: r.field}
		}
	}
	if a.State == "" {
		a.State = defaultState
	}
	return nil
}
