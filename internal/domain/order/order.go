package order

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod selects how an order is paid. Fixed at creation.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "Cash"
	PaymentMethodOnline PaymentMethod = "Online"
)

// NormalizePaymentMethod maps a client-submitted method token to the
// canonical enum. Any case-insensitive cash-on-delivery style token becomes
// Cash; everything else is treated as Online.
func NormalizePaymentMethod(raw string) PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cod", "cash", "cash_on_delivery", "cashondelivery":
		return PaymentMethodCash
	default:
		return PaymentMethodOnline
	}
}

// PaymentStatus tracks the payment leg of an order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// LineItem is a priced, quantity-bound snapshot of one product. Name, price
// and image are captured at order creation and never re-derived from the
// catalog, so later catalog changes do not affect existing orders.
type LineItem struct {
	ProductRef string          `json:"productRef"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Image      string          `json:"image"`
}

// Address is the shipping destination. All fields except State are required.
type Address struct {
	FullName   string `json:"fullName"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// Order is the aggregate root for a checkout. The JSON field names are the
// wire contract for both the persisted document and API responses and must
// stay stable across reads and writes.
type Order struct {
	ID                   string          `json:"id"`
	OwnerID              string          `json:"ownerId"`
	Items                []LineItem      `json:"items"`
	ShippingAddress      Address         `json:"shippingAddress"`
	PaymentMethod        PaymentMethod   `json:"paymentMethod"`
	ItemsPrice           decimal.Decimal `json:"itemsPrice"`
	ShippingPrice        decimal.Decimal `json:"shippingPrice"`
	TotalPrice           decimal.Decimal `json:"totalPrice"`
	ExternalPaymentRef   string          `json:"externalPaymentRef"`
	GatewayTransactionID string          `json:"paymentGatewayTransactionId,omitempty"`
	IsPaid               bool            `json:"isPaid"`
	PaidAt               *time.Time      `json:"paidAt,omitempty"`
	IsDelivered          bool            `json:"isDelivered"`
	DeliveredAt          *time.Time      `json:"deliveredAt,omitempty"`
	PaymentStatus        PaymentStatus   `json:"paymentStatus"`
	Status               Status          `json:"status"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// ConfirmPaymentParams carries the fields written when a verified payment
// confirmation is applied to an order.
type ConfirmPaymentParams struct {
	OrderID       string
	OwnerID       string
	TransactionID string
	PaidAt        time.Time
}

// Repository defines persistence operations for orders. Implementations must
// apply ConfirmPayment and ApplyTransition as single atomic conditional
// updates: two concurrent requests touching the same order must not lose
// writes.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)

	// SetGatewayRef replaces the order's external payment reference with the
	// gateway-assigned one after a successful intent creation.
	SetGatewayRef(ctx context.Context, id, ref string) error

	// MarkFailed records a failed online-payment setup: status failed,
	// payment status Failed. The order is preserved for audit.
	MarkFailed(ctx context.Context, id string) error

	// ConfirmPayment atomically marks the order paid and confirmed, scoped to
	// the owning user. It returns ErrNotFound when no order matches both id
	// and owner. Re-applying an identical confirmation is a no-op.
	ConfirmPayment(ctx context.Context, p ConfirmPaymentParams) (*Order, error)

	// ApplyTransition atomically writes the target status together with its
	// side effects. It returns ErrNotFound when the id does not resolve.
	ApplyTransition(ctx context.Context, id string, target Status, fx TransitionEffects, now time.Time) (*Order, error)
}

// Event is emitted after a state-changing operation commits. Delivery is
// best effort; the operation result never depends on it.
type Event struct {
	Type  string
	Order *Order
}

// Event types.
const (
	EventCreated       = "order.created"
	EventPaid          = "order.paid"
	EventStatusChanged = "order.status_changed"
)

// EventPublisher publishes order events without blocking the caller beyond
// enqueueing.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event)
}
