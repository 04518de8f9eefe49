package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Intent describes a payment-intent creation request sent to the external
// gateway. Amount is in major currency units; the gateway adapter converts to
// the gateway's minor-unit convention on the wire.
type Intent struct {
	OrderID string
	OwnerID string
	Amount  decimal.Decimal
	// IdempotencyKey deduplicates retried creates on the gateway side.
	// Callers use the internal order id.
	IdempotencyKey string
}

// Gateway creates remote payment intents. Implementations perform a single
// synchronous call with no retry; retry policy belongs to the caller.
type Gateway interface {
	// CreateIntent registers the intent with the gateway and returns the
	// gateway-assigned order reference.
	CreateIntent(ctx context.Context, intent Intent) (gatewayRef string, err error)
}
