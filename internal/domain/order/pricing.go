package order

import "github.com/shopspring/decimal"

// PricingConfig holds the shipping and payment-ceiling rules. It is built
// from application configuration and passed in at construction; there are no
// package-level pricing globals.
type PricingConfig struct {
	// FreeShippingThreshold is the items subtotal at or above which shipping
	// is free.
	FreeShippingThreshold decimal.Decimal
	// FlatShippingFee is charged below the threshold.
	FlatShippingFee decimal.Decimal
	// OnlineCeiling is the maximum order total payable online. Larger orders
	// must use cash on delivery.
	OnlineCeiling decimal.Decimal
}

// Quote is the derived pricing of an order, computed once at creation.
type Quote struct {
	ItemsPrice    decimal.Decimal
	ShippingPrice decimal.Decimal
	TotalPrice    decimal.Decimal
}

// QuoteFor computes shipping and total from the items subtotal:
// shipping is zero at or above the free-shipping threshold, the flat fee
// below it; total is always subtotal plus shipping.
func (c PricingConfig) QuoteFor(itemsPrice decimal.Decimal) Quote {
	shipping := c.FlatShippingFee
	if itemsPrice.GreaterThanOrEqual(c.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	return Quote{
		ItemsPrice:    itemsPrice,
		ShippingPrice: shipping,
		TotalPrice:    itemsPrice.Add(shipping),
	}
}

// CheckMethod rejects online payment for totals above the ceiling. Cash
// orders are never limited.
func (c PricingConfig) CheckMethod(method PaymentMethod, total decimal.Decimal) error {
	if method == PaymentMethodOnline && total.GreaterThan(c.OnlineCeiling) {
		return &PaymentCeilingError{Total: total, Ceiling: c.OnlineCeiling}
	}
	return nil
}
