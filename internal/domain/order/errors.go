package order

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors.
var (
	ErrEmptyItems = errors.New("items required")
	ErrNotFound   = errors.New("order not found")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductRef string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductRef)
}

// ProductNotFoundError indicates a requested product does not exist in the
// catalog.
type ProductNotFoundError struct {
	ProductRef string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductRef)
}

// InsufficientStockError indicates the requested quantity exceeds the stock
// available at validation time.
type InsufficientStockError struct {
	ProductRef string
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductRef, e.Requested, e.Available)
}

// IncompleteAddressError indicates a required shipping address field is
// missing.
type IncompleteAddressError struct {
	Field string
}

func (e *IncompleteAddressError) Error() string {
	return fmt.Sprintf("shipping address is missing required field %q", e.Field)
}

// PaymentCeilingError indicates an online order exceeds the online payment
// ceiling. The caller should fall back to cash payment.
type PaymentCeilingError struct {
	Total   decimal.Decimal
	Ceiling decimal.Decimal
}

func (e *PaymentCeilingError) Error() string {
	return fmt.Sprintf("total %s exceeds online payment limit %s, use cash on delivery instead",
		e.Total, e.Ceiling)
}

// InvalidStatusError indicates a status transition target that is not one of
// the recognized states.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Value)
}

// GatewayError wraps a payment gateway failure. The order it concerns is
// preserved in a failed state for audit.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %s", e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
