package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartValidate_Empty(t *testing.T) {
	v := NewCartValidator(newCatalogRepo())

	_, err := v.Validate(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCartValidate_ZeroQuantity(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(10), 5)
	v := NewCartValidator(newCatalogRepo(p1))

	_, err := v.Validate(context.Background(), []CartItem{{ProductRef: "p1", Quantity: 0}})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductRef)
}

func TestCartValidate_NegativeQuantity(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(10), 5)
	v := NewCartValidator(newCatalogRepo(p1))

	_, err := v.Validate(context.Background(), []CartItem{{ProductRef: "p1", Quantity: -2}})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
}

func TestCartValidate_ProductNotFound(t *testing.T) {
	v := NewCartValidator(newCatalogRepo())

	_, err := v.Validate(context.Background(), []CartItem{{ProductRef: "missing", Quantity: 1}})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductRef)
}

func TestCartValidate_InsufficientStock(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(10), 3)
	v := NewCartValidator(newCatalogRepo(p1))

	_, err := v.Validate(context.Background(), []CartItem{{ProductRef: "p1", Quantity: 4}})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p1", stockErr.ProductRef)
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)
}

func TestCartValidate_ExactStockAllowed(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(10), 3)
	v := NewCartValidator(newCatalogRepo(p1))

	lines, err := v.Validate(context.Background(), []CartItem{{ProductRef: "p1", Quantity: 3}})

	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestCartValidate_Snapshots(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("9.99"), 5)
	p2 := newTestProduct("p2", "Gadget", decimal.RequireFromString("19.99"), 5)
	v := NewCartValidator(newCatalogRepo(p1, p2))

	lines, err := v.Validate(context.Background(), []CartItem{
		{ProductRef: "p2", Quantity: 1},
		{ProductRef: "p1", Quantity: 2},
	})

	require.NoError(t, err)
	require.Len(t, lines, 2)
	// Order follows the submitted cart, not the catalog.
	assert.Equal(t, "p2", lines[0].ProductRef)
	assert.Equal(t, "Gadget", lines[0].Name)
	assert.True(t, decimal.RequireFromString("19.99").Equal(lines[0].Price))
	assert.Equal(t, "p1", lines[1].ProductRef)
	assert.Equal(t, 2, lines[1].Quantity)
}
