package order

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/checkout-core/internal/domain/catalog"
)

// CartItem is one entry of a submitted cart. Prices are never taken from the
// client; only the product reference and quantity are trusted as input.
type CartItem struct {
	ProductRef string
	Quantity   int
}

// CartValidator cross-checks a submitted cart against the catalog and
// produces priced line-item snapshots. It is read-only: stock is checked but
// never decremented or reserved here.
type CartValidator struct {
	catalog catalog.Repository
}

// NewCartValidator creates a CartValidator over the given catalog.
func NewCartValidator(c catalog.Repository) *CartValidator {
	return &CartValidator{catalog: c}
}

// Validate checks quantities, existence and stock for every cart entry and
// returns line items with name, price and image snapshotted from the catalog
// at this instant.
func (v *CartValidator) Validate(ctx context.Context, items []CartItem) ([]LineItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductRef: item.ProductRef}
		}
		ids[i] = item.ProductRef
	}

	// Batch fetch all products in a single query.
	fetched, err := v.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	byID := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	lines := make([]LineItem, 0, len(items))
	for _, item := range items {
		p, ok := byID[item.ProductRef]
		if !ok {
			return nil, &ProductNotFoundError{ProductRef: item.ProductRef}
		}
		if item.Quantity > p.Stock {
			return nil, &InsufficientStockError{
				ProductRef: item.ProductRef,
				Requested:  item.Quantity,
				Available:  p.Stock,
			}
		}
		lines = append(lines, LineItem{
			ProductRef: p.ID,
			Name:       p.Name,
			Price:      p.Price,
			Quantity:   item.Quantity,
			Image:      p.Image,
		})
	}

	return lines, nil
}
