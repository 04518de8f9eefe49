package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a product does not exist in the catalog.
var ErrNotFound = errors.New("product not found")

// Product is the catalog view of a sellable item. Price, name and image are
// snapshotted into order line items at checkout; Stock is the quantity
// available at lookup time.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
	Image string
}

// Repository defines catalog lookup operations.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
