package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/checkout-core/internal/domain/order"
)

const orderColumns = `id, owner_id, items, shipping_address, payment_method,
	items_price, shipping_price, total_price,
	external_payment_ref, gateway_transaction_id,
	is_paid, paid_at, is_delivered, delivered_at,
	payment_status, status, created_at, updated_at`

const (
	createOrderSQL = `INSERT INTO orders (
		id, owner_id, items, shipping_address, payment_method,
		items_price, shipping_price, total_price,
		external_payment_ref, payment_status, status, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	listOrdersByOwnerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE owner_id = $1 ORDER BY created_at DESC`

	setGatewayRefSQL = `UPDATE orders
		SET external_payment_ref = $2, updated_at = now()
		WHERE id = $1`

	markFailedSQL = `UPDATE orders
		SET status = 'failed', payment_status = 'Failed', updated_at = now()
		WHERE id = $1`

	// Single round trip, scoped to the owning user. COALESCE and the is_paid
	// guards make a repeated identical confirmation a no-op: paid_at keeps
	// its first value and status is never moved back to confirmed once paid.
	confirmPaymentSQL = `UPDATE orders SET
		payment_status = 'Paid',
		status = CASE WHEN is_paid THEN status ELSE 'confirmed' END,
		gateway_transaction_id = $4,
		paid_at = COALESCE(paid_at, $3),
		updated_at = CASE WHEN is_paid THEN updated_at ELSE $3 END,
		is_paid = TRUE
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + orderColumns

	// Status plus its declared side effects in one conditional update:
	// non-delivered targets always clear the delivery markers, delivered
	// additionally forces the payment fields to paid.
	applyTransitionSQL = `UPDATE orders SET
		status = $2,
		is_delivered = $3,
		delivered_at = CASE WHEN $3 THEN COALESCE(delivered_at, $4::timestamptz) ELSE NULL END,
		paid_at = CASE WHEN $5 THEN COALESCE(paid_at, $4::timestamptz) ELSE paid_at END,
		payment_status = CASE WHEN $5 THEN 'Paid' ELSE payment_status END,
		is_paid = (is_paid OR $5),
		updated_at = $4
		WHERE id = $1
		RETURNING ` + orderColumns
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items and the shipping address are stored as JSONB documents using the
// order wire field names.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.OwnerID, itemsJSON, addressJSON, string(o.PaymentMethod),
		o.ItemsPrice, o.ShippingPrice, o.TotalPrice,
		o.ExternalPaymentRef, string(o.PaymentStatus), string(o.Status),
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.one(ctx, getOrderByIDSQL, id)
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListByOwner returns the given user's orders, newest first.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByOwnerSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for owner %q: %w", ownerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// SetGatewayRef replaces the order's external payment reference.
func (r *OrderRepository) SetGatewayRef(ctx context.Context, id, ref string) error {
	tag, err := r.pool.Exec(ctx, setGatewayRefSQL, id, ref)
	if err != nil {
		return fmt.Errorf("setting gateway ref for order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// MarkFailed records a failed online-payment setup, keeping the order row.
func (r *OrderRepository) MarkFailed(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, markFailedSQL, id)
	if err != nil {
		return fmt.Errorf("marking order %q failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// ConfirmPayment applies a verified payment confirmation in one atomic,
// owner-scoped update.
func (r *OrderRepository) ConfirmPayment(ctx context.Context, p order.ConfirmPaymentParams) (*order.Order, error) {
	return r.one(ctx, confirmPaymentSQL, p.OrderID, p.OwnerID, p.PaidAt, p.TransactionID)
}

// ApplyTransition writes the target status and its side effects atomically.
func (r *OrderRepository) ApplyTransition(ctx context.Context, id string, target order.Status, fx order.TransitionEffects, now time.Time) (*order.Order, error) {
	return r.one(ctx, applyTransitionSQL, id, string(target), fx.MarkDelivered, now, fx.MarkPaid)
}

func (r *OrderRepository) one(ctx context.Context, sql string, args ...any) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying order: %w", err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("querying order: %w", err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		itemsJSON   []byte
		addressJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.OwnerID, &itemsJSON, &addressJSON, &o.PaymentMethod,
		&o.ItemsPrice, &o.ShippingPrice, &o.TotalPrice,
		&o.ExternalPaymentRef, &o.GatewayTransactionID,
		&o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt,
		&o.PaymentStatus, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	return o, nil
}
