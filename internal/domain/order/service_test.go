package order

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/checkout-core/internal/domain/catalog"
	"github.com/xenking/checkout-core/internal/domain/payment"
)

// --- Mock implementations ---

type mockCatalogRepo struct {
	byID   map[string]catalog.Product
	getErr error
}

func (m *mockCatalogRepo) List(_ context.Context) ([]catalog.Product, error) {
	return nil, nil
}

func (m *mockCatalogRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (m *mockCatalogRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	byID map[string]*Order

	createErr     error
	markedFailed  []string
	gatewayRefs   map[string]string
	confirmCalled int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		byID:        make(map[string]*Order),
		gatewayRefs: make(map[string]string),
	}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) List(_ context.Context) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) ListByOwner(_ context.Context, ownerID string) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		if o.OwnerID == ownerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) SetGatewayRef(_ context.Context, id, ref string) error {
	o, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	o.ExternalPaymentRef = ref
	m.gatewayRefs[id] = ref
	return nil
}

func (m *mockOrderRepo) MarkFailed(_ context.Context, id string) error {
	o, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = StatusFailed
	o.PaymentStatus = PaymentFailed
	m.markedFailed = append(m.markedFailed, id)
	return nil
}

func (m *mockOrderRepo) ConfirmPayment(_ context.Context, p ConfirmPaymentParams) (*Order, error) {
	m.confirmCalled++
	o, ok := m.byID[p.OrderID]
	if !ok || o.OwnerID != p.OwnerID {
		return nil, ErrNotFound
	}
	if !o.IsPaid {
		o.Status = StatusConfirmed
		paidAt := p.PaidAt
		o.PaidAt = &paidAt
		o.UpdatedAt = p.PaidAt
	}
	o.IsPaid = true
	o.PaymentStatus = PaymentPaid
	o.GatewayTransactionID = p.TransactionID
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ApplyTransition(_ context.Context, id string, target Status, fx TransitionEffects, now time.Time) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = target
	o.IsDelivered = fx.MarkDelivered
	if fx.MarkDelivered {
		if o.DeliveredAt == nil {
			t := now
			o.DeliveredAt = &t
		}
	} else {
		o.DeliveredAt = nil
	}
	if fx.MarkPaid {
		o.IsPaid = true
		o.PaymentStatus = PaymentPaid
		if o.PaidAt == nil {
			t := now
			o.PaidAt = &t
		}
	}
	o.UpdatedAt = now
	cp := *o
	return &cp, nil
}

type mockGateway struct {
	ref   string
	err   error
	calls []payment.Intent
}

func (m *mockGateway) CreateIntent(_ context.Context, in payment.Intent) (string, error) {
	m.calls = append(m.calls, in)
	if m.err != nil {
		return "", m.err
	}
	return m.ref, nil
}

type mockPublisher struct {
	events []Event
}

func (m *mockPublisher) Publish(_ context.Context, evt Event) {
	m.events = append(m.events, evt)
}

// --- Helpers ---

var testSecret = []byte("test-secret")

func testPricing() PricingConfig {
	return PricingConfig{
		FreeShippingThreshold: decimal.NewFromInt(499),
		FlatShippingFee:       decimal.NewFromInt(40),
		OnlineCeiling:         decimal.NewFromInt(99999),
	}
}

func newTestProduct(id, name string, price decimal.Decimal, stock int) catalog.Product {
	return catalog.Product{
		ID:    id,
		Name:  name,
		Price: price,
		Stock: stock,
		Image: "thumb.jpg",
	}
}

func newCatalogRepo(products ...catalog.Product) *mockCatalogRepo {
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockCatalogRepo{byID: byID}
}

func testAddress() Address {
	return Address{
		FullName:   "Ada Lovelace",
		Street:     "1 Analytical Way",
		City:       "London",
		PostalCode: "EC1A 1AA",
		Phone:      "+44 20 0000 0000",
		Email:      "ada@example.com",
	}
}

type testEnv struct {
	svc     *Service
	orders  *mockOrderRepo
	gateway *mockGateway
	events  *mockPublisher
}

func newTestEnv(t *testing.T, products ...catalog.Product) *testEnv {
	t.Helper()
	env := &testEnv{
		orders:  newMockOrderRepo(),
		gateway: &mockGateway{ref: "order_GW123"},
		events:  &mockPublisher{},
	}
	env.svc = NewService(newCatalogRepo(products...), env.orders, env.gateway, testPricing(), testSecret, env.events)
	env.svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	seq := 0
	env.svc.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return env
}

// --- Tests ---

func TestPlaceOrder_EmptyItems(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.PlaceOrder(context.Background(), PlaceOrderRequest{Address: testAddress()})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder_IncompleteAddress(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(10), 5)
	env := newTestEnv(t, p1)

	addr := testAddress()
	addr.Email = ""
	_, err := env.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:   []CartItem{{ProductRef: "p1", Quantity: 1}},
		Address: addr,
	})

	var iaErr *IncompleteAddressError
	require.ErrorAs(t, err, &iaErr)
	assert.Equal(t, "email", iaErr.Field)
	assert.Empty(t, env.orders.byID)
}

func TestPlaceOrder_StateDefaulted(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(10), 5)
	env := newTestEnv(t, p1)

	o, err := env.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OwnerID:       "u1",
		Items:         []CartItem{{ProductRef: "p1", Quantity: 1}},
		Address:       testAddress(),
		PaymentMethod: "cod",
	})

	require.NoError(t, err)
	assert.Equal(t, "N/A", o.ShippingAddress.State)
}

func TestPlaceOrder_CashBelowThreshold(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"), 10)
	p2 := newTestProduct("p2", "Gadget", decimal.RequireFromString("20.00"), 10)
	env := newTestEnv(t, p1, p2)

	o, err := env.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OwnerID: "u1",
		Items: []CartItem{
			{ProductRef: "p1", Quantity: 2},
			{ProductRef: "p2", Quantity: 1},
		},
		Address:       testAddress(),
		PaymentMethod: "cash_on_delivery",
	})

	require.NoError(t, err)
	assert.Equal(t, PaymentMethodCash, o.PaymentMethod)
	assert.True(t, decimal.RequireFromString("40.00").Equal(o.ItemsPrice))
	assert.True(t, decimal.NewFromInt(40).Equal(o.ShippingPrice))
	assert.True(t, decimal.RequireFromString("80.00").Equal(o.TotalPrice))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, "ref_id-2", o.ExternalPaymentRef)
	assert.Empty(t, env.gateway.calls, "cash orders must not touch the gateway")
	require.Len(t, env.events.events, 1)
	assert.Equal(t, EventCreated, env.events.events[0].Type)
}

func TestPlaceOrder_FreeShippingAtThreshold(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(499), 5)
	env := newTestEnv(t, p1)

	o, err := env.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OwnerID:       "u1",
		Items:         []CartItem{{ProductRef: "p1", Quantity: 1}},
		Address:       testAddress(),
		PaymentMethod: "cash",
	})

	require.NoError(t, err)
	assert.True(t, o.ShippingPrice.IsZero())
	assert.True(t, decimal.NewFromInt(499).Equal(o.TotalPrice))
}

func TestPlaceOrder_OnlineCreatesIntent(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(100), 5)
	env := newTestEnv(t, p1)

	o, err := env.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OwnerID:       "u1",
		Items:         []CartItem{{ProductRef: "p1", Quantity: 2}},
		Address:       testAddress(),
		PaymentMethod: "online",
	})

	require.NoError(t, err)
	assert.Equal(t, PaymentMethodOnline, o.PaymentMethod)
	assert.Equal(t, "order_GW123", o.ExternalPaymentRef)
	require.Len(t, env.gateway.calls, 1)
	intent := env.gateway.calls[0]
	assert.Equal(t, o.ID, intent.OrderID)
	assert.Equal(t, "u1", intent.OwnerID)
	assert.Equal(t, o.ID, intent.IdempotencyKey)
	assert.True(t, decimal.NewFromInt(200).Equal(intent.Amount))
	assert.Equal(t, "order_GW123", env.orders.gatewayRefs[o.ID])
}

func TestPlaceOrder_OnlineCeilingExceeded(t *testing.T) {
	p1 := newTestProduct("p1", "Gold Bar", decimal.NewFromInt(100000), 5)
	env := newTestEnv(t, p1)

	_, err := env.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OwnerID:       "u1",
		Items:         []CartItem{{ProductRef: "p1", Quantity: 1}},
		Address:       testAddress(),
		PaymentMethod: "online",
	})

	var ceilErr *PaymentCeilingError
	require.ErrorAs(t, err, &ceilErr)
	assert.True(t, decimal.NewFromInt(100000).Equal(ceilErr.Total))
	assert.Empty(t, env.orders.byID, "rejected order must not be persisted")
	assert.Empty(t, env.gateway.calls)
}

func TestPlaceOrder_CashIgnoresCeiling(t *testing.T) {
	p1 := newTestProduct("p1", "Gold Bar", decimal.NewFromInt(100000), 5)
	env := newTestEnv(t, p1)

	o, err := env.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OwnerID:       "u1",
		Items:         []CartItem{{ProductRef: "p1", Quantity: 1}},
		Address:       testAddress(),
		PaymentMethod: "cod",
	})

	require.NoError(t, err)
	assert.Equal(t, PaymentMethodCash, o.PaymentMethod)
}

func TestPlaceOrder_GatewayFailureKeepsOrder(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(100), 5)
	env := newTestEnv(t, p1)
	env.gateway.err = errors.New("gateway down")

	o, err := env.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OwnerID:       "u1",
		Items:         []CartItem{{ProductRef: "p1", Quantity: 1}},
		Address:       testAddress(),
		PaymentMethod: "online",
	})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Nil(t, o)
	require.Len(t, env.orders.markedFailed, 1)
	stored := env.orders.byID[env.orders.markedFailed[0]]
	require.NotNil(t, stored)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, PaymentFailed, stored.PaymentStatus)
	assert.Empty(t, env.events.events, "failed setup must not emit a created event")
}

func TestPlaceOrder_CreateError(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(10), 5)
	env := newTestEnv(t, p1)
	env.orders.createErr = errors.New("db write failed")

	_, err := env.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OwnerID:       "u1",
		Items:         []CartItem{{ProductRef: "p1", Quantity: 1}},
		Address:       testAddress(),
		PaymentMethod: "cash",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestPlaceOrder_SnapshotsLineItems(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("12.50"), 5)
	env := newTestEnv(t, p1)

	o, err := env.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OwnerID:       "u1",
		Items:         []CartItem{{ProductRef: "p1", Quantity: 3}},
		Address:       testAddress(),
		PaymentMethod: "cash",
	})

	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	line := o.Items[0]
	assert.Equal(t, "p1", line.ProductRef)
	assert.Equal(t, "Widget", line.Name)
	assert.True(t, decimal.RequireFromString("12.50").Equal(line.Price))
	assert.Equal(t, 3, line.Quantity)
	assert.Equal(t, "thumb.jpg", line.Image)
}

func placeOnlineOrder(t *testing.T, env *testEnv) *Order {
	t.Helper()
	p := newTestProduct("p1", "Widget", decimal.NewFromInt(100), 5)
	env.svc.cart = NewCartValidator(newCatalogRepo(p))
	o, err := env.svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OwnerID:       "u1",
		Items:         []CartItem{{ProductRef: "p1", Quantity: 1}},
		Address:       testAddress(),
		PaymentMethod: "online",
	})
	require.NoError(t, err)
	return o
}

func TestVerifyPayment_InvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	o := placeOnlineOrder(t, env)

	_, err := env.svc.VerifyPayment(context.Background(), VerifyPaymentRequest{
		OwnerID:          "u1",
		OrderID:          o.ID,
		GatewayOrderRef:  o.ExternalPaymentRef,
		GatewayPaymentID: "pay_1",
		Signature:        "deadbeef",
	})

	require.ErrorIs(t, err, payment.ErrInvalidSignature)
	assert.Zero(t, env.orders.confirmCalled, "signature must be checked before any lookup")
}

func TestVerifyPayment_Valid(t *testing.T) {
	env := newTestEnv(t)
	o := placeOnlineOrder(t, env)

	sig := payment.Sign(testSecret, o.ExternalPaymentRef, "pay_1")
	got, err := env.svc.VerifyPayment(context.Background(), VerifyPaymentRequest{
		OwnerID:          "u1",
		OrderID:          o.ID,
		GatewayOrderRef:  o.ExternalPaymentRef,
		GatewayPaymentID: "pay_1",
		Signature:        sig,
	})

	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.Equal(t, PaymentPaid, got.PaymentStatus)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, "pay_1", got.GatewayTransactionID)
	require.NotNil(t, got.PaidAt)

	paid := false
	for _, evt := range env.events.events {
		if evt.Type == EventPaid {
			paid = true
		}
	}
	assert.True(t, paid)
}

func TestVerifyPayment_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	o := placeOnlineOrder(t, env)

	sig := payment.Sign(testSecret, o.ExternalPaymentRef, "pay_1")
	req := VerifyPaymentRequest{
		OwnerID:          "u1",
		OrderID:          o.ID,
		GatewayOrderRef:  o.ExternalPaymentRef,
		GatewayPaymentID: "pay_1",
		Signature:        sig,
	}

	first, err := env.svc.VerifyPayment(context.Background(), req)
	require.NoError(t, err)
	second, err := env.svc.VerifyPayment(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, second.IsPaid)
	assert.Equal(t, first.PaidAt, second.PaidAt)
	assert.Equal(t, first.Status, second.Status)
}

func TestVerifyPayment_WrongOwner(t *testing.T) {
	env := newTestEnv(t)
	o := placeOnlineOrder(t, env)

	sig := payment.Sign(testSecret, o.ExternalPaymentRef, "pay_1")
	_, err := env.svc.VerifyPayment(context.Background(), VerifyPaymentRequest{
		OwnerID:          "someone-else",
		OrderID:          o.ID,
		GatewayOrderRef:  o.ExternalPaymentRef,
		GatewayPaymentID: "pay_1",
		Signature:        sig,
	})

	require.ErrorIs(t, err, ErrNotFound)
}

func TestTransition_Delivered(t *testing.T) {
	env := newTestEnv(t)
	o := placeOnlineOrder(t, env)

	got, err := env.svc.Transition(context.Background(), o.ID, "delivered")

	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
	assert.True(t, got.IsDelivered)
	require.NotNil(t, got.DeliveredAt)
	assert.True(t, got.IsPaid, "delivery implies payment collected")
	assert.Equal(t, PaymentPaid, got.PaymentStatus)
	require.NotNil(t, got.PaidAt)
}

func TestTransition_CancelledClearsDeliveryMarkers(t *testing.T) {
	env := newTestEnv(t)
	o := placeOnlineOrder(t, env)

	_, err := env.svc.Transition(context.Background(), o.ID, "delivered")
	require.NoError(t, err)

	got, err := env.svc.Transition(context.Background(), o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.False(t, got.IsDelivered)
	assert.Nil(t, got.DeliveredAt)
}

func TestTransition_BackwardAllowed(t *testing.T) {
	env := newTestEnv(t)
	o := placeOnlineOrder(t, env)

	_, err := env.svc.Transition(context.Background(), o.ID, "shipped")
	require.NoError(t, err)

	got, err := env.svc.Transition(context.Background(), o.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestTransition_InvalidStatus(t *testing.T) {
	env := newTestEnv(t)
	o := placeOnlineOrder(t, env)

	_, err := env.svc.Transition(context.Background(), o.ID, "teleported")

	var stErr *InvalidStatusError
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, "teleported", stErr.Value)
}

func TestTransition_UnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Transition(context.Background(), "missing", "shipped")
	require.ErrorIs(t, err, ErrNotFound)
}
