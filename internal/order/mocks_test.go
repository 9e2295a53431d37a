package order

import (
	"context"
	"time"

	"vinmarket-be/internal/address"
	"vinmarket-be/internal/cart"
	"vinmarket-be/internal/payment"
	"vinmarket-be/internal/shipping"
	"vinmarket-be/internal/wine"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, o *Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, actor Actor, filter ListFilter) (*Page, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Page), args.Error(1)
}

func (m *MockRepository) Transition(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) SetShipment(ctx context.Context, id uuid.UUID, s Shipment) error {
	return m.Called(ctx, id, s).Error(0)
}

func (m *MockRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) MarkFulfilled(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) UpdatePayment(ctx context.Context, id uuid.UUID, status payment.Status, paymentID *string) error {
	return m.Called(ctx, id, status, paymentID).Error(0)
}

func (m *MockRepository) ListExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]*Order, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*cart.Cart, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) LockBuyerCarts(ctx context.Context, buyerID uuid.UUID) error {
	return m.Called(ctx, buyerID).Error(0)
}

func (m *MockCartRepository) FindCart(ctx context.Context, buyerID, sellerID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, buyerID, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) EnsureCart(ctx context.Context, buyerID, sellerID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, buyerID, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) FindItem(ctx context.Context, cartID, wineID uuid.UUID) (*cart.Item, error) {
	args := m.Called(ctx, cartID, wineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Item), args.Error(1)
}

func (m *MockCartRepository) InsertItem(ctx context.Context, item *cart.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockCartRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return m.Called(ctx, itemID, quantity).Error(0)
}

func (m *MockCartRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return m.Called(ctx, itemID).Error(0)
}

func (m *MockCartRepository) RecalculateTotal(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, int, error) {
	args := m.Called(ctx, cartID)
	return args.Get(0).(decimal.Decimal), args.Int(1), args.Error(2)
}

func (m *MockCartRepository) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	return m.Called(ctx, cartID).Error(0)
}

func (m *MockCartRepository) DeleteByBuyer(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, buyerID)
	return args.Get(0).(int64), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) CheckAvailable(ctx context.Context, wineID uuid.UUID, requested int) (*wine.Wine, error) {
	args := m.Called(ctx, wineID, requested)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wine.Wine), args.Error(1)
}

func (m *MockLedger) ValidatePurchase(ctx context.Context, buyerID, wineID uuid.UUID, requested int) (*wine.Wine, error) {
	args := m.Called(ctx, buyerID, wineID, requested)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wine.Wine), args.Error(1)
}

func (m *MockLedger) Decrement(ctx context.Context, wineID uuid.UUID, qty int) (int, error) {
	args := m.Called(ctx, wineID, qty)
	return args.Int(0), args.Error(1)
}

type MockAddressService struct {
	mock.Mock
}

func (m *MockAddressService) List(ctx context.Context) ([]*address.ShippingAddress, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*address.ShippingAddress), args.Error(1)
}

func (m *MockAddressService) Create(ctx context.Context, input address.CreateAddressInput) (*address.ShippingAddress, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*address.ShippingAddress), args.Error(1)
}

func (m *MockAddressService) Resolve(ctx context.Context, ownerID uuid.UUID, id *uuid.UUID, input *address.CreateAddressInput) (*address.ShippingAddress, error) {
	args := m.Called(ctx, ownerID, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*address.ShippingAddress), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Supports(name payment.Name) bool {
	return m.Called(name).Bool(0)
}

func (m *MockGateway) ProcessPayment(ctx context.Context, name payment.Name, req payment.Request) (*payment.Result, error) {
	args := m.Called(ctx, name, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Result), args.Error(1)
}

func (m *MockGateway) RefundPayment(ctx context.Context, name payment.Name, req payment.RefundRequest) (*payment.RefundResult, error) {
	args := m.Called(ctx, name, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RefundResult), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) SavePayment(ctx context.Context, p *payment.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentRepository) UpdateStatusByReference(ctx context.Context, provider payment.Name, reference string, status payment.Status) (bool, error) {
	args := m.Called(ctx, provider, reference, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) SaveCallback(ctx context.Context, cb *payment.Callback) (int64, bool, error) {
	args := m.Called(ctx, cb)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockPaymentRepository) MarkCallbackProcessed(ctx context.Context, callbackID int64) error {
	return m.Called(ctx, callbackID).Error(0)
}

func (m *MockPaymentRepository) MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error {
	return m.Called(ctx, callbackID, reason).Error(0)
}

type MockLabels struct {
	mock.Mock
}

func (m *MockLabels) Generate(ctx context.Context, req shipping.LabelRequest) (*shipping.Label, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipping.Label), args.Error(1)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) Write(ctx context.Context, aggregateID uuid.UUID, eventType string, data any) error {
	return m.Called(ctx, aggregateID, eventType, data).Error(0)
}

// inlineTx runs fn without a database.
type inlineTx struct{}

func (inlineTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
