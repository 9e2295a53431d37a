package rest

import (
	"context"
	"time"

	"vinmarket-be/internal/address"
	"vinmarket-be/internal/cart"
	"vinmarket-be/internal/order"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, actor order.Actor, in order.CheckoutInput) (*order.CheckoutResult, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.CheckoutResult), args.Error(1)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, actor order.Actor, in order.CreateInput) (*order.CheckoutResult, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.CheckoutResult), args.Error(1)
}

func (m *MockOrderService) GetOrders(ctx context.Context, actor order.Actor, filter order.ListFilter) (*order.Page, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Page), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, actor order.Actor, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, actor order.Actor, id uuid.UUID, upd order.StatusUpdate) (*order.Order, error) {
	args := m.Called(ctx, actor, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, actor order.Actor, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ProcessPayment(ctx context.Context, actor order.Actor, id uuid.UUID, providerData map[string]any) (*order.PaymentResult, error) {
	args := m.Called(ctx, actor, id, providerData)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.PaymentResult), args.Error(1)
}

func (m *MockOrderService) ApplyPaymentOutcome(ctx context.Context, id uuid.UUID, out order.PaymentOutcome) (*order.Order, error) {
	args := m.Called(ctx, id, out)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ExpireUnpaid(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	args := m.Called(ctx, ttl, limit)
	return args.Int(0), args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) view(args mock.Arguments) (*cart.View, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.View), args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, buyerID uuid.UUID) (*cart.View, error) {
	return m.view(m.Called(ctx, buyerID))
}

func (m *MockCartService) AddItem(ctx context.Context, buyerID, wineID uuid.UUID, quantity int) (*cart.View, error) {
	return m.view(m.Called(ctx, buyerID, wineID, quantity))
}

func (m *MockCartService) UpdateItem(ctx context.Context, buyerID, wineID uuid.UUID, quantity int) (*cart.View, error) {
	return m.view(m.Called(ctx, buyerID, wineID, quantity))
}

func (m *MockCartService) RemoveItem(ctx context.Context, buyerID, wineID uuid.UUID) (*cart.View, error) {
	return m.view(m.Called(ctx, buyerID, wineID))
}

func (m *MockCartService) Clear(ctx context.Context, buyerID uuid.UUID) (*cart.View, error) {
	return m.view(m.Called(ctx, buyerID))
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

// memCache is an in-memory cache.Cache.
type memCache struct {
	data map[string]string
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *memCache) Get(_ context.Context, key string) (string, error) {
	return m.data[key], nil
}

func (m *memCache) GenerateKey(operation string, parts ...string) string {
	key := "vinmarket:" + operation
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (m *memCache) Ping(context.Context) error { return nil }
func (m *memCache) Close() error               { return nil }

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }
