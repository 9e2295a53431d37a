package callback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"vinmarket-be/internal/metrics"
	"vinmarket-be/internal/order"
	"vinmarket-be/internal/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "gateway-secret"

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

type inlineTx struct{}

func (inlineTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func signedFields(orderID uuid.UUID, esito string) url.Values {
	fields := map[string]string{
		"alias":    "ALIAS_WEB_00001",
		"codTrans": "WM-20260301-120000-000-000001-1767262210000",
		"divisa":   "EUR",
		"importo":  "5100",
		"esito":    esito,
		"orderId":  orderID.String(),
	}
	fields["mac"] = payment.CallbackDigest(fields, testSecret)

	v := url.Values{}
	for k, val := range fields {
		v.Set(k, val)
	}
	return v
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

type setup struct {
	orders   *MockOrderService
	payments *MockPaymentRepository
	metrics  *metrics.Registry
	h        *Handler
}

func newSetup() *setup {
	s := &setup{
		orders:   new(MockOrderService),
		payments: new(MockPaymentRepository),
		metrics:  metrics.NewRegistry(),
	}
	s.h = NewHandler(s.orders, s.payments, inlineTx{}, testSecret, "https://shop.test/", s.metrics)
	return s
}

func TestHandler_Callback(t *testing.T) {
	orderID := uuid.New()
	codTrans := "WM-20260301-120000-000-000001-1767262210000"

	t.Run("OK via POST pays the order", func(t *testing.T) {
		s := newSetup()
		form := signedFields(orderID, "OK")

		s.payments.On("SaveCallback", mock.Anything, mock.MatchedBy(func(cb *payment.Callback) bool {
			return cb.SignatureValid && cb.EventID == codTrans+":OK" && cb.OrderRef == orderID.String()
		})).Return(int64(7), false, nil)
		s.orders.On("ApplyPaymentOutcome", mock.Anything, orderID, order.PaymentOutcome{
			Status:        order.StatusPaid,
			PaymentStatus: payment.StatusCompleted,
			TransactionID: codTrans,
		}).Return(&order.Order{ID: orderID, Status: order.StatusPaid}, nil)
		s.payments.On("UpdateStatusByReference", mock.Anything, payment.BankGateway, codTrans, payment.StatusCompleted).
			Return(true, nil)
		s.payments.On("MarkCallbackProcessed", mock.Anything, int64(7)).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/payments/gateway/callback", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()

		s.h.Callback(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode(t, rec).Success)
		assert.Equal(t, uint64(1), s.metrics.Counter(MetricApplied).Load())
		s.orders.AssertExpectations(t)
		s.payments.AssertExpectations(t)
	})

	t.Run("KO via GET cancels the order", func(t *testing.T) {
		s := newSetup()
		q := signedFields(orderID, "KO")

		s.payments.On("SaveCallback", mock.Anything, mock.Anything).Return(int64(8), false, nil)
		s.orders.On("ApplyPaymentOutcome", mock.Anything, orderID, order.PaymentOutcome{
			Status:        order.StatusCancelled,
			PaymentStatus: payment.StatusFailed,
			TransactionID: codTrans,
		}).Return(&order.Order{ID: orderID}, nil)
		s.payments.On("UpdateStatusByReference", mock.Anything, payment.BankGateway, codTrans, payment.StatusFailed).
			Return(false, nil)
		s.payments.On("MarkCallbackProcessed", mock.Anything, int64(8)).Return(nil)

		rec := httptest.NewRecorder()
		s.h.Callback(rec, httptest.NewRequest(http.MethodGet, "/payments/gateway/callback?"+q.Encode(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode(t, rec).Success)
		s.orders.AssertExpectations(t)
	})

	t.Run("Unknown result code is a failure", func(t *testing.T) {
		s := newSetup()
		q := signedFields(orderID, "ANNULLO")

		s.payments.On("SaveCallback", mock.Anything, mock.Anything).Return(int64(9), false, nil)
		s.orders.On("ApplyPaymentOutcome", mock.Anything, orderID, mock.MatchedBy(func(o order.PaymentOutcome) bool {
			return o.PaymentStatus == payment.StatusFailed && o.Status == order.StatusCancelled
		})).Return(&order.Order{ID: orderID}, nil)
		s.payments.On("UpdateStatusByReference", mock.Anything, payment.BankGateway, codTrans, payment.StatusFailed).
			Return(true, nil)
		s.payments.On("MarkCallbackProcessed", mock.Anything, int64(9)).Return(nil)

		rec := httptest.NewRecorder()
		s.h.Callback(rec, httptest.NewRequest(http.MethodGet, "/payments/gateway/callback?"+q.Encode(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		s.orders.AssertExpectations(t)
	})

	t.Run("Invalid signature is acknowledged but not applied", func(t *testing.T) {
		s := newSetup()
		q := signedFields(orderID, "OK")
		q.Set("importo", "1")

		s.payments.On("SaveCallback", mock.Anything, mock.MatchedBy(func(cb *payment.Callback) bool {
			return !cb.SignatureValid && strings.HasPrefix(cb.EventID, "unverified:")
		})).Return(int64(10), false, nil)
		s.payments.On("MarkCallbackFailed", mock.Anything, int64(10), "invalid signature").Return(nil)

		rec := httptest.NewRecorder()
		s.h.Callback(rec, httptest.NewRequest(http.MethodGet, "/payments/gateway/callback?"+q.Encode(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decode(t, rec)
		assert.False(t, resp.Success)
		assert.Equal(t, payment.ErrInvalidSignature.Error(), resp.Error)
		assert.Equal(t, uint64(1), s.metrics.Counter(MetricInvalidSignature).Load())
		s.orders.AssertNotCalled(t, "ApplyPaymentOutcome", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Duplicate is acknowledged once", func(t *testing.T) {
		s := newSetup()
		q := signedFields(orderID, "OK")

		s.payments.On("SaveCallback", mock.Anything, mock.Anything).Return(int64(0), true, nil)

		rec := httptest.NewRecorder()
		s.h.Callback(rec, httptest.NewRequest(http.MethodGet, "/payments/gateway/callback?"+q.Encode(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decode(t, rec)
		assert.True(t, resp.Success)
		assert.True(t, resp.Duplicate)
		s.orders.AssertNotCalled(t, "ApplyPaymentOutcome", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown order still answers 200", func(t *testing.T) {
		s := newSetup()
		q := signedFields(orderID, "OK")

		s.payments.On("SaveCallback", mock.Anything, mock.Anything).Return(int64(11), false, nil)
		s.orders.On("ApplyPaymentOutcome", mock.Anything, orderID, mock.Anything).Return(nil, order.ErrOrderNotFound)
		s.payments.On("MarkCallbackFailed", mock.Anything, int64(11), order.ErrOrderNotFound.Error()).Return(nil)

		rec := httptest.NewRecorder()
		s.h.Callback(rec, httptest.NewRequest(http.MethodGet, "/payments/gateway/callback?"+q.Encode(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decode(t, rec)
		assert.False(t, resp.Success)
		assert.Equal(t, uint64(1), s.metrics.Counter(MetricFailed).Load())
	})

	t.Run("Storage failure still answers 200", func(t *testing.T) {
		s := newSetup()
		q := signedFields(orderID, "OK")

		s.payments.On("SaveCallback", mock.Anything, mock.Anything).Return(int64(0), false, errors.New("db down"))

		rec := httptest.NewRecorder()
		s.h.Callback(rec, httptest.NewRequest(http.MethodGet, "/payments/gateway/callback?"+q.Encode(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, decode(t, rec).Success)
	})
}

func TestHandler_Landing(t *testing.T) {
	orderID := uuid.New()
	s := newSetup()

	landing := func(h http.HandlerFunc, target string) LandingResponse {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, target, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LandingResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp
	}

	t.Run("Signed success", func(t *testing.T) {
		q := signedFields(orderID, "OK")
		resp := landing(s.h.Success, "/payments/gateway/success?"+q.Encode())
		assert.Equal(t, "https://shop.test/orders/"+orderID.String()+"?payment=success", resp.RedirectURL)
	})

	t.Run("Cancel without signature", func(t *testing.T) {
		resp := landing(s.h.Cancel, "/payments/gateway/cancel?orderId="+orderID.String())
		assert.Equal(t, "https://shop.test/orders/"+orderID.String()+"?payment=cancelled", resp.RedirectURL)
	})

	t.Run("Error", func(t *testing.T) {
		resp := landing(s.h.Error, "/payments/gateway/error")
		assert.Equal(t, "https://shop.test/orders?payment=error", resp.RedirectURL)
	})

	t.Run("Tampered signature", func(t *testing.T) {
		q := signedFields(orderID, "OK")
		q.Set("mac", "deadbeef")
		resp := landing(s.h.Success, "/payments/gateway/success?"+q.Encode())
		assert.Equal(t,
			"https://shop.test/orders/"+orderID.String()+"?payment=error&reason=invalid_signature",
			resp.RedirectURL,
		)
	})
}
