package order

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"vinmarket-be/internal/address"
	"vinmarket-be/internal/cart"
	"vinmarket-be/internal/db"
	"vinmarket-be/internal/inventory"
	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/outbox"
	"vinmarket-be/internal/payment"
	"vinmarket-be/internal/shipping"
	"vinmarket-be/internal/utils"
	"vinmarket-be/internal/wine"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	EventConfirmed     = "order.confirmed"
	EventPaid          = "order.paid"
	EventPaymentFailed = "order.payment_failed"
	EventStatusChanged = "order.status_changed"
	EventCancelled     = "order.cancelled"
	EventRefunded      = "order.refunded"
	EventExpired       = "order.expired"
)

type Service interface {
	// Checkout confirms every non-empty seller cart of the buyer into one
	// order per seller, sharing a batch id. Nothing is confirmed when any
	// line fails validation.
	Checkout(ctx context.Context, actor Actor, in CheckoutInput) (*CheckoutResult, error)
	// CreateOrder confirms orders straight from a list of wines at their
	// live price.
	CreateOrder(ctx context.Context, actor Actor, in CreateInput) (*CheckoutResult, error)
	GetOrders(ctx context.Context, actor Actor, filter ListFilter) (*Page, error)
	GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*Order, error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, upd StatusUpdate) (*Order, error)
	CancelOrder(ctx context.Context, actor Actor, id uuid.UUID) (*Order, error)
	ProcessPayment(ctx context.Context, actor Actor, id uuid.UUID, providerData map[string]any) (*PaymentResult, error)
	// ApplyPaymentOutcome records an asynchronous provider result. Applying
	// the same outcome twice is a no-op.
	ApplyPaymentOutcome(ctx context.Context, id uuid.UUID, out PaymentOutcome) (*Order, error)
	// ExpireUnpaid cancels confirmed orders still awaiting payment after ttl
	// and returns how many were expired.
	ExpireUnpaid(ctx context.Context, ttl time.Duration, limit int) (int, error)
}

type Deps struct {
	Repo        Repository
	Carts       cart.Repository
	Ledger      inventory.Ledger
	Addresses   address.Service
	Payments    payment.Gateway
	PaymentRepo payment.Repository
	Labels      shipping.LabelGenerator
	Events      outbox.Writer
	Tx          db.Transactor
	Currency    string
	Tracer      trace.Tracer
}

type service struct {
	repo        Repository
	carts       cart.Repository
	ledger      inventory.Ledger
	addresses   address.Service
	payments    payment.Gateway
	paymentRepo payment.Repository
	labels      shipping.LabelGenerator
	events      outbox.Writer
	tx          db.Transactor
	currency    string
	tracer      trace.Tracer

	now         func() time.Time
	orderNumber func() string
}

func NewService(d Deps) Service {
	tracer := d.Tracer
	if tracer == nil {
		tracer = otel.Tracer("vinmarket-be/order")
	}

	return &service{
		repo:        d.Repo,
		carts:       d.Carts,
		ledger:      d.Ledger,
		addresses:   d.Addresses,
		payments:    d.Payments,
		paymentRepo: d.PaymentRepo,
		labels:      d.Labels,
		events:      d.Events,
		tx:          d.Tx,
		currency:    d.Currency,
		tracer:      tracer,
		now:         time.Now,
		orderNumber: utils.GenerateOrderNumber,
	}
}

func (s *service) Checkout(ctx context.Context, actor Actor, in CheckoutInput) (*CheckoutResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout",
		trace.WithAttributes(attribute.String("buyer.id", actor.ID.String())),
	)
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "order"),
		zap.String("method", "Checkout"),
		zap.String("buyer_id", actor.ID.String()),
		zap.String("provider", string(in.PaymentProvider)),
	)

	if !s.payments.Supports(in.PaymentProvider) {
		return nil, payment.ErrUnsupportedProvider
	}
	if in.ShippingAddressID == nil && in.ShippingAddress == nil {
		return nil, ErrShippingAddressRequired
	}

	var result *CheckoutResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.carts.LockBuyerCarts(ctx, actor.ID); err != nil {
			return err
		}

		carts, err := s.carts.ListByBuyer(ctx, actor.ID)
		if err != nil {
			return err
		}
		carts = nonEmpty(carts)
		if len(carts) == 0 {
			return ErrEmptyCart
		}

		var lines []cart.Item
		for _, c := range carts {
			lines = append(lines, c.Items...)
		}
		// Listings are locked in id order so concurrent checkouts queue
		// instead of deadlocking.
		sort.Slice(lines, func(i, j int) bool {
			return lines[i].WineID.String() < lines[j].WineID.String()
		})
		for _, it := range lines {
			if _, err := s.ledger.ValidatePurchase(ctx, actor.ID, it.WineID, it.Quantity); err != nil {
				return unavailable(it.WineID, it.WineTitle, err)
			}
		}

		result, err = s.confirm(ctx, actor, carts, in.ShippingAddressID, in.ShippingAddress, in.PaymentProvider)
		if err != nil {
			return err
		}

		for _, c := range carts {
			if err := s.carts.DeleteCart(ctx, c.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Info("checkout rejected", zap.Error(err))
		return nil, err
	}

	log.Info("checkout completed",
		zap.String("batch_id", result.BatchID.String()),
		zap.Int("orders", result.TotalOrders),
		zap.String("grand_total", result.GrandTotal.StringFixed(2)),
	)
	return result, nil
}

func (s *service) CreateOrder(ctx context.Context, actor Actor, in CreateInput) (*CheckoutResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateOrder")
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "order"),
		zap.String("method", "CreateOrder"),
		zap.String("buyer_id", actor.ID.String()),
	)

	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if !s.payments.Supports(in.PaymentProvider) {
		return nil, payment.ErrUnsupportedProvider
	}
	if in.ShippingAddressID == nil && in.ShippingAddress == nil {
		return nil, ErrShippingAddressRequired
	}

	quantities := map[uuid.UUID]int{}
	var seen []uuid.UUID
	for _, line := range in.Items {
		if line.Quantity < 1 {
			return nil, cart.ErrInvalidQuantity
		}
		if _, ok := quantities[line.WineID]; !ok {
			seen = append(seen, line.WineID)
		}
		quantities[line.WineID] += line.Quantity
	}

	var result *CheckoutResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked := append([]uuid.UUID(nil), seen...)
		sort.Slice(locked, func(i, j int) bool { return locked[i].String() < locked[j].String() })

		listings := make(map[uuid.UUID]*wine.Wine, len(locked))
		for _, id := range locked {
			w, err := s.ledger.ValidatePurchase(ctx, actor.ID, id, quantities[id])
			if err != nil {
				title := id.String()
				if w != nil {
					title = w.Title
				}
				return unavailable(id, title, err)
			}
			listings[id] = w
		}

		var (
			carts    []*cart.Cart
			bySeller = map[uuid.UUID]*cart.Cart{}
		)
		for _, id := range seen {
			w := listings[id]
			c, ok := bySeller[w.SellerID]
			if !ok {
				c = &cart.Cart{BuyerID: actor.ID, SellerID: w.SellerID, SellerName: w.SellerName}
				bySeller[w.SellerID] = c
				carts = append(carts, c)
			}
			c.Items = append(c.Items, cart.Item{
				WineID:    id,
				WineTitle: w.Title,
				Quantity:  quantities[id],
				UnitPrice: w.Price,
			})
		}

		var err error
		result, err = s.confirm(ctx, actor, carts, in.ShippingAddressID, in.ShippingAddress, in.PaymentProvider)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Info("create order rejected", zap.Error(err))
		return nil, err
	}

	log.Info("orders created",
		zap.String("batch_id", result.BatchID.String()),
		zap.Int("orders", result.TotalOrders),
	)
	return result, nil
}

// confirm resolves the shipping address and turns every cart into a
// CONFIRMED order under one batch id. Runs inside the caller's transaction.
func (s *service) confirm(
	ctx context.Context,
	actor Actor,
	carts []*cart.Cart,
	addressID *uuid.UUID,
	addressInput *address.CreateAddressInput,
	provider payment.Name,
) (*CheckoutResult, error) {
	addr, err := s.addresses.Resolve(ctx, actor.ID, addressID, addressInput)
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{
		BatchID:    uuid.New(),
		Orders:     make([]*Order, 0, len(carts)),
		GrandTotal: decimal.Zero,
	}

	used := make(map[string]struct{}, len(carts))
	for _, c := range carts {
		number := s.orderNumber()
		for {
			if _, dup := used[number]; !dup {
				break
			}
			number = s.orderNumber()
		}
		used[number] = struct{}{}

		o := confirmCart(c, result.BatchID, addr.ID, provider, s.currency, number)
		if err := s.repo.Create(ctx, o); err != nil {
			return nil, err
		}
		if err := s.emit(ctx, o, EventConfirmed, nil); err != nil {
			return nil, err
		}

		result.Orders = append(result.Orders, o)
		result.GrandTotal = result.GrandTotal.Add(o.TotalAmount)
	}
	result.TotalOrders = len(result.Orders)

	return result, nil
}

// confirmCart prices a seller cart into a CONFIRMED order. Unit prices are
// the ones captured on the cart lines.
func confirmCart(
	c *cart.Cart,
	batchID, addressID uuid.UUID,
	provider payment.Name,
	currency, orderNumber string,
) *Order {
	items := make([]Item, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, Item{
			ID:        uuid.New(),
			WineID:    it.WineID,
			WineTitle: it.WineTitle,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	subtotal := c.Subtotal()
	fee := shipping.Cost(subtotal, c.Bottles())

	return &Order{
		ID:                uuid.New(),
		OrderNumber:       orderNumber,
		BatchID:           batchID,
		BuyerID:           c.BuyerID,
		SellerID:          c.SellerID,
		SellerName:        c.SellerName,
		Status:            StatusConfirmed,
		Subtotal:          subtotal,
		ShippingCost:      fee,
		TotalAmount:       subtotal.Add(fee),
		Currency:          currency,
		PaymentProvider:   provider,
		PaymentStatus:     payment.StatusPending,
		ShippingAddressID: &addressID,
		Items:             items,
	}
}

func nonEmpty(carts []*cart.Cart) []*cart.Cart {
	res := carts[:0]
	for _, c := range carts {
		if len(c.Items) > 0 {
			res = append(res, c)
		}
	}
	return res
}

// unavailable wraps listing validation failures with the offending wine.
// Other errors pass through untouched.
func unavailable(wineID uuid.UUID, title string, err error) error {
	switch {
	case errors.Is(err, inventory.ErrInsufficientQuantity),
		errors.Is(err, inventory.ErrListingUnavailable),
		errors.Is(err, inventory.ErrCannotBuyOwnListing),
		errors.Is(err, wine.ErrWineNotFound):
		return &ItemUnavailableError{WineID: wineID, Title: title, Cause: err}
	default:
		return err
	}
}

func (s *service) GetOrders(ctx context.Context, actor Actor, filter ListFilter) (*Page, error) {
	return s.repo.List(ctx, actor, filter)
}

func (s *service) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.isParticipant(actor) {
		logger.FromCtx(ctx).Warn("order access denied",
			zap.String("layer", "order"),
			zap.String("order_id", id.String()),
			zap.String("actor_id", actor.ID.String()),
		)
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, upd StatusUpdate) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", id.String()),
		attribute.String("order.status", string(upd.Status)),
	))
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "order"),
		zap.String("method", "UpdateStatus"),
		zap.String("order_id", id.String()),
		zap.String("target", string(upd.Status)),
	)

	if _, ok := transitions[upd.Status]; !ok {
		return nil, ErrInvalidStatus
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && current.SellerID != actor.ID {
		log.Warn("status update denied", zap.String("actor_id", actor.ID.String()))
		return nil, ErrForbidden
	}

	if upd.Status == StatusCancelled {
		return s.CancelOrder(ctx, actor, id)
	}

	if !CanTransition(current.Status, upd.Status) {
		log.Info("transition rejected", zap.String("from", string(current.Status)))
		return nil, ErrInvalidStatusTransition
	}

	var shipment Shipment
	if upd.Status == StatusShipped {
		shipment = Shipment{TrackingNumber: upd.TrackingNumber, Carrier: upd.Carrier}
		if upd.TrackingNumber == nil || *upd.TrackingNumber == "" {
			shipment = s.generateLabel(ctx, current, upd.Carrier)
		}
	}

	var updated *Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		from := o.Status
		if !CanTransition(from, upd.Status) {
			return ErrInvalidStatusTransition
		}

		ok, err := s.repo.Transition(ctx, id, from, upd.Status)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidStatusTransition
		}
		o.Status = upd.Status

		switch upd.Status {
		case StatusShipped:
			if shipment.TrackingNumber != nil || shipment.Carrier != nil {
				if err := s.repo.SetShipment(ctx, id, shipment); err != nil {
					return err
				}
				applyShipment(o, shipment)
			}
		case StatusDelivered:
			if err := s.repo.MarkDelivered(ctx, id); err != nil {
				return err
			}
			now := s.now()
			o.DeliveredAt = &now
			if err := s.fulfill(ctx, o, true); err != nil {
				return err
			}
		}

		if err := s.emit(ctx, o, EventStatusChanged, map[string]any{"from": from}); err != nil {
			return err
		}

		updated = o
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Info("status update failed", zap.Error(err))
		return nil, err
	}

	log.Info("order status updated")
	return updated, nil
}

// generateLabel asks the carrier for a label. Failures are logged and an
// empty shipment is returned so the transition can still proceed.
func (s *service) generateLabel(ctx context.Context, o *Order, carrier *string) Shipment {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "order"),
		zap.String("method", "generateLabel"),
		zap.String("order_id", o.ID.String()),
	)

	fallback := Shipment{Carrier: carrier}
	if s.labels == nil {
		return fallback
	}

	var country string
	if o.ShippingAddressID != nil {
		addr, err := s.addresses.Resolve(ctx, o.BuyerID, o.ShippingAddressID, nil)
		if err != nil {
			log.Warn("shipping address lookup failed", zap.Error(err))
		} else {
			country = addr.Country
		}
	}

	label, err := s.labels.Generate(ctx, shipping.LabelRequest{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Country:     country,
		Bottles:     o.Bottles(),
	})
	if err != nil {
		log.Warn("label generation failed, shipping without tracking", zap.Error(err))
		return fallback
	}

	eta := label.EstimatedDelivery
	return Shipment{
		TrackingNumber:    utils.StrPtr(label.TrackingNumber),
		LabelURL:          utils.StrPtr(label.LabelURL),
		Carrier:           utils.StrPtr(label.Carrier),
		EstimatedDelivery: &eta,
	}
}

func applyShipment(o *Order, sh Shipment) {
	if sh.TrackingNumber != nil {
		o.TrackingNumber = sh.TrackingNumber
	}
	if sh.LabelURL != nil {
		o.ShippingLabelURL = sh.LabelURL
	}
	if sh.Carrier != nil {
		o.Carrier = sh.Carrier
	}
	if sh.EstimatedDelivery != nil {
		o.EstimatedDelivery = sh.EstimatedDelivery
	}
}

// fulfill commits the order's items as sold, once per order. With strict
// set a stock shortfall aborts the caller's transaction; otherwise it is
// logged for manual reconciliation since the buyer has already paid.
func (s *service) fulfill(ctx context.Context, o *Order, strict bool) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "order"),
		zap.String("method", "fulfill"),
		zap.String("order_id", o.ID.String()),
	)

	flipped, err := s.repo.MarkFulfilled(ctx, o.ID)
	if err != nil {
		return err
	}
	if !flipped {
		log.Info("order already fulfilled")
		return nil
	}

	for _, it := range o.Items {
		remaining, err := s.ledger.Decrement(ctx, it.WineID, it.Quantity)
		if err != nil {
			if !strict && errors.Is(err, inventory.ErrInsufficientQuantity) {
				log.Error("stock shortfall on paid order",
					zap.String("wine_id", it.WineID.String()),
					zap.Int("quantity", it.Quantity),
					zap.Error(err),
				)
				continue
			}
			return err
		}
		log.Debug("stock decremented",
			zap.String("wine_id", it.WineID.String()),
			zap.Int("remaining", remaining),
		)
	}

	now := s.now()
	o.FulfilledAt = &now
	return nil
}

func (s *service) CancelOrder(ctx context.Context, actor Actor, id uuid.UUID) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.CancelOrder",
		trace.WithAttributes(attribute.String("order.id", id.String())),
	)
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "order"),
		zap.String("method", "CancelOrder"),
		zap.String("order_id", id.String()),
	)

	var cancelled *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !o.isParticipant(actor) {
			return ErrForbidden
		}
		if o.Status == StatusShipped || o.Status == StatusDelivered {
			return ErrCannotCancelShippedOrDelivered
		}
		if !CanTransition(o.Status, StatusCancelled) {
			return ErrInvalidStatusTransition
		}

		ok, err := s.repo.Transition(ctx, id, o.Status, StatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidStatusTransition
		}
		from := o.Status
		o.Status = StatusCancelled

		if err := s.emit(ctx, o, EventCancelled, map[string]any{"from": from}); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Info("cancel rejected", zap.Error(err))
		return nil, err
	}

	log.Info("order cancelled")

	if cancelled.PaymentStatus == payment.StatusCompleted {
		s.refund(ctx, cancelled)
	}
	return cancelled, nil
}

// refund runs after the cancellation committed. A failed refund leaves the
// payment status as it was.
func (s *service) refund(ctx context.Context, o *Order) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "order"),
		zap.String("method", "refund"),
		zap.String("order_id", o.ID.String()),
		zap.String("provider", string(o.PaymentProvider)),
	)

	res, err := s.payments.RefundPayment(ctx, o.PaymentProvider, payment.RefundRequest{
		PaymentID: utils.PtrString(o.PaymentID),
		Amount:    o.TotalAmount,
		Currency:  o.Currency,
	})
	if err != nil || !res.Success {
		reason := ""
		if res != nil {
			reason = res.Error
		}
		log.Error("refund failed, payment needs manual reconciliation",
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdatePayment(ctx, o.ID, payment.StatusRefunded, nil); err != nil {
			return err
		}
		o.PaymentStatus = payment.StatusRefunded
		return s.emit(ctx, o, EventRefunded, map[string]any{"refundId": res.RefundID})
	})
	if err != nil {
		o.PaymentStatus = payment.StatusCompleted
		log.Error("refund succeeded but was not recorded",
			zap.String("refund_id", res.RefundID),
			zap.Error(err),
		)
		return
	}

	log.Info("payment refunded", zap.String("refund_id", res.RefundID))
}

func (s *service) ProcessPayment(ctx context.Context, actor Actor, id uuid.UUID, providerData map[string]any) (*PaymentResult, error) {
	ctx, span := s.tracer.Start(ctx, "order.ProcessPayment",
		trace.WithAttributes(attribute.String("order.id", id.String())),
	)
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "order"),
		zap.String("method", "ProcessPayment"),
		zap.String("order_id", id.String()),
	)

	var out *PaymentResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && o.BuyerID != actor.ID {
			return ErrForbidden
		}
		if o.Status != StatusConfirmed ||
			(o.PaymentStatus != payment.StatusPending && o.PaymentStatus != payment.StatusFailed) {
			return ErrOrderNotPayable
		}

		res, err := s.payments.ProcessPayment(ctx, o.PaymentProvider, payment.Request{
			OrderID:      o.ID,
			OrderNumber:  o.OrderNumber,
			Amount:       o.TotalAmount,
			Currency:     o.Currency,
			ProviderData: providerData,
		})
		if err != nil {
			return err
		}

		raw, err := json.Marshal(providerData)
		if err != nil {
			return err
		}
		if err := s.paymentRepo.SavePayment(ctx, &payment.Payment{
			OrderID:           o.ID,
			Provider:          o.PaymentProvider,
			ExternalReference: res.TransactionID,
			Amount:            o.TotalAmount,
			Currency:          o.Currency,
			Status:            res.Status,
			Fees:              res.Fees,
			RedirectURL:       res.RedirectURL,
			ProviderData:      raw,
		}); err != nil {
			return err
		}

		var txnID *string
		if res.TransactionID != "" {
			txnID = utils.StrPtr(res.TransactionID)
		}

		switch res.Status {
		case payment.StatusCompleted:
			ok, err := s.repo.Transition(ctx, o.ID, StatusConfirmed, StatusPaid)
			if err != nil {
				return err
			}
			if !ok {
				return ErrInvalidStatusTransition
			}
			if err := s.repo.UpdatePayment(ctx, o.ID, payment.StatusCompleted, txnID); err != nil {
				return err
			}
			o.Status = StatusPaid
			o.PaymentStatus = payment.StatusCompleted
			o.PaymentID = txnID
			if err := s.emit(ctx, o, EventPaid, nil); err != nil {
				return err
			}

		case payment.StatusPending:
			if err := s.repo.UpdatePayment(ctx, o.ID, payment.StatusPending, txnID); err != nil {
				return err
			}
			o.PaymentStatus = payment.StatusPending
			if txnID != nil {
				o.PaymentID = txnID
			}

		default:
			if err := s.repo.UpdatePayment(ctx, o.ID, payment.StatusFailed, nil); err != nil {
				return err
			}
			o.PaymentStatus = payment.StatusFailed
			if err := s.emit(ctx, o, EventPaymentFailed, map[string]any{"error": res.Error}); err != nil {
				return err
			}
		}

		out = &PaymentResult{Order: o, Result: res}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Info("payment rejected", zap.Error(err))
		return nil, err
	}

	log.Info("payment processed",
		zap.String("status", string(out.Result.Status)),
		zap.Bool("redirect", out.Result.RequiresRedirect),
	)
	return out, nil
}

func (s *service) ApplyPaymentOutcome(ctx context.Context, id uuid.UUID, out PaymentOutcome) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.ApplyPaymentOutcome", trace.WithAttributes(
		attribute.String("order.id", id.String()),
		attribute.String("payment.status", string(out.PaymentStatus)),
	))
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "order"),
		zap.String("method", "ApplyPaymentOutcome"),
		zap.String("order_id", id.String()),
		zap.String("payment_status", string(out.PaymentStatus)),
	)

	var result *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		result = o

		if o.Status == out.Status && o.PaymentStatus == out.PaymentStatus {
			log.Info("payment outcome already applied")
			return nil
		}

		if o.Status != StatusConfirmed {
			if out.PaymentStatus == payment.StatusCompleted {
				log.Error("payment completed for order not awaiting payment",
					zap.String("status", string(o.Status)),
				)
				return ErrInvalidStatusTransition
			}
			log.Warn("ignoring failed payment for order not awaiting payment",
				zap.String("status", string(o.Status)),
			)
			return nil
		}

		if !CanTransition(o.Status, out.Status) {
			return ErrInvalidStatusTransition
		}
		ok, err := s.repo.Transition(ctx, o.ID, o.Status, out.Status)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidStatusTransition
		}

		var txnID *string
		if out.TransactionID != "" {
			txnID = utils.StrPtr(out.TransactionID)
		}
		if err := s.repo.UpdatePayment(ctx, o.ID, out.PaymentStatus, txnID); err != nil {
			return err
		}

		o.Status = out.Status
		o.PaymentStatus = out.PaymentStatus
		if txnID != nil {
			o.PaymentID = txnID
		}

		event := EventCancelled
		if out.Status == StatusPaid {
			event = EventPaid
			if err := s.fulfill(ctx, o, false); err != nil {
				return err
			}
		}
		return s.emit(ctx, o, event, map[string]any{"source": "callback"})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	log.Info("payment outcome applied", zap.String("status", string(result.Status)))
	return result, nil
}

func (s *service) ExpireUnpaid(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "order"),
		zap.String("method", "ExpireUnpaid"),
	)

	cutoff := s.now().Add(-ttl)
	expired := 0

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		expired = 0

		orders, err := s.repo.ListExpiredUnpaid(ctx, cutoff, limit)
		if err != nil {
			return err
		}

		for _, o := range orders {
			if fundsHeld(o) {
				log.Warn("skipping order with a live escrow hold", zap.String("order_id", o.ID.String()))
				continue
			}
			ok, err := s.repo.Transition(ctx, o.ID, StatusConfirmed, StatusCancelled)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := s.repo.UpdatePayment(ctx, o.ID, payment.StatusExpired, nil); err != nil {
				return err
			}

			o.Status = StatusCancelled
			o.PaymentStatus = payment.StatusExpired
			if err := s.emit(ctx, o, EventExpired, map[string]any{"cutoff": cutoff}); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		log.Error("expiry sweep failed", zap.Error(err))
		return 0, err
	}

	if expired > 0 {
		log.Info("unpaid orders expired", zap.Int("count", expired), zap.Time("cutoff", cutoff))
	}
	return expired, nil
}

// fundsHeld reports whether the provider already holds the buyer's money.
func fundsHeld(o *Order) bool {
	return o.PaymentProvider == payment.Escrow && o.PaymentID != nil
}

type eventData struct {
	OrderID       uuid.UUID      `json:"orderId"`
	OrderNumber   string         `json:"orderNumber"`
	BatchID       uuid.UUID      `json:"batchId"`
	BuyerID       uuid.UUID      `json:"buyerId"`
	SellerID      uuid.UUID      `json:"sellerId"`
	Status        Status         `json:"status"`
	PaymentStatus payment.Status `json:"paymentStatus"`
	TotalAmount   string         `json:"totalAmount"`
	Currency      string         `json:"currency"`
	Details       map[string]any `json:"details,omitempty"`
}

func (s *service) emit(ctx context.Context, o *Order, eventType string, details map[string]any) error {
	if s.events == nil {
		return nil
	}
	return s.events.Write(ctx, o.ID, eventType, eventData{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		BatchID:       o.BatchID,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		TotalAmount:   o.TotalAmount.StringFixed(2),
		Currency:      o.Currency,
		Details:       details,
	})
}
