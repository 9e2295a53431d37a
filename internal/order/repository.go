package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vinmarket-be/internal/db"
	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/payment"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// Create inserts the order and its item lines.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// GetForUpdate loads the order and locks its row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, actor Actor, filter ListFilter) (*Page, error)
	// Transition moves the order only while it is still in from. Returns
	// false when another writer moved it first.
	Transition(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
	SetShipment(ctx context.Context, id uuid.UUID, s Shipment) error
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	// MarkFulfilled stamps fulfilled_at once. Returns true only for the
	// caller that stamped it.
	MarkFulfilled(ctx context.Context, id uuid.UUID) (bool, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, status payment.Status, paymentID *string) error
	// ListExpiredUnpaid locks confirmed orders still awaiting payment that
	// were created before cutoff. Rows locked by others are skipped, as are
	// escrow orders whose hold is already funded.
	ListExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]*Order, error)
}

// Shipment holds the carrier details recorded when an order ships.
type Shipment struct {
	TrackingNumber    *string
	LabelURL          *string
	Carrier           *string
	EstimatedDelivery *time.Time
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	o.id, o.order_number, o.batch_id, o.buyer_id, o.seller_id, COALESCE(u.name, 'UNKNOWN'),
	o.status, o.subtotal, o.shipping_cost, o.total_amount, o.currency,
	o.payment_provider, o.payment_status, o.payment_id,
	o.shipping_address_id, o.tracking_number, o.shipping_label_url, o.carrier,
	o.estimated_delivery, o.delivered_at, o.fulfilled_at,
	o.created_at, o.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner, extra ...any) (*Order, error) {
	var o Order
	dest := []any{
		&o.ID, &o.OrderNumber, &o.BatchID, &o.BuyerID, &o.SellerID, &o.SellerName,
		&o.Status, &o.Subtotal, &o.ShippingCost, &o.TotalAmount, &o.Currency,
		&o.PaymentProvider, &o.PaymentStatus, &o.PaymentID,
		&o.ShippingAddressID, &o.TrackingNumber, &o.ShippingLabelURL, &o.Carrier,
		&o.EstimatedDelivery, &o.DeliveredAt, &o.FulfilledAt,
		&o.CreatedAt, &o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "order"),
		zap.String("method", "Create"),
		zap.String("order_number", o.OrderNumber),
	)

	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}

	conn := db.Conn(ctx, r.db)

	err := conn.QueryRowContext(ctx, `
		INSERT INTO orders (
			id,
			order_number,
			batch_id,
			buyer_id,
			seller_id,
			status,
			subtotal,
			shipping_cost,
			total_amount,
			currency,
			payment_provider,
			payment_status,
			shipping_address_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`,
		o.ID, o.OrderNumber, o.BatchID, o.BuyerID, o.SellerID, o.Status,
		o.Subtotal, o.ShippingCost, o.TotalAmount, o.Currency,
		o.PaymentProvider, o.PaymentStatus, o.ShippingAddressID,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			log.Warn("order number collision")
		} else {
			log.Error("failed to insert order", zap.Error(err))
		}
		return err
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.OrderID = o.ID

		_, err := conn.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, wine_id, wine_title, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, it.ID, it.OrderID, it.WineID, it.WineTitle, it.Quantity, it.UnitPrice)
		if err != nil {
			log.Error("failed to insert order item",
				zap.String("wine_id", it.WineID.String()),
				zap.Error(err),
			)
			return err
		}
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.get(ctx, id, "")
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.get(ctx, id, " FOR UPDATE OF o")
}

func (r *repository) get(ctx context.Context, id uuid.UUID, lock string) (*Order, error) {
	q := `SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN users u ON u.id = o.seller_id
		WHERE o.id = $1` + lock

	o, err := scanOrder(db.Conn(ctx, r.db).QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to query order",
			zap.String("repo", "order"),
			zap.String("order_id", id.String()),
			zap.Error(err),
		)
		return nil, err
	}

	if err := r.attachItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) attachItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	index := make(map[uuid.UUID]*Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID.String())
		index[o.ID] = o
	}

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, order_id, wine_id, wine_title, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`, pq.Array(ids))
	if err != nil {
		logger.FromCtx(ctx).Error("failed to query order items",
			zap.String("repo", "order"),
			zap.Error(err),
		)
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.WineID, &it.WineTitle, &it.Quantity, &it.UnitPrice); err != nil {
			return err
		}
		if o, ok := index[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *repository) List(ctx context.Context, actor Actor, f ListFilter) (*Page, error) {
	offset := f.normalize()

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "order"),
		zap.String("method", "List"),
		zap.String("role", actor.Role),
		zap.Int("limit", f.Limit),
		zap.Int("page", f.Page),
	)

	query := `SELECT ` + orderColumns + `, COUNT(*) OVER()
		FROM orders o
		LEFT JOIN users u ON u.id = o.seller_id
		WHERE 1=1`

	args := []any{}
	argIndex := 1

	if !actor.IsAdmin() {
		query += fmt.Sprintf(" AND (o.buyer_id = $%d OR o.seller_id = $%d)", argIndex, argIndex)
		args = append(args, actor.ID)
		argIndex++
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		query += fmt.Sprintf(" AND o.status = ANY($%d)", argIndex)
		args = append(args, pq.Array(statuses))
		argIndex++
	}

	if len(f.PaymentStatuses) > 0 {
		statuses := make([]string, 0, len(f.PaymentStatuses))
		for _, s := range f.PaymentStatuses {
			statuses = append(statuses, string(s))
		}
		query += fmt.Sprintf(" AND o.payment_status = ANY($%d)", argIndex)
		args = append(args, pq.Array(statuses))
		argIndex++
	}

	if f.SellerID != nil {
		query += fmt.Sprintf(" AND o.seller_id = $%d", argIndex)
		args = append(args, *f.SellerID)
		argIndex++
	}

	if f.BuyerID != nil {
		query += fmt.Sprintf(" AND o.buyer_id = $%d", argIndex)
		args = append(args, *f.BuyerID)
		argIndex++
	}

	if f.DateFrom != nil {
		query += fmt.Sprintf(" AND o.created_at >= $%d", argIndex)
		args = append(args, *f.DateFrom)
		argIndex++
	}

	if f.DateTo != nil {
		query += fmt.Sprintf(" AND o.created_at <= $%d", argIndex)
		args = append(args, *f.DateTo)
		argIndex++
	}

	query += " ORDER BY o.created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, f.Limit, offset)

	log.Debug("executing list orders query", zap.Any("args", args))

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	page := &Page{Orders: []*Order{}, Page: f.Page, Limit: f.Limit}
	for rows.Next() {
		o, err := scanOrder(rows, &page.Total)
		if err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		page.Orders = append(page.Orders, o)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, err
	}
	rows.Close()

	if err := r.attachItems(ctx, page.Orders); err != nil {
		return nil, err
	}

	log.Info("list orders success", zap.Int("count", len(page.Orders)), zap.Int("total", page.Total))
	return page, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to update order status",
			zap.String("repo", "order"),
			zap.String("order_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err),
		)
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *repository) SetShipment(ctx context.Context, id uuid.UUID, s Shipment) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders
		SET
			tracking_number = COALESCE($2, tracking_number),
			shipping_label_url = COALESCE($3, shipping_label_url),
			carrier = COALESCE($4, carrier),
			estimated_delivery = COALESCE($5, estimated_delivery),
			updated_at = NOW()
		WHERE id = $1
	`, id, s.TrackingNumber, s.LabelURL, s.Carrier, s.EstimatedDelivery)
	return err
}

func (r *repository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders SET delivered_at = NOW(), updated_at = NOW() WHERE id = $1
	`, id)
	return err
}

func (r *repository) MarkFulfilled(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders
		SET fulfilled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND fulfilled_at IS NULL
	`, id)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *repository) UpdatePayment(ctx context.Context, id uuid.UUID, status payment.Status, paymentID *string) error {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders
		SET
			payment_status = $2,
			payment_id = COALESCE($3, payment_id),
			updated_at = NOW()
		WHERE id = $1
	`, id, status, paymentID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to update order payment",
			zap.String("repo", "order"),
			zap.String("order_id", id.String()),
			zap.Error(err),
		)
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) ListExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]*Order, error) {
	q := `SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN users u ON u.id = o.seller_id
		WHERE o.status = $1 AND o.payment_status = $2 AND o.created_at < $3
			AND (o.payment_provider <> $4 OR o.payment_id IS NULL)
		ORDER BY o.created_at
		LIMIT $5
		FOR UPDATE OF o SKIP LOCKED`

	// An escrow hold with a transaction id is funded and waits for delivery.
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q,
		StatusConfirmed, payment.StatusPending, cutoff, payment.Escrow, limit,
	)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to query expired orders",
			zap.String("repo", "order"),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
