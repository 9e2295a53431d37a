package cart

import (
	"context"
	"database/sql"
	"errors"

	"vinmarket-be/internal/db"
	"vinmarket-be/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	// ListByBuyer returns every cart of the buyer that still has items,
	// oldest first, with item lines populated.
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*Cart, error)
	// LockBuyerCarts takes row locks on all carts of the buyer.
	LockBuyerCarts(ctx context.Context, buyerID uuid.UUID) error
	FindCart(ctx context.Context, buyerID, sellerID uuid.UUID) (*Cart, error)
	// EnsureCart returns the buyer's cart for the seller, creating it when absent.
	EnsureCart(ctx context.Context, buyerID, sellerID uuid.UUID) (*Cart, error)
	FindItem(ctx context.Context, cartID, wineID uuid.UUID) (*Item, error)
	InsertItem(ctx context.Context, item *Item) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	// RecalculateTotal rewrites the stored cart total from its lines and
	// returns it along with the remaining line count.
	RecalculateTotal(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, int, error)
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
	DeleteByBuyer(ctx context.Context, buyerID uuid.UUID) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*Cart, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "cart"),
		zap.String("method", "ListByBuyer"),
		zap.String("buyer_id", buyerID.String()),
	)

	const q = `
		SELECT
			c.id, c.seller_id, COALESCE(u.name, 'UNKNOWN'), c.total_amount,
			c.created_at, c.updated_at,
			ci.id, ci.wine_id, COALESCE(w.title, ''), ci.quantity, ci.unit_price
		FROM carts c
		JOIN cart_items ci ON ci.cart_id = c.id
		LEFT JOIN users u ON u.id = c.seller_id
		LEFT JOIN wines w ON w.id = ci.wine_id
		WHERE c.buyer_id = $1
		ORDER BY c.created_at ASC, ci.created_at ASC
	`

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, buyerID)
	if err != nil {
		log.Error("failed to query carts", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var (
		carts []*Cart
		index = map[uuid.UUID]*Cart{}
	)

	for rows.Next() {
		var (
			c  Cart
			it Item
		)
		if err := rows.Scan(
			&c.ID, &c.SellerID, &c.SellerName, &c.TotalAmount,
			&c.CreatedAt, &c.UpdatedAt,
			&it.ID, &it.WineID, &it.WineTitle, &it.Quantity, &it.UnitPrice,
		); err != nil {
			log.Error("failed to scan cart row", zap.Error(err))
			return nil, err
		}

		existing, ok := index[c.ID]
		if !ok {
			c.BuyerID = buyerID
			existing = &c
			index[c.ID] = existing
			carts = append(carts, existing)
		}
		it.CartID = existing.ID
		existing.Items = append(existing.Items, it)
	}

	if err := rows.Err(); err != nil {
		log.Error("cart rows iteration failed", zap.Error(err))
		return nil, err
	}

	return carts, nil
}

func (r *repository) LockBuyerCarts(ctx context.Context, buyerID uuid.UUID) error {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id FROM carts
		WHERE buyer_id = $1
		ORDER BY id
		FOR UPDATE
	`, buyerID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to lock buyer carts",
			zap.String("repo", "cart"),
			zap.String("buyer_id", buyerID.String()),
			zap.Error(err),
		)
		return err
	}
	defer rows.Close()

	for rows.Next() {
	}
	return rows.Err()
}

func (r *repository) FindCart(ctx context.Context, buyerID, sellerID uuid.UUID) (*Cart, error) {
	q := `
		SELECT id, buyer_id, seller_id, total_amount, created_at, updated_at
		FROM carts
		WHERE buyer_id = $1 AND seller_id = $2
	`
	if db.InTx(ctx) {
		q += " FOR UPDATE"
	}

	var c Cart
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, q, buyerID, sellerID).Scan(
		&c.ID, &c.BuyerID, &c.SellerID, &c.TotalAmount, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to query cart",
			zap.String("repo", "cart"),
			zap.String("method", "FindCart"),
			zap.Error(err),
		)
		return nil, err
	}

	return &c, nil
}

func (r *repository) EnsureCart(ctx context.Context, buyerID, sellerID uuid.UUID) (*Cart, error) {
	c := Cart{
		ID:       uuid.New(),
		BuyerID:  buyerID,
		SellerID: sellerID,
	}

	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO carts (id, buyer_id, seller_id, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, 0, NOW(), NOW())
		ON CONFLICT (buyer_id, seller_id)
		DO UPDATE SET updated_at = NOW()
		RETURNING id, total_amount, created_at, updated_at
	`, c.ID, buyerID, sellerID).Scan(&c.ID, &c.TotalAmount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to upsert cart",
			zap.String("repo", "cart"),
			zap.String("method", "EnsureCart"),
			zap.String("seller_id", sellerID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	return &c, nil
}

func (r *repository) FindItem(ctx context.Context, cartID, wineID uuid.UUID) (*Item, error) {
	var it Item
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, cart_id, wine_id, quantity, unit_price
		FROM cart_items
		WHERE cart_id = $1 AND wine_id = $2
	`, cartID, wineID).Scan(&it.ID, &it.CartID, &it.WineID, &it.Quantity, &it.UnitPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartItemNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to query cart item",
			zap.String("repo", "cart"),
			zap.String("method", "FindItem"),
			zap.Error(err),
		)
		return nil, err
	}

	return &it, nil
}

func (r *repository) InsertItem(ctx context.Context, item *Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	_, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO cart_items (id, cart_id, wine_id, quantity, unit_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`, item.ID, item.CartID, item.WineID, item.Quantity, item.UnitPrice)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to insert cart item",
			zap.String("repo", "cart"),
			zap.String("method", "InsertItem"),
			zap.String("wine_id", item.WineID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE cart_items
		SET quantity = $1, updated_at = NOW()
		WHERE id = $2
	`, quantity, itemID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *repository) RecalculateTotal(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, int, error) {
	var (
		total decimal.Decimal
		lines int
	)

	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE carts
		SET
			total_amount = COALESCE(
				(SELECT SUM(unit_price * quantity) FROM cart_items WHERE cart_id = $1), 0
			),
			updated_at = NOW()
		WHERE id = $1
		RETURNING total_amount, (SELECT COUNT(*) FROM cart_items WHERE cart_id = $1)
	`, cartID).Scan(&total, &lines)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, 0, ErrCartNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to recalculate cart total",
			zap.String("repo", "cart"),
			zap.String("cart_id", cartID.String()),
			zap.Error(err),
		)
		return decimal.Zero, 0, err
	}

	return total, lines, nil
}

func (r *repository) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	return err
}

func (r *repository) DeleteByBuyer(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM carts WHERE buyer_id = $1`, buyerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
