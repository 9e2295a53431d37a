package wine

import (
	"context"
	"database/sql"
	"errors"

	"vinmarket-be/internal/db"
	"vinmarket-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Wine, error)
	// GetForUpdate locks the listing row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Wine, error)
	// DecrementQuantity subtracts qty only when at least qty is available and
	// returns the remaining quantity.
	DecrementQuantity(ctx context.Context, id uuid.UUID, qty int) (int, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const selectWine = `
	SELECT
		w.id, w.seller_id, COALESCE(u.name, 'UNKNOWN'), w.title,
		w.price, w.quantity, w.status, w.sold_at,
		w.created_at, w.updated_at
	FROM wines w
	LEFT JOIN users u ON u.id = w.seller_id
	WHERE w.id = $1
`

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Wine, error) {
	return r.get(ctx, id, selectWine)
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Wine, error) {
	return r.get(ctx, id, selectWine+" FOR UPDATE OF w")
}

func (r *repository) get(ctx context.Context, id uuid.UUID, query string) (*Wine, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetWine"),
		zap.String("wine_id", id.String()),
	)

	var w Wine
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&w.ID, &w.SellerID, &w.SellerName, &w.Title,
		&w.Price, &w.Quantity, &w.Status, &w.SoldAt,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("wine not found")
			return nil, ErrWineNotFound
		}
		log.Error("failed to query wine", zap.Error(err))
		return nil, err
	}

	return &w, nil
}

func (r *repository) DecrementQuantity(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "DecrementQuantity"),
		zap.String("wine_id", id.String()),
		zap.Int("quantity", qty),
	)

	const q = `
		UPDATE wines
		SET
			quantity = quantity - $2,
			status = CASE WHEN quantity - $2 = 0 THEN 'SOLD' ELSE status END,
			sold_at = CASE WHEN quantity - $2 = 0 THEN NOW() ELSE sold_at END,
			updated_at = NOW()
		WHERE id = $1
		  AND quantity >= $2
		RETURNING quantity
	`

	var remaining int
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, q, id, qty).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("conditional decrement matched no row")
			return 0, ErrQuantityConflict
		}
		log.Error("failed to decrement wine quantity", zap.Error(err))
		return 0, err
	}

	log.Debug("wine quantity decremented", zap.Int("remaining", remaining))
	return remaining, nil
}
