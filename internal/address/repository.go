package address

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
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*ShippingAddress, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ShippingAddress, error)
	Create(ctx context.Context, addr *ShippingAddress) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByUserID(
	ctx context.Context,
	userID uuid.UUID,
) ([]*ShippingAddress, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "GetByUserID"),
		zap.String("user_id", userID.String()),
	)

	const q = `
		SELECT
			id, user_id, recipient_name, phone,
			line1, line2,
			city, region, postal_code, country,
			created_at
		FROM shipping_addresses
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, userID)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var res []*ShippingAddress
	for rows.Next() {
		var a ShippingAddress
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.RecipientName, &a.Phone,
			&a.Line1, &a.Line2,
			&a.City, &a.Region, &a.PostalCode, &a.Country,
			&a.CreatedAt,
		); err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		res = append(res, &a)
	}

	return res, rows.Err()
}

func (r *repository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*ShippingAddress, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "GetByID"),
		zap.String("address_id", id.String()),
	)

	const q = `
		SELECT
			id, user_id, recipient_name, phone,
			line1, line2,
			city, region, postal_code, country,
			created_at
		FROM shipping_addresses
		WHERE id = $1
	`

	var a ShippingAddress
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&a.ID, &a.UserID, &a.RecipientName, &a.Phone,
		&a.Line1, &a.Line2,
		&a.City, &a.Region, &a.PostalCode, &a.Country,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}

	return &a, nil
}

func (r *repository) Create(
	ctx context.Context,
	addr *ShippingAddress,
) error {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "Create"),
		zap.String("address_id", addr.ID.String()),
	)

	const q = `
		INSERT INTO shipping_addresses (
			id, user_id, recipient_name, phone,
			line1, line2,
			city, region, postal_code, country
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9, $10
		)
		RETURNING created_at
	`

	err := db.Conn(ctx, r.db).QueryRowContext(
		ctx, q,
		addr.ID, addr.UserID, addr.RecipientName, addr.Phone,
		addr.Line1, addr.Line2,
		addr.City, addr.Region, addr.PostalCode, addr.Country,
	).Scan(&addr.CreatedAt)
	if err != nil {
		log.Error("insert failed", zap.Error(err))
		return err
	}

	return nil
}
