package payment

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
	SavePayment(ctx context.Context, p *Payment) error
	// UpdateStatusByReference moves the attempt identified by the provider's
	// transaction reference. Returns false when no attempt matches.
	UpdateStatusByReference(ctx context.Context, provider Name, reference string, status Status) (bool, error)
	// SaveCallback stores a raw callback. Duplicate (provider, event id)
	// pairs are reported with isDuplicate and not stored again.
	SaveCallback(ctx context.Context, cb *Callback) (callbackID int64, isDuplicate bool, err error)
	MarkCallbackProcessed(ctx context.Context, callbackID int64) error
	MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SavePayment(ctx context.Context, p *Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	var data any
	if len(p.ProviderData) > 0 {
		data = []byte(p.ProviderData)
	}

	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO payments (
			id,
			order_id,
			provider,
			external_reference,
			amount,
			currency,
			status,
			fees,
			redirect_url,
			provider_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`,
		p.ID, p.OrderID, p.Provider, p.ExternalReference, p.Amount,
		p.Currency, p.Status, p.Fees, p.RedirectURL, data,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to save payment",
			zap.String("repo", "payment"),
			zap.String("order_id", p.OrderID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) UpdateStatusByReference(ctx context.Context, provider Name, reference string, status Status) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE provider = $2 AND external_reference = $3
	`, status, provider, reference)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) SaveCallback(ctx context.Context, cb *Callback) (int64, bool, error) {
	const q = `
	INSERT INTO payment_callbacks (
		provider,
		event_id,
		order_ref,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (provider, event_id)
	DO NOTHING
	RETURNING id;
	`

	var id int64
	err := db.Conn(ctx, r.db).QueryRowContext(
		ctx,
		q,
		cb.Provider,
		cb.EventID,
		cb.OrderRef,
		cb.SignatureValid,
		[]byte(cb.Payload),
	).Scan(&id)

	if err != nil {
		// Duplicate callback → idempotent success
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		logger.FromCtx(ctx).Error("failed to save callback",
			zap.String("repo", "payment"),
			zap.String("event_id", cb.EventID),
			zap.Error(err),
		)
		return 0, false, err
	}

	return id, false, nil
}

func (r *repository) MarkCallbackProcessed(ctx context.Context, callbackID int64) error {
	const q = `
	UPDATE payment_callbacks
	SET processed_at = now()
	WHERE id = $1;
	`

	_, err := db.Conn(ctx, r.db).ExecContext(ctx, q, callbackID)
	return err
}

func (r *repository) MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error {
	const q = `
	UPDATE payment_callbacks
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := db.Conn(ctx, r.db).ExecContext(ctx, q, callbackID, reason)
	return err
}
