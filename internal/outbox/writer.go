package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"vinmarket-be/internal/db"
	"vinmarket-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Writer records an event in the transaction carried by ctx, so the event
// is stored if and only if the state change commits.
type Writer interface {
	Write(ctx context.Context, aggregateID uuid.UUID, eventType string, data any) error
}

type writer struct {
	db  *sql.DB
	now func() time.Time
}

func NewWriter(db *sql.DB) Writer {
	return &writer{db: db, now: time.Now}
}

const insertEventQuery = `
	INSERT INTO outbox_events (aggregate_id, event_type, payload, status, created_at)
	VALUES ($1, $2, $3, $4, $5)
`

func (w *writer) Write(ctx context.Context, aggregateID uuid.UUID, eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	occurred := w.now().UTC()
	body, err := json.Marshal(Envelope{
		Type:        eventType,
		AggregateID: aggregateID.String(),
		OccurredAt:  occurred,
		Data:        raw,
	})
	if err != nil {
		return err
	}

	_, err = db.Conn(ctx, w.db).ExecContext(ctx, insertEventQuery,
		aggregateID.String(), eventType, body, StatusPending, occurred,
	)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to write outbox event",
			zap.String("layer", "outbox"),
			zap.String("event_type", eventType),
			zap.String("aggregate_id", aggregateID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
