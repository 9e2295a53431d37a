package outbox

import (
	"context"
	"time"

	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/pkg/kafka"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Store interface {
	GetPending(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

type store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) Store {
	return &store{db: db}
}

var getPendingQuery = `
	SELECT id, aggregate_id, event_type, payload, status, created_at, published_at
	FROM outbox_events
	WHERE status = $1
	ORDER BY id
	LIMIT $2
`

func (s *store) GetPending(ctx context.Context, limit int) ([]Event, error) {
	var res []Event
	err := s.db.SelectContext(ctx, &res, getPendingQuery, StatusPending, limit)
	return res, err
}

var markPublishedQuery = "UPDATE outbox_events SET status = ?, published_at = NOW() WHERE id IN (?)"

func (s *store) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(markPublishedQuery, StatusPublished, ids)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	return err
}

// Relay moves pending outbox events to Kafka.
type Relay struct {
	store    Store
	producer kafka.Producer
}

func NewRelay(store Store, producer kafka.Producer) *Relay {
	return &Relay{store: store, producer: producer}
}

// RelayOnce publishes up to limit pending events and marks them published.
// Events are delivered at least once.
func (r *Relay) RelayOnce(ctx context.Context, limit int) (int, error) {
	events, err := r.store.GetPending(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	if err := r.producer.Push(toMessages(events)); err != nil {
		return 0, err
	}

	if err := r.store.MarkPublished(ctx, extractIDs(events)); err != nil {
		return 0, err
	}
	return len(events), nil
}

// Run relays on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, interval time.Duration, limit int) error {
	log := logger.FromCtx(ctx).With(zap.String("layer", "outbox"))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := r.RelayOnce(ctx, limit)
		switch {
		case err != nil:
			log.Error("relay failed", zap.Error(err))
		case n > 0:
			log.Info("events relayed", zap.Int("count", n))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func extractIDs(events []Event) []int64 {
	res := make([]int64, 0, len(events))
	for _, e := range events {
		res = append(res, e.ID)
	}
	return res
}

func toMessages(events []Event) []kafka.Message {
	res := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		res = append(res, kafka.Message{Key: []byte(e.AggregateID), Value: e.Payload})
	}
	return res
}
