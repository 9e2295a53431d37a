package outbox

import (
	"database/sql"
	"encoding/json"
	"time"
)

type Status int

const (
	StatusPending   Status = 1
	StatusPublished Status = 2
)

// Event is one row of outbox_events.
type Event struct {
	ID          int64        `db:"id"`
	AggregateID string       `db:"aggregate_id"`
	EventType   string       `db:"event_type"`
	Payload     []byte       `db:"payload"`
	Status      Status       `db:"status"`
	CreatedAt   time.Time    `db:"created_at"`
	PublishedAt sql.NullTime `db:"published_at"`
}

// Envelope is the message body published for every event.
type Envelope struct {
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Data        json.RawMessage `json:"data"`
}
