package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	checkoutOperation = "checkout"
	CheckoutTTL       = 24 * time.Hour
)

// Replayer remembers the response of a checkout keyed by the buyer and the
// client supplied Idempotency-Key. A nil *Replayer never replays.
type Replayer struct {
	cache Cache
	ttl   time.Duration
}

func NewReplayer(c Cache) *Replayer {
	if c == nil {
		return nil
	}
	return &Replayer{cache: c, ttl: CheckoutTTL}
}

func (r *Replayer) key(buyerID uuid.UUID, idempotencyKey string) string {
	return r.cache.GenerateKey(checkoutOperation, buyerID.String(), idempotencyKey)
}

// Lookup decodes a stored result into dst. It reports false when nothing
// has been stored for the key.
func (r *Replayer) Lookup(ctx context.Context, buyerID uuid.UUID, idempotencyKey string, dst any) (bool, error) {
	if r == nil || idempotencyKey == "" {
		return false, nil
	}

	raw, err := r.cache.Get(ctx, r.key(buyerID, idempotencyKey))
	if err != nil || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Replayer) Store(ctx context.Context, buyerID uuid.UUID, idempotencyKey string, v any) error {
	if r == nil || idempotencyKey == "" {
		return nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.cache.Set(ctx, r.key(buyerID, idempotencyKey), string(b), r.ttl)
}
