package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultSessionTTL = 24 * time.Hour

type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartSessionKey(sessionID string) string
}

// SessionRepository persists cart snapshots per session in Redis.
type SessionRepository struct {
	store sessionStore
	ttl   time.Duration
}

// NewSessionRepository returns a repository expiring idle carts after ttl.
func NewSessionRepository(store sessionStore, ttl time.Duration) (*SessionRepository, error) {
	if store == nil {
		return nil, errors.New("redis store required")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionRepository{store: store, ttl: ttl}, nil
}

// Load returns the stored snapshot, or an empty one for an unknown session.
func (r *SessionRepository) Load(ctx context.Context, sessionID string) (Snapshot, error) {
	raw, err := r.store.Get(ctx, r.store.CartSessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("load cart session: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decode cart session: %w", err)
	}
	return snapshot, nil
}

// Save writes the snapshot and refreshes the session TTL.
func (r *SessionRepository) Save(ctx context.Context, sessionID string, snapshot Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode cart session: %w", err)
	}
	if err := r.store.Set(ctx, r.store.CartSessionKey(sessionID), string(payload), r.ttl); err != nil {
		return fmt.Errorf("save cart session: %w", err)
	}
	return nil
}
