package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedSessionTTL is how long a reconciled checkout session is remembered.
// Gateways stop redelivering notifications well before this.
const ProcessedSessionTTL = 7 * 24 * time.Hour

// Key prefixes
const (
	processedSessionPrefix = "webhook:session:"
	idempotencyPrefix      = "idempotency:"
)

// EventLedger remembers which checkout sessions have been reconciled so that
// redelivered notifications are short-circuited before reaching the store.
type EventLedger struct {
	client redis.Cmdable
}

// NewEventLedger creates a new EventLedger.
func NewEventLedger(client redis.Cmdable) *EventLedger {
	return &EventLedger{client: client}
}

// Seen reports whether the session has already been reconciled.
func (s *EventLedger) Seen(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, processedSessionPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remember records the session as reconciled.
func (s *EventLedger) Remember(ctx context.Context, sessionID string) error {
	return s.client.Set(ctx, processedSessionPrefix+sessionID, "1", ProcessedSessionTTL).Err()
}

// ResponseStore persists serialized HTTP responses for the Idempotency-Key
// middleware.
type ResponseStore struct {
	client redis.Cmdable
}

// NewResponseStore creates a new ResponseStore.
func NewResponseStore(client redis.Cmdable) *ResponseStore {
	return &ResponseStore{client: client}
}

// Get returns the stored response, or nil when absent.
func (s *ResponseStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Set stores a response with the given TTL.
func (s *ResponseStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, idempotencyPrefix+key, data, ttl).Err()
}
