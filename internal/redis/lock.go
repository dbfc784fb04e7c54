package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TurnLock serializes turn processing per customer. Webhook providers retry
// deliveries, so the same message can arrive twice; the lock keeps a second
// delivery from interleaving with an in-flight turn. Locks expire on their own
// so a crashed turn never wedges a conversation.
type TurnLock struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewTurnLock creates a per-customer turn lock with the given expiry.
func NewTurnLock(client redis.Cmdable, ttl time.Duration) *TurnLock {
	return &TurnLock{client: client, ttl: ttl}
}

func lockKey(customerID string) string {
	return "turnlock:" + customerID
}

// Acquire takes the lock for customerID. Returns false if another turn for the
// same customer is already in flight.
func (l *TurnLock) Acquire(ctx context.Context, customerID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(customerID), "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring turn lock for %s: %w", customerID, err)
	}
	return ok, nil
}

// Release frees the lock for customerID.
func (l *TurnLock) Release(ctx context.Context, customerID string) error {
	if err := l.client.Del(ctx, lockKey(customerID)).Err(); err != nil {
		return fmt.Errorf("releasing turn lock for %s: %w", customerID, err)
	}
	return nil
}
