package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter is the spam-prevention gate for push notifications. It relies
// on Redis SET NX PX: one atomic insert-if-absent-with-expiry. A read
// followed by a conditional write is not equivalent — two concurrent
// message events would both observe "absent" and both pass the gate.
type Limiter struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

// TryAcquire attempts to claim key for ttl. Exactly one of any number
// of concurrent callers with the same key gets true within the window.
func (l *Limiter) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("rate limiter setnx failed: %w", err)
	}
	return ok, nil
}

// DMKey builds the per-conversation-per-recipient gate key
func DMKey(conversationID, recipientID uuid.UUID) string {
	return fmt.Sprintf("push:dm:%s:%s", conversationID, recipientID)
}

// SelfCheck verifies at startup that the cache tier honors atomic
// set-if-absent: the first write to a scratch key must succeed and the
// second must be rejected. A cache without this guarantee silently
// breaks spam prevention, so callers should treat failure as fatal.
func (l *Limiter) SelfCheck(ctx context.Context) error {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("self-check key generation failed: %w", err)
	}
	key := "atomic_check:" + hex.EncodeToString(buf)

	first, err := l.rdb.SetNX(ctx, key, 1, 10*time.Second).Result()
	if err != nil {
		return fmt.Errorf("self-check first write failed: %w", err)
	}
	second, err := l.rdb.SetNX(ctx, key, 2, 10*time.Second).Result()
	if err != nil {
		return fmt.Errorf("self-check second write failed: %w", err)
	}
	value, err := l.rdb.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("self-check read failed: %w", err)
	}
	l.rdb.Del(ctx, key)

	if !first || second || value != "1" {
		return fmt.Errorf("cache store does not support atomic set-if-absent (first=%v second=%v value=%q)",
			first, second, value)
	}
	return nil
}
