// internal/store/dedup.go
package store

import (
	"context"
	"time"

	"candidate-risk-engine/internal/common/database"
)

const dedupKeyPrefix = "risk:dedup:"

// MessageDedup is a Redis-backed duplicate guard for activity events. It
// backs the in-memory seen-set across restarts; the TTL only needs to cover
// the producer's redelivery horizon.
type MessageDedup struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewMessageDedup(redis *database.RedisClient, ttl time.Duration) *MessageDedup {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &MessageDedup{redis: redis, ttl: ttl}
}

// FirstSeen atomically records the message id and reports whether this was
// its first occurrence.
func (d *MessageDedup) FirstSeen(ctx context.Context, candidateID, messageID string) (bool, error) {
	key := dedupKeyPrefix + candidateID + ":" + messageID
	return d.redis.Client.SetNX(ctx, key, 1, d.ttl).Result()
}
