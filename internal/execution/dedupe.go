package execution

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedupe is a best-effort guard against publishing the same signal twice
// across worker restarts. The outbox already guarantees at-least-once; this
// narrows the replay window. It is advisory only: a dedupe failure never
// blocks publication.
type Dedupe interface {
	// FirstSeen reports whether key has not been claimed yet, claiming it.
	FirstSeen(ctx context.Context, key string) (bool, error)
}

// RedisDedupe claims keys with SETNX under a TTL.
type RedisDedupe struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDedupe(client *redis.Client, ttl time.Duration) *RedisDedupe {
	return &RedisDedupe{client: client, ttl: ttl}
}

func (d *RedisDedupe) FirstSeen(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, "execution:published:"+key, 1, d.ttl).Result()
}

// NoopDedupe is used when redis is not configured.
type NoopDedupe struct{}

func (NoopDedupe) FirstSeen(context.Context, string) (bool, error) { return true, nil }
