package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corridorledger/substrate/pkg/lifecycle"
)

// RedisCache is the optional shared StalenessCache backend named in
// SPEC_FULL.md, used when a watcher pool spans more than one process and
// the in-memory default cannot be shared. Each corridor's attestations
// live in a Redis hash keyed by watcher ID so a later attestation from the
// same watcher overwrites its prior one, matching InMemoryCache's
// semantics.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps client. ttl bounds how long Redis itself retains an
// entry; it should be set comfortably larger than any pool's max
// staleness window so Recent's own filtering remains the source of truth.
func NewRedisCache(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: keyPrefix, ttl: ttl}
}

func (c *RedisCache) key(corridorID lifecycle.CorridorID) string {
	return fmt.Sprintf("%s:watcher-attestations:%s", c.prefix, corridorID)
}

func (c *RedisCache) Put(ctx context.Context, a Attestation) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("watcher: marshal attestation for redis: %w", err)
	}
	key := c.key(a.CorridorID)
	if err := c.client.HSet(ctx, key, string(a.WatcherID), payload).Err(); err != nil {
		return fmt.Errorf("watcher: redis HSET: %w", err)
	}
	if c.ttl > 0 {
		c.client.Expire(ctx, key, c.ttl)
	}
	return nil
}

func (c *RedisCache) Recent(ctx context.Context, corridorID lifecycle.CorridorID, maxAge time.Duration, now time.Time) ([]Attestation, error) {
	raw, err := c.client.HGetAll(ctx, c.key(corridorID)).Result()
	if err != nil {
		return nil, fmt.Errorf("watcher: redis HGETALL: %w", err)
	}
	out := make([]Attestation, 0, len(raw))
	for _, payload := range raw {
		var a Attestation
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("watcher: unmarshal cached attestation: %w", err)
		}
		if now.Sub(a.ObservedAt) <= maxAge {
			out = append(out, a)
		}
	}
	return out, nil
}
