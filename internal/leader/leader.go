// Package leader elects the single instance allowed to probe processor
// health. The upstream health endpoint is rate-limited, so every instance
// probing it would blow the budget.
package leader

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const leaderKey = "routing:health-leader"

// KV is the shared record the election runs over. Implementations must make
// SetNX atomic: set only when the key is vacant.
type KV interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Elector holds a lease on the leadership record. The lease carries a TTL
// and the holder refreshes it on every check, so a dead leader's slot frees
// itself within one TTL instead of requiring a redeploy.
type Elector struct {
	kv  KV
	id  string
	ttl time.Duration
}

func New(kv KV, ttl time.Duration) *Elector {
	return &Elector{
		kv:  kv,
		id:  uuid.NewString(),
		ttl: ttl,
	}
}

// IsLeader tries to acquire or reaffirm leadership. Vacant record: the
// caller claims it. Held by this instance: the lease is refreshed. Held by
// anyone else: follower.
func (e *Elector) IsLeader(ctx context.Context) bool {
	acquired, err := e.kv.SetNX(ctx, leaderKey, e.id, e.ttl)
	if err != nil {
		slog.Warn("Leadership check failed", "err", err)
		return false
	}
	if acquired {
		slog.Info("Acquired health-probe leadership", "instance", e.id)
		return true
	}

	holder, err := e.kv.Get(ctx, leaderKey)
	if err != nil || holder != e.id {
		return false
	}

	if _, err := e.kv.Expire(ctx, leaderKey, e.ttl); err != nil {
		slog.Warn("Lease refresh failed", "err", err)
	}
	return true
}

func (e *Elector) InstanceID() string {
	return e.id
}

// RedisKV adapts a Redis client to the election record contract.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (r *RedisKV) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.Expire(ctx, key, ttl).Result()
}
