package queue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"paygate/internal/model"
)

const pendingKey = "payments:pending"

// RedisQueue backs the work queue with a Redis list, shared by every
// instance and durable across process restarts.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Enqueue(ctx context.Context, p model.QueuedPayment) error {
	return q.push(ctx, p)
}

func (q *RedisQueue) Requeue(ctx context.Context, p model.QueuedPayment) error {
	return q.push(ctx, p)
}

func (q *RedisQueue) push(ctx context.Context, p model.QueuedPayment) error {
	raw, err := sonic.Marshal(p)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, pendingKey, raw).Err()
}

func (q *RedisQueue) DequeueBatch(ctx context.Context, max int) ([]model.QueuedPayment, error) {
	raws, err := q.client.LPopCount(ctx, pendingKey, max).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	batch := make([]model.QueuedPayment, 0, len(raws))
	for _, raw := range raws {
		var p model.QueuedPayment
		if err := sonic.Unmarshal([]byte(raw), &p); err != nil {
			slog.Error("Dropping undecodable queue entry", "err", err, "raw", raw)
			continue
		}
		batch = append(batch, p)
	}
	return batch, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, pendingKey).Result()
}

func (q *RedisQueue) Purge(ctx context.Context) error {
	return q.client.Del(ctx, pendingKey).Err()
}
