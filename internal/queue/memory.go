package queue

import (
	"context"
	"sync"

	"paygate/internal/model"
)

// MemoryQueue keeps the pending list in process memory. Used by tests and
// single-instance deployments that accept losing the queue on restart.
type MemoryQueue struct {
	mu    sync.Mutex
	items []model.QueuedPayment
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(_ context.Context, p model.QueuedPayment) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, p)
	return nil
}

func (q *MemoryQueue) Requeue(ctx context.Context, p model.QueuedPayment) error {
	return q.Enqueue(ctx, p)
}

func (q *MemoryQueue) DequeueBatch(_ context.Context, max int) ([]model.QueuedPayment, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, nil
	}
	if max > len(q.items) {
		max = len(q.items)
	}

	batch := make([]model.QueuedPayment, max)
	copy(batch, q.items[:max])
	q.items = q.items[max:]
	return batch, nil
}

func (q *MemoryQueue) Len(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

func (q *MemoryQueue) Purge(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	return nil
}
