// Package queue holds the durable FIFO of payments awaiting dispatch.
package queue

import (
	"context"

	"paygate/internal/model"
)

type Queue interface {
	// Enqueue appends a payment to the tail.
	Enqueue(ctx context.Context, p model.QueuedPayment) error

	// Requeue re-appends a failed payment to the tail, not the head, so a
	// permanently failing payment cannot starve the rest of the batch.
	Requeue(ctx context.Context, p model.QueuedPayment) error

	// DequeueBatch removes and returns up to max of the oldest entries.
	// An empty queue yields an empty batch, not an error.
	DequeueBatch(ctx context.Context, max int) ([]model.QueuedPayment, error)

	Len(ctx context.Context) (int64, error)

	Purge(ctx context.Context) error
}
