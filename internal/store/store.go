// Package store persists the record of successfully dispatched payments and
// answers time-ranged per-processor totals. The backing is pluggable; all
// backings share the same contract: Record is idempotent on correlationId and
// SumInRange includes both window boundaries.
package store

import (
	"context"
	"time"

	"paygate/internal/model"
)

type Store interface {
	// Record writes a processed payment. Writing the same correlationId
	// again is a no-op, whatever processor or timestamp it arrives with.
	Record(ctx context.Context, processor model.ProcessorType, correlationID string, amount float64, requestedAt time.Time) error

	// SumInRange totals the records for one processor whose requestedAt
	// falls inside [from, to], boundaries included.
	SumInRange(ctx context.Context, processor model.ProcessorType, from, to time.Time) (model.ProcessorSummary, error)

	Purge(ctx context.Context) error
}
