// Package summary answers time-ranged volume queries over the processed
// store. Pure reads, no side effects.
package summary

import (
	"context"
	"fmt"
	"time"

	"paygate/internal/model"
	"paygate/internal/store"
)

type Service struct {
	store store.Store
}

func New(st store.Store) Service {
	return Service{store: st}
}

// ParseWindow turns query-string bounds into a [from, to] window. Missing
// bounds widen to the last 24 hours / now; malformed ones are an error, not
// silent zeros.
func ParseWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	now := time.Now().UTC()

	from := now.Add(-24 * time.Hour)
	if fromStr != "" {
		parsed, err := time.Parse(time.RFC3339Nano, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: bad 'from' timestamp: %v", model.ErrInvalidRange, err)
		}
		from = parsed
	}

	to := now
	if toStr != "" {
		parsed, err := time.Parse(time.RFC3339Nano, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: bad 'to' timestamp: %v", model.ErrInvalidRange, err)
		}
		to = parsed
	}

	return from, to, nil
}

func (s Service) Summarize(ctx context.Context, from, to time.Time) (model.Summary, error) {
	if from.After(to) {
		return model.Summary{}, fmt.Errorf("%w: from is after to", model.ErrInvalidRange)
	}

	def, err := s.store.SumInRange(ctx, model.ProcessorDefault, from, to)
	if err != nil {
		return model.Summary{}, err
	}
	fall, err := s.store.SumInRange(ctx, model.ProcessorFallback, from, to)
	if err != nil {
		return model.Summary{}, err
	}

	return model.Summary{Default: def, Fallback: fall}, nil
}
