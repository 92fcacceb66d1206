package health

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"paygate/internal/model"
)

const currentProcessorKey = "routing:current-processor"

// State is the shared routing decision: single writer (the leader's
// monitor), many readers (every instance's dispatcher). Reads come from a
// short-lived local cache so the dispatch hot path does not hit Redis per
// payment; staleness stays well under one probe interval.
type State struct {
	client   *redis.Client
	maxStale time.Duration

	mu       sync.RWMutex
	cached   model.ProcessorType
	cachedAt time.Time
}

func NewState(client *redis.Client, maxStale time.Duration) *State {
	return &State{
		client:   client,
		maxStale: maxStale,
		cached:   model.ProcessorNone,
	}
}

func (s *State) Publish(ctx context.Context, processor model.ProcessorType) error {
	if err := s.client.Set(ctx, currentProcessorKey, string(processor), 0).Err(); err != nil {
		return err
	}
	s.remember(processor)
	return nil
}

// Current returns the last published decision. Before any leader has
// published, and when Redis is unreachable with a cold cache, it reads NONE
// so the dispatcher requeues instead of guessing.
func (s *State) Current(ctx context.Context) model.ProcessorType {
	s.mu.RLock()
	if !s.cachedAt.IsZero() && time.Since(s.cachedAt) < s.maxStale {
		cached := s.cached
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	val, err := s.client.Get(ctx, currentProcessorKey).Result()
	if err == redis.Nil {
		s.remember(model.ProcessorNone)
		return model.ProcessorNone
	}
	if err != nil {
		// Stale beats blocking: fall back to whatever we saw last.
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.cached
	}

	processor := model.ProcessorType(val)
	switch processor {
	case model.ProcessorDefault, model.ProcessorFallback, model.ProcessorNone:
	default:
		processor = model.ProcessorNone
	}
	s.remember(processor)
	return processor
}

func (s *State) remember(processor model.ProcessorType) {
	s.mu.Lock()
	s.cached = processor
	s.cachedAt = time.Now()
	s.mu.Unlock()
}
