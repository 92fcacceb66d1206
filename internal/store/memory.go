package store

import (
	"context"
	"sync"
	"time"

	"paygate/internal/model"
)

type memoryRecord struct {
	processor   model.ProcessorType
	amount      float64
	requestedAt time.Time
}

// MemoryStore keeps processed records in a map keyed by correlation id.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]memoryRecord)}
}

func (s *MemoryStore) Record(_ context.Context, processor model.ProcessorType, correlationID string, amount float64, requestedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[correlationID]; exists {
		return nil
	}
	s.records[correlationID] = memoryRecord{
		processor:   processor,
		amount:      amount,
		requestedAt: requestedAt.UTC(),
	}
	return nil
}

func (s *MemoryStore) SumInRange(_ context.Context, processor model.ProcessorType, from, to time.Time) (model.ProcessorSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary model.ProcessorSummary
	for _, rec := range s.records {
		if rec.processor != processor {
			continue
		}
		if rec.requestedAt.Before(from.UTC()) || rec.requestedAt.After(to.UTC()) {
			continue
		}
		summary.TotalRequests++
		summary.TotalAmount += rec.amount
	}
	summary.TotalAmount = model.RoundAmount(summary.TotalAmount)
	return summary, nil
}

func (s *MemoryStore) Purge(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]memoryRecord)
	return nil
}
