package dispatch

import "sync"

// Metrics counts dispatcher activity for the instance health endpoint.
type Metrics struct {
	mu         sync.RWMutex
	dispatched uint64
	requeued   uint64
	duplicates uint64
	batches    uint64
}

type MetricsSnapshot struct {
	Dispatched uint64 `json:"dispatched"`
	Requeued   uint64 `json:"requeued"`
	Duplicates uint64 `json:"duplicates"`
	Batches    uint64 `json:"batches"`
}

func (m *Metrics) addDispatched() {
	m.mu.Lock()
	m.dispatched++
	m.mu.Unlock()
}

func (m *Metrics) addRequeued() {
	m.mu.Lock()
	m.requeued++
	m.mu.Unlock()
}

func (m *Metrics) addDuplicate() {
	m.mu.Lock()
	m.duplicates++
	m.mu.Unlock()
}

func (m *Metrics) addBatch() {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
}

func (m *Metrics) snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		Dispatched: m.dispatched,
		Requeued:   m.requeued,
		Duplicates: m.duplicates,
		Batches:    m.batches,
	}
}
