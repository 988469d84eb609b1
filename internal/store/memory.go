// internal/store/memory.go
//
// In-memory implementation of Store.
//
// Characteristics:
//   - Records kept in a map keyed by ID plus an insertion-ordered slice.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"
	"time"
)

type memory struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string // insertion order, oldest first
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{records: make(map[string]*Record)}
}

func (m *memory) Start(ctx context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.Outcome == "" {
		r.Outcome = OutcomePlaying
	}
	if _, ok := m.records[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.records[r.ID] = &r
	return nil
}

func (m *memory) Finish(ctx context.Context, id string, outcome Outcome, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	r.Outcome = outcome
	r.FinishedAt = &at
	return nil
}

func (m *memory) Bump(ctx context.Context, id string, c Counter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	switch c {
	case CounterQuestions:
		r.Questions++
	case CounterAttempts:
		r.Attempts++
	}
	return nil
}

func (m *memory) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		r := *m.records[m.order[i]]
		if r.FinishedAt != nil {
			at := *r.FinishedAt
			r.FinishedAt = &at
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memory) Close() error { return nil }
