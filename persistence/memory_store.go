package persistence

import (
	"context"
	"sync"
)

// MemoryRunStore is an in-memory implementation of RunStore.
// Suitable for development and testing. Data is lost on restart.
type MemoryRunStore struct {
	runs   map[string]*RunRecord
	mu     sync.RWMutex
	closed bool
}

// NewMemoryRunStore creates a new in-memory run store
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]*RunRecord)}
}

// Close closes the store
func (s *MemoryRunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is healthy
func (s *MemoryRunStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// SaveRun persists a run record
func (s *MemoryRunStore) SaveRun(ctx context.Context, record *RunRecord) error {
	if err := prepare(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.runs[record.ID] = cloneRecord(record)
	return nil
}

// GetRun retrieves a run record by ID
func (s *MemoryRunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	r, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(r), nil
}

// ListRuns retrieves run records matching the filter, newest first
func (s *MemoryRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]*RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		if filter.matches(r) {
			out = append(out, cloneRecord(r))
		}
	}
	return newestFirst(out, filter.Limit), nil
}

// DeleteRun removes a run record
func (s *MemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.runs[id]; !ok {
		return ErrNotFound
	}
	delete(s.runs, id)
	return nil
}
