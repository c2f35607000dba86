package records

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory record store used when no database is
// configured, and by tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]FocusRecord
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]FocusRecord)}
}

func (m *MemoryRepository) Add(_ context.Context, record FocusRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[record.ID]; exists {
		return ErrDuplicateID
	}
	m.records[record.ID] = record
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (FocusRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[id]
	if !ok {
		return FocusRecord{}, ErrNotFound
	}
	return record, nil
}

// List returns all records ordered by creation time, oldest first.
func (m *MemoryRepository) List(_ context.Context) ([]FocusRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]FocusRecord, 0, len(m.records))
	for _, record := range m.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepository) AttachSelfReport(_ context.Context, id string, report SelfReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	record.SelfReport = &report
	m.records[id] = record
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryRepository) DeleteMany(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}
