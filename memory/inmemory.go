package memory

import (
	"context"
	"sync"
	"time"
)

// maxEntriesPerEmployee bounds retained memories per employee; oldest
// entries are discarded first.
const maxEntriesPerEmployee = 100

// InMemoryStore is a process-local Store for development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewInMemoryStore returns an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string][]Entry)}
}

// Store saves a memory for the named employee.
func (s *InMemoryStore) Store(_ context.Context, employeeName, text string, metadata map[string]any) error {
	key := normalizeName(employeeName)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.entries[key], Entry{
		Text:      text,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
	if len(entries) > maxEntriesPerEmployee {
		entries = entries[len(entries)-maxEntriesPerEmployee:]
	}
	s.entries[key] = entries
	return nil
}

// Recall returns up to limit memory texts relevant to the query.
func (s *InMemoryStore) Recall(_ context.Context, employeeName, query string, limit int) ([]string, error) {
	s.mu.RLock()
	entries := s.entries[normalizeName(employeeName)]
	s.mu.RUnlock()

	return rank(entries, query, limit), nil
}

// Count returns the number of memories held for the employee.
func (s *InMemoryStore) Count(_ context.Context, employeeName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[normalizeName(employeeName)]), nil
}
