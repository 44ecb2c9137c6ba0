package event

import (
	"context"
	"sync"
)

// MemStore is an in-memory Store used in tests and single-process runs
// without a NATS backend.
type MemStore struct {
	mu     sync.Mutex
	events []Event
}

// NewMemStore returns an empty in-memory event store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Append records one event.
func (s *MemStore) Append(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// ByKind returns up to limit events of the given kind, most recent first.
func (s *MemStore) ByKind(_ context.Context, kind Kind, limit int) ([]Event, error) {
	return s.filter(limit, func(e Event) bool { return e.Kind == kind }), nil
}

// ByEntity returns up to limit events referencing the entity, most
// recent first.
func (s *MemStore) ByEntity(_ context.Context, entityID string, limit int) ([]Event, error) {
	return s.filter(limit, func(e Event) bool {
		return e.EmployeeID == entityID || e.TaskID == entityID
	}), nil
}

func (s *MemStore) filter(limit int, keep func(Event) bool) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(s.events[i]) {
			out = append(out, s.events[i])
		}
	}
	return out
}
