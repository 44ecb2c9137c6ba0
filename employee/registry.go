package employee

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds the known employees, keyed by case-insensitive name.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]*Employee
	byID  map[string]*Employee
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey: make(map[string]*Employee),
		byID:  make(map[string]*Employee),
	}
}

func registryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds an employee. Names are unique ignoring case; ids are
// unique exactly.
func (r *Registry) Register(e *Employee) error {
	key := registryKey(e.Name())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[key]; exists {
		return fmt.Errorf("%s: %w", e.Name(), ErrDuplicateName)
	}
	if _, exists := r.byID[e.ID()]; exists {
		return fmt.Errorf("%s: %w", e.ID(), ErrDuplicateID)
	}
	r.byKey[key] = e
	r.byID[e.ID()] = e
	r.order = append(r.order, key)
	return nil
}

// Get looks up an employee by name, ignoring case.
func (r *Registry) Get(name string) (*Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byKey[registryKey(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return e, nil
}

// All returns the registered employees in registration order.
func (r *Registry) All() []*Employee {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Employee, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

// Active returns the active employees in registration order.
func (r *Registry) Active() []*Employee {
	var out []*Employee
	for _, e := range r.All() {
		if e.IsActive() {
			out = append(out, e)
		}
	}
	return out
}

// Stats summarizes the registry for logging and status endpoints.
type Stats struct {
	Total        int           `json:"total"`
	Active       int           `json:"active"`
	Performances []Performance `json:"performances"`
}

// Stats returns registry-wide counts and per-employee snapshots.
func (r *Registry) Stats() Stats {
	all := r.All()
	s := Stats{Total: len(all)}
	for _, e := range all {
		perf := e.Snapshot()
		if perf.Active {
			s.Active++
		}
		s.Performances = append(s.Performances, perf)
	}
	return s
}
