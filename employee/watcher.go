package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/ghazi-f/ai-kanban/event"
)

// rosterDebounce coalesces rapid editor write bursts into one reload.
const rosterDebounce = 500 * time.Millisecond

// Roster is the on-disk activation map: employee name to desired
// active state. Names not present in the roster are left untouched.
type Roster struct {
	Employees map[string]bool `yaml:"employees"`
}

// LoadRoster reads and parses a roster file.
func LoadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster: %w", err)
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("parse roster %s: %w", path, err)
	}
	return r, nil
}

// Watcher reloads the roster file on change and toggles employee
// activation to match, persisting the resulting lifecycle events.
type Watcher struct {
	path     string
	registry *Registry
	events   event.Store
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending bool
}

// NewWatcher creates a roster watcher. The roster file must exist.
func NewWatcher(path string, registry *Registry, events event.Store, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch roster %s: %w", path, err)
	}
	return &Watcher{
		path:     path,
		registry: registry,
		events:   events,
		logger:   logger.With("component", "roster-watcher"),
		watcher:  fw,
	}, nil
}

// Run applies the roster once, then watches for changes until the
// context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.apply(ctx); err != nil {
		w.logger.Error("initial roster load failed", "error", err)
	}

	ticker := time.NewTicker(rosterDebounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = true
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.mu.Lock()
			dirty := w.pending
			w.pending = false
			w.mu.Unlock()
			if !dirty {
				continue
			}
			if err := w.apply(ctx); err != nil {
				w.logger.Error("roster reload failed", "error", err)
			}
		}
	}
}

// apply loads the roster and reconciles employee activation with it.
// A malformed roster leaves current activation untouched.
func (w *Watcher) apply(ctx context.Context) error {
	roster, err := LoadRoster(w.path)
	if err != nil {
		return err
	}

	for name, wantActive := range roster.Employees {
		emp, err := w.registry.Get(name)
		if err != nil {
			w.logger.Warn("roster names unknown employee", "name", name)
			continue
		}
		if emp.IsActive() == wantActive {
			continue
		}
		if wantActive {
			err = emp.Activate()
		} else {
			err = emp.Deactivate()
		}
		if err != nil {
			// Concurrent toggle between the IsActive read and the call.
			if errors.Is(err, ErrAlreadyActive) || errors.Is(err, ErrAlreadyInactive) {
				continue
			}
			w.logger.Error("toggle failed", "name", name, "error", err)
			continue
		}
		w.logger.Info("employee toggled", "name", name, "active", wantActive)
		for _, evt := range emp.DrainEvents() {
			if err := w.events.Append(ctx, evt); err != nil {
				w.logger.Error("persist lifecycle event failed", "kind", evt.Kind, "error", err)
			}
		}
	}
	return nil
}
