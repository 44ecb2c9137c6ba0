package employee

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghazi-f/ai-kanban/event"
)

func writeRoster(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newWatcherFixture(t *testing.T, roster string) (*Watcher, *Registry, *event.MemStore) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "employees.yaml")
	writeRoster(t, path, roster)

	registry := NewRegistry()
	for _, name := range []string{"Engineering Manager", "Research Agent"} {
		emp, err := New("id-"+name, name, "role")
		require.NoError(t, err)
		require.NoError(t, emp.Activate())
		emp.DrainEvents()
		require.NoError(t, registry.Register(emp))
	}

	events := event.NewMemStore()
	w, err := NewWatcher(path, registry, events, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { w.watcher.Close() })

	return w, registry, events
}

func TestLoadRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "employees.yaml")
	writeRoster(t, path, "employees:\n  Research Agent: false\n  Doc Specialist: true\n")

	r, err := LoadRoster(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"Research Agent": false, "Doc Specialist": true}, r.Employees)
}

func TestLoadRosterMissingFile(t *testing.T) {
	_, err := LoadRoster(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyDeactivatesAndPersistsEvents(t *testing.T) {
	w, registry, events := newWatcherFixture(t, "employees:\n  Research Agent: false\n")

	require.NoError(t, w.apply(context.Background()))

	emp, err := registry.Get("Research Agent")
	require.NoError(t, err)
	assert.False(t, emp.IsActive())

	other, err := registry.Get("Engineering Manager")
	require.NoError(t, err)
	assert.True(t, other.IsActive(), "employees absent from the roster stay untouched")

	stored, err := events.ByKind(context.Background(), event.KindEmployeeDeactivated, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestApplyIsIdempotent(t *testing.T) {
	w, _, events := newWatcherFixture(t, "employees:\n  Research Agent: true\n")

	require.NoError(t, w.apply(context.Background()))
	require.NoError(t, w.apply(context.Background()))

	stored, err := events.ByKind(context.Background(), event.KindEmployeeActivated, 10)
	require.NoError(t, err)
	assert.Empty(t, stored, "already-active employee produces no events")
}

func TestApplyIgnoresUnknownNames(t *testing.T) {
	w, _, _ := newWatcherFixture(t, "employees:\n  Ghostwriter: true\n")
	assert.NoError(t, w.apply(context.Background()))
}

func TestApplyMalformedRoster(t *testing.T) {
	w, registry, _ := newWatcherFixture(t, "employees:\n  Research Agent: true\n")
	writeRoster(t, w.path, "{not yaml")

	assert.Error(t, w.apply(context.Background()))

	emp, err := registry.Get("Research Agent")
	require.NoError(t, err)
	assert.True(t, emp.IsActive(), "malformed roster leaves activation untouched")
}
