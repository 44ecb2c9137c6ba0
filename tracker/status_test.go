package tracker

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghazi-f/ai-kanban/task"
)

// recordingSink captures status updates for assertions.
type recordingSink struct {
	LogSink
	mu      sync.Mutex
	updates []task.Status
}

func newRecordingSink() *recordingSink {
	return &recordingSink{LogSink: *NewLogSink(slog.Default())}
}

func (s *recordingSink) UpdateStatus(_ context.Context, _ string, status task.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, status)
	return nil
}

func statusTask(t *testing.T, status task.Status) task.Task {
	t.Helper()
	tk, err := task.New("task-1", "A task", status)
	require.NoError(t, err)
	return tk
}

func TestToInProgress(t *testing.T) {
	sink := newRecordingSink()
	svc := NewStatusService(sink, slog.Default())
	ctx := context.Background()

	require.NoError(t, svc.ToInProgress(ctx, statusTask(t, task.StatusToDo)))
	assert.Equal(t, []task.Status{task.StatusInProgress}, sink.updates)

	// Already in progress: no-op, no update.
	require.NoError(t, svc.ToInProgress(ctx, statusTask(t, task.StatusInProgress)))
	assert.Len(t, sink.updates, 1)

	assert.Error(t, svc.ToInProgress(ctx, statusTask(t, task.StatusDone)))
	assert.Error(t, svc.ToInProgress(ctx, statusTask(t, task.StatusCancelled)))
	assert.Len(t, sink.updates, 1, "invalid transitions must not touch the board")
}

func TestToDone(t *testing.T) {
	sink := newRecordingSink()
	svc := NewStatusService(sink, slog.Default())
	ctx := context.Background()

	require.NoError(t, svc.ToDone(ctx, statusTask(t, task.StatusInProgress)))
	require.NoError(t, svc.ToDone(ctx, statusTask(t, task.StatusDone)))
	assert.Error(t, svc.ToDone(ctx, statusTask(t, task.StatusToDo)))
	assert.Equal(t, []task.Status{task.StatusDone}, sink.updates)
}

func TestRevertToToDoUnconditional(t *testing.T) {
	sink := newRecordingSink()
	svc := NewStatusService(sink, slog.Default())
	ctx := context.Background()

	for _, status := range []task.Status{task.StatusToDo, task.StatusInProgress, task.StatusDone, task.StatusCancelled} {
		require.NoError(t, svc.RevertToToDo(ctx, statusTask(t, status)))
	}
	assert.Len(t, sink.updates, 4)
	for _, got := range sink.updates {
		assert.Equal(t, task.StatusToDo, got)
	}
}
