package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ghazi-f/ai-kanban/task"
)

// StatusService enforces the task status state machine against the
// board:
//
//	To Do -> In Progress -> Done
//
// Transitions into a state the task already occupies are no-ops.
// Reverting to To Do is allowed from any state so failed work can be
// retried.
type StatusService struct {
	sink   Sink
	logger *slog.Logger
}

// NewStatusService wires the state machine over a board sink.
func NewStatusService(sink Sink, logger *slog.Logger) *StatusService {
	return &StatusService{sink: sink, logger: logger.With("component", "status")}
}

// ToInProgress moves a task to In Progress. Only To Do tasks may start.
func (s *StatusService) ToInProgress(ctx context.Context, t task.Task) error {
	if t.Status == task.StatusInProgress {
		return nil
	}
	if t.Status != task.StatusToDo {
		return fmt.Errorf("invalid transition %q -> %q for task %s", t.Status, task.StatusInProgress, t.ID)
	}
	if err := s.sink.UpdateStatus(ctx, t.ID, task.StatusInProgress); err != nil {
		return fmt.Errorf("update task %s status: %w", t.ID, err)
	}
	s.logger.Info("task in progress", "task_id", t.ID)
	return nil
}

// ToDone moves a task to Done. Only In Progress tasks may complete.
func (s *StatusService) ToDone(ctx context.Context, t task.Task) error {
	if t.Status == task.StatusDone {
		return nil
	}
	if t.Status != task.StatusInProgress {
		return fmt.Errorf("invalid transition %q -> %q for task %s", t.Status, task.StatusDone, t.ID)
	}
	if err := s.sink.UpdateStatus(ctx, t.ID, task.StatusDone); err != nil {
		return fmt.Errorf("update task %s status: %w", t.ID, err)
	}
	s.logger.Info("task done", "task_id", t.ID)
	return nil
}

// RevertToToDo returns a task to To Do regardless of its current state.
func (s *StatusService) RevertToToDo(ctx context.Context, t task.Task) error {
	if err := s.sink.UpdateStatus(ctx, t.ID, task.StatusToDo); err != nil {
		return fmt.Errorf("revert task %s status: %w", t.ID, err)
	}
	s.logger.Info("task reverted", "task_id", t.ID)
	return nil
}
