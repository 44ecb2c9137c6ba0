// Package tracker integrates with the external task board: status
// updates, comments, content retrieval, and processed-task bookkeeping.
package tracker

import (
	"context"
	"log/slog"

	"github.com/ghazi-f/ai-kanban/task"
)

// Sink is the outbound interface to the task board. Implementations
// must be safe for concurrent use.
type Sink interface {
	// UpdateStatus sets the board status of a task.
	UpdateStatus(ctx context.Context, taskID string, status task.Status) error

	// PostComment appends formatted comment blocks to a task page.
	PostComment(ctx context.Context, taskID string, blocks []task.CommentBlock) error

	// GetContent fetches the page body of a task as plain text.
	GetContent(ctx context.Context, taskID string) (string, error)

	// SetProcessedFlag marks the task's processed checkbox on the board.
	SetProcessedFlag(ctx context.Context, taskID string, processed bool) error
}

// LogSink is a Sink that records intended board mutations to the log
// instead of calling a board API. Used when no board credentials are
// configured, and in tests.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink that only logs.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "log-sink")}
}

var _ Sink = (*LogSink)(nil)

func (s *LogSink) UpdateStatus(_ context.Context, taskID string, status task.Status) error {
	s.logger.Info("would update status", "task_id", taskID, "status", status)
	return nil
}

func (s *LogSink) PostComment(_ context.Context, taskID string, blocks []task.CommentBlock) error {
	s.logger.Info("would post comment", "task_id", taskID, "blocks", len(blocks))
	return nil
}

func (s *LogSink) GetContent(_ context.Context, taskID string) (string, error) {
	s.logger.Debug("no board content available", "task_id", taskID)
	return "", nil
}

func (s *LogSink) SetProcessedFlag(_ context.Context, taskID string, processed bool) error {
	s.logger.Info("would set processed flag", "task_id", taskID, "processed", processed)
	return nil
}
