// Package event defines the domain events emitted by business operations
// and their persistence.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the domain event variants.
type Kind string

const (
	KindTaskProcessed        Kind = "task_processed"
	KindTaskProcessingFailed Kind = "task_processing_failed"
	KindEmployeeActivated    Kind = "employee_activated"
	KindEmployeeDeactivated  Kind = "employee_deactivated"
)

// Event is an immutable record of something that happened in the domain.
type Event struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Kind       Kind           `json:"kind"`
	EmployeeID string         `json:"employee_id,omitempty"`
	TaskID     string         `json:"task_id,omitempty"`
	Detail     string         `json:"detail,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func newEvent(kind Kind) Event {
	return Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
	}
}

// NewTaskProcessed records a successful task processing run.
func NewTaskProcessed(employeeID, taskID, summary string) Event {
	e := newEvent(KindTaskProcessed)
	e.EmployeeID = employeeID
	e.TaskID = taskID
	e.Detail = summary
	return e
}

// NewTaskProcessingFailed records a failed task processing run.
func NewTaskProcessingFailed(employeeID, taskID, errMsg string) Event {
	e := newEvent(KindTaskProcessingFailed)
	e.EmployeeID = employeeID
	e.TaskID = taskID
	e.Detail = errMsg
	return e
}

// NewEmployeeActivated records an employee activation.
func NewEmployeeActivated(employeeID string) Event {
	e := newEvent(KindEmployeeActivated)
	e.EmployeeID = employeeID
	return e
}

// NewEmployeeDeactivated records an employee deactivation.
func NewEmployeeDeactivated(employeeID string) Event {
	e := newEvent(KindEmployeeDeactivated)
	e.EmployeeID = employeeID
	return e
}

// Store persists domain events and answers bounded queries over them.
type Store interface {
	// Append durably records one event.
	Append(ctx context.Context, e Event) error

	// ByKind returns up to limit events of the given kind, most recent
	// first.
	ByKind(ctx context.Context, kind Kind, limit int) ([]Event, error)

	// ByEntity returns up to limit events whose employee or task ID
	// matches entityID, most recent first.
	ByEntity(ctx context.Context, entityID string, limit int) ([]Event, error)
}
