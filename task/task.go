// Package task defines the task value type routed through the system and
// the mapping from external task notifications.
package task

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a task, using the external
// board's display values.
type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
	StatusCancelled  Status = "Cancelled"
)

// ParseStatus maps a status string to a Status. Unrecognized values
// return false so callers can apply their own default.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusToDo, StatusInProgress, StatusDone, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// Task is an immutable value describing one unit of work pulled from the
// external board. Mutating operations return a modified copy.
type Task struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Status         Status         `json:"status"`
	Description    string         `json:"description"`
	Content        string         `json:"content"`
	AIEmployee     string         `json:"ai_employee"`
	AssignedTo     string         `json:"assigned_to,omitempty"`
	Requester      string         `json:"requester"`
	GithubURL      string         `json:"github_url,omitempty"`
	SourceURL      string         `json:"source_url,omitempty"`
	CreatedTime    *time.Time     `json:"created_time,omitempty"`
	LastEditedTime *time.Time     `json:"last_edited_time,omitempty"`
	AIProcessed    bool           `json:"ai_processed"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// New constructs a Task, enforcing the business invariants: a non-empty
// ID and a non-empty trimmed title.
func New(id, title string, status Status) (Task, error) {
	if id == "" {
		return Task{}, fmt.Errorf("task must have an id")
	}
	if strings.TrimSpace(title) == "" {
		return Task{}, fmt.Errorf("task %s must have a non-empty title", id)
	}
	return Task{ID: id, Title: title, Status: status}, nil
}

// HasAssignee reports whether an artificial employee is assigned.
func (t Task) HasAssignee() bool {
	return strings.TrimSpace(t.AIEmployee) != ""
}

// IsAssignedTo reports whether the task is assigned to the named
// employee, compared case-insensitively with surrounding space ignored.
func (t Task) IsAssignedTo(name string) bool {
	if !t.HasAssignee() {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(t.AIEmployee), strings.TrimSpace(name))
}

// CanBeProcessed reports whether the task is in a processable state:
// status To Do or In Progress with an employee assigned.
func (t Task) CanBeProcessed() bool {
	return (t.Status == StatusToDo || t.Status == StatusInProgress) && t.HasAssignee()
}

// WithContent returns a copy of the task with replaced body content.
func (t Task) WithContent(content string) Task {
	t.Content = content
	return t
}

// WithStatus returns a copy of the task with the given status.
func (t Task) WithStatus(s Status) Task {
	t.Status = s
	return t
}

func (t Task) String() string {
	return fmt.Sprintf("Task(%s %q status=%s assignee=%q)", t.ID, t.Title, t.Status, t.AIEmployee)
}
