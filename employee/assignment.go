package employee

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ghazi-f/ai-kanban/task"
)

// Resolver decides which employee should process a task and explains
// why a task cannot be processed.
type Resolver struct {
	registry *Registry
	logger   *slog.Logger
}

// NewResolver wires a resolver over the registry.
func NewResolver(registry *Registry, logger *slog.Logger) *Resolver {
	return &Resolver{registry: registry, logger: logger.With("component", "resolver")}
}

// Diagnosis explains the outcome of validating a task assignment.
type Diagnosis struct {
	TaskID       string   `json:"task_id"`
	Assignee     string   `json:"assignee"`
	Valid        bool     `json:"valid"`
	EmployeeID   string   `json:"employee_id,omitempty"`
	WorkflowType string   `json:"workflow_type,omitempty"`
	Reasons      []string `json:"reasons,omitempty"`
}

// Validate checks whether the task's assignee can process it, producing
// human-readable reasons on failure. Validate never mutates state.
func (r *Resolver) Validate(t task.Task) Diagnosis {
	d := Diagnosis{TaskID: t.ID, Assignee: t.AIEmployee}

	if !t.HasAssignee() {
		d.Reasons = append(d.Reasons, "task has no AI employee assigned")
		return d
	}

	if !t.CanBeProcessed() {
		d.Reasons = append(d.Reasons, fmt.Sprintf("task status %q is not processable", t.Status))
		return d
	}

	emp, err := r.registry.Get(t.AIEmployee)
	if err != nil {
		d.Reasons = append(d.Reasons, fmt.Sprintf("no employee named %q is registered", t.AIEmployee))
		return d
	}
	d.EmployeeID = emp.ID()

	if !emp.IsActive() {
		d.Reasons = append(d.Reasons, fmt.Sprintf("employee %s is not active", emp.Name()))
		return d
	}

	if !emp.CanHandle(t) {
		d.Reasons = append(d.Reasons, r.explainMismatch(emp, t)...)
		return d
	}

	w, err := emp.ResolveWorkflow(t)
	if err != nil {
		if errors.Is(err, ErrNoWorkflow) {
			d.Reasons = append(d.Reasons, "matching rules name workflows the employee does not have")
		} else {
			d.Reasons = append(d.Reasons, err.Error())
		}
		return d
	}

	d.Valid = true
	d.WorkflowType = w.Type()
	return d
}

func (r *Resolver) explainMismatch(emp *Employee, t task.Task) []string {
	emp.mu.Lock()
	rules := make([]Rule, len(emp.rules))
	copy(rules, emp.rules)
	emp.mu.Unlock()

	if len(rules) == 0 {
		return []string{fmt.Sprintf("employee %s has no reaction rules", emp.Name())}
	}
	reasons := make([]string, 0, len(rules))
	for _, rule := range rules {
		reasons = append(reasons, fmt.Sprintf("rule %s (priority %d): %s",
			rule.WorkflowType, rule.Priority, rule.Check.DescribeFailure(t, emp.Name())))
	}
	return reasons
}

// FindEmployee returns the assigned employee when the task is valid for
// processing, logging the diagnosis otherwise.
func (r *Resolver) FindEmployee(t task.Task) (*Employee, error) {
	d := r.Validate(t)
	if !d.Valid {
		r.logger.Info("task not processable",
			"task_id", t.ID,
			"assignee", t.AIEmployee,
			"reasons", d.Reasons)
		return nil, fmt.Errorf("task %s: %w", t.ID, ErrCannotHandle)
	}
	return r.registry.Get(t.AIEmployee)
}
