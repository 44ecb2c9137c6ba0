package employee

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ghazi-f/ai-kanban/event"
	"github.com/ghazi-f/ai-kanban/task"
)

// Result is the outcome of running a workflow for a task.
type Result struct {
	TaskID       string            `json:"task_id"`
	EmployeeID   string            `json:"employee_id"`
	WorkflowType string            `json:"workflow_type"`
	Success      bool              `json:"success"`
	Results      map[string]string `json:"results"`
	Errors       []string          `json:"errors,omitempty"`
	Duration     time.Duration     `json:"duration"`
	Model        string            `json:"model,omitempty"`
}

// FinalResponse returns the synthesized response, if the workflow
// produced one.
func (r Result) FinalResponse() string {
	return r.Results["final_response"]
}

// Workflow executes a multi-step process against a task on behalf of an
// employee. Implementations must not panic across the interface
// boundary: an internal failure is reported as a failed Result or an
// error.
type Workflow interface {
	Type() string
	Execute(ctx context.Context, t task.Task, emp *Employee) (Result, error)
}

// Rule pairs a capability check with the workflow to run when it
// matches. Higher priority rules are consulted first.
type Rule struct {
	Check        Check
	WorkflowType string
	Priority     int
}

// Performance is a point-in-time snapshot of an employee's counters.
// TasksProcessed counts every attempt that reached a workflow;
// TasksSucceeded and TasksFailed split it by outcome.
type Performance struct {
	EmployeeID     string        `json:"employee_id"`
	Name           string        `json:"name"`
	Role           string        `json:"role"`
	Active         bool          `json:"active"`
	TasksProcessed int           `json:"tasks_processed"`
	TasksSucceeded int           `json:"tasks_succeeded"`
	TasksFailed    int           `json:"tasks_failed"`
	SuccessRate    float64       `json:"success_rate"`
	TotalDuration  time.Duration `json:"total_duration"`
	LastActivity   time.Time     `json:"last_activity,omitzero"`
	WorkflowTypes  []string      `json:"workflow_types,omitempty"`
}

// Employee is an artificial employee: a named, role-bearing handler
// with prioritized reaction rules mapping matched tasks to workflows.
//
// All state transitions and counters are guarded by a per-employee
// mutex. The mutex is not held while a workflow runs, so two tasks may
// be processed concurrently by the same employee.
type Employee struct {
	id      string
	name    string
	role    string
	persona string

	mu        sync.Mutex
	active    bool
	rules     []Rule
	workflows map[string]Workflow

	tasksProcessed int
	tasksSucceeded int
	tasksFailed    int
	totalDuration  time.Duration
	lastActivity   time.Time

	events []event.Event
}

// New constructs an inactive employee. Name and role must be non-empty.
func New(id, name, role string) (*Employee, error) {
	if id == "" {
		return nil, fmt.Errorf("employee id must not be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("employee name must not be empty")
	}
	if role == "" {
		return nil, fmt.Errorf("employee role must not be empty")
	}
	return &Employee{
		id:        id,
		name:      name,
		role:      role,
		workflows: make(map[string]Workflow),
	}, nil
}

func (e *Employee) ID() string   { return e.id }
func (e *Employee) Name() string { return e.name }
func (e *Employee) Role() string { return e.role }

// Persona returns the system prompt establishing the employee's voice.
func (e *Employee) Persona() string { return e.persona }

// SetPersona sets the employee's system prompt. Called once at
// assembly time, before the employee is shared across goroutines.
func (e *Employee) SetPersona(persona string) { e.persona = persona }

// IsActive reports whether the employee accepts tasks.
func (e *Employee) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Activate marks the employee active and records an activation event.
// Activating an already active employee is an error and records
// nothing.
func (e *Employee) Activate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return fmt.Errorf("%s: %w", e.name, ErrAlreadyActive)
	}
	e.active = true
	e.events = append(e.events, event.NewEmployeeActivated(e.id))
	return nil
}

// Deactivate marks the employee inactive and records a deactivation
// event. Deactivating an already inactive employee is an error and
// records nothing.
func (e *Employee) Deactivate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return fmt.Errorf("%s: %w", e.name, ErrAlreadyInactive)
	}
	e.active = false
	e.events = append(e.events, event.NewEmployeeDeactivated(e.id))
	return nil
}

// AddRule registers a reaction rule. Rules are kept sorted by priority
// descending; equal priorities keep insertion order.
func (e *Employee) AddRule(r Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, r)
	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].Priority > e.rules[j].Priority
	})
}

// AddWorkflow registers a workflow under its type. A later registration
// with the same type replaces the earlier one.
func (e *Employee) AddWorkflow(w Workflow) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workflows[w.Type()] = w
}

// CanHandle reports whether any reaction rule matches the task. An
// inactive employee handles nothing, and a task assigned to someone
// else is never handled no matter what the rules say.
func (e *Employee) CanHandle(t task.Task) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return false
	}
	if !t.IsAssignedTo(e.name) {
		return false
	}
	for _, r := range e.rules {
		if r.Check.Matches(t, e.name) {
			return true
		}
	}
	return false
}

// ResolveWorkflow returns the workflow for the highest-priority matching
// rule whose workflow type is registered. A matching rule naming an
// unregistered workflow is skipped and lower-priority rules are still
// consulted.
func (e *Employee) ResolveWorkflow(t task.Task) (Workflow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return nil, fmt.Errorf("%s: %w", e.name, ErrInactive)
	}
	if !t.IsAssignedTo(e.name) {
		return nil, fmt.Errorf("%s: %w", e.name, ErrCannotHandle)
	}
	matched := false
	for _, r := range e.rules {
		if !r.Check.Matches(t, e.name) {
			continue
		}
		matched = true
		if w, ok := e.workflows[r.WorkflowType]; ok {
			return w, nil
		}
	}
	if !matched {
		return nil, fmt.Errorf("%s: %w", e.name, ErrCannotHandle)
	}
	return nil, fmt.Errorf("%s: %w", e.name, ErrNoWorkflow)
}

// Process runs the resolved workflow for the task and updates counters.
// A workflow that returns an error yields a failed Result rather than
// propagating the error; Process itself errors only when the employee
// is inactive or no workflow can be resolved. Exactly one processing
// event is recorded per call that reaches a workflow.
func (e *Employee) Process(ctx context.Context, t task.Task) (Result, error) {
	w, err := e.ResolveWorkflow(t)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	res, err := w.Execute(ctx, t, e)
	elapsed := time.Since(start)

	if err != nil {
		res = Result{
			TaskID:       t.ID,
			EmployeeID:   e.id,
			WorkflowType: w.Type(),
			Success:      false,
			Results:      map[string]string{},
			Errors:       []string{err.Error()},
		}
	}
	res.TaskID = t.ID
	res.EmployeeID = e.id
	res.Duration = elapsed

	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasksProcessed++
	e.totalDuration += elapsed
	e.lastActivity = time.Now().UTC()
	if res.Success {
		e.tasksSucceeded++
		e.events = append(e.events, event.NewTaskProcessed(e.id, t.ID,
			fmt.Sprintf("workflow %s completed in %s", res.WorkflowType, elapsed.Round(time.Millisecond))))
	} else {
		e.tasksFailed++
		detail := "workflow reported failure"
		if len(res.Errors) > 0 {
			detail = res.Errors[0]
		}
		e.events = append(e.events, event.NewTaskProcessingFailed(e.id, t.ID, detail))
	}
	return res, nil
}

// Snapshot returns the employee's current performance counters.
func (e *Employee) Snapshot() Performance {
	e.mu.Lock()
	defer e.mu.Unlock()
	rate := 0.0
	if e.tasksProcessed > 0 {
		rate = float64(e.tasksSucceeded) / float64(e.tasksProcessed)
	}
	types := make([]string, 0, len(e.workflows))
	for wt := range e.workflows {
		types = append(types, wt)
	}
	sort.Strings(types)
	return Performance{
		EmployeeID:     e.id,
		Name:           e.name,
		Role:           e.role,
		Active:         e.active,
		TasksProcessed: e.tasksProcessed,
		TasksSucceeded: e.tasksSucceeded,
		TasksFailed:    e.tasksFailed,
		SuccessRate:    rate,
		TotalDuration:  e.totalDuration,
		LastActivity:   e.lastActivity,
		WorkflowTypes:  types,
	}
}

// DrainEvents returns accumulated domain events in order and clears the
// queue. Each event is returned exactly once.
func (e *Employee) DrainEvents() []event.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.events
	e.events = nil
	return out
}
