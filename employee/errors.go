package employee

import "errors"

var (
	// ErrAlreadyActive is returned when activating an active employee.
	ErrAlreadyActive = errors.New("employee already active")
	// ErrAlreadyInactive is returned when deactivating an inactive employee.
	ErrAlreadyInactive = errors.New("employee already inactive")
	// ErrInactive is returned when an inactive employee is asked to process.
	ErrInactive = errors.New("employee is not active")
	// ErrCannotHandle is returned when no reaction rule matches the task.
	ErrCannotHandle = errors.New("employee cannot handle task")
	// ErrNoWorkflow is returned when no matching rule names a registered workflow.
	ErrNoWorkflow = errors.New("no workflow registered for task")
	// ErrDuplicateName is returned when registering a name already taken.
	ErrDuplicateName = errors.New("employee name already registered")
	// ErrDuplicateID is returned when registering an id already taken.
	ErrDuplicateID = errors.New("employee id already registered")
	// ErrNotFound is returned when looking up an unknown employee.
	ErrNotFound = errors.New("employee not found")
)
