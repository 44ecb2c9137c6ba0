package workflow

import (
	"log/slog"

	"github.com/ghazi-f/ai-kanban/employee"
	"github.com/ghazi-f/ai-kanban/memory"
)

// NewFactory returns a workflow constructor bound to the given
// dependencies, in the shape the employee factory expects.
func NewFactory(completer Completer, memories memory.Store, enricher Enricher, logger *slog.Logger) employee.WorkflowFactory {
	return func(workflowType string) employee.Workflow {
		opts := []GraphOption{WithLogger(logger)}
		if enricher != nil {
			opts = append(opts, WithEnricher(enricher))
		}
		return NewGraph(workflowType, completer, memories, opts...)
	}
}
