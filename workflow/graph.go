// Package workflow implements the multi-step processes employees run
// against tasks: a small step machine per workflow type, driven by a
// single engine loop.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ghazi-f/ai-kanban/employee"
	"github.com/ghazi-f/ai-kanban/llm"
	"github.com/ghazi-f/ai-kanban/memory"
	"github.com/ghazi-f/ai-kanban/task"
)

// maxEngineSteps bounds cyclic graphs so a workflow that never
// converges fails instead of spinning.
const maxEngineSteps = 25

// maxActionRetries bounds retries of the LLM action after errors.
const maxActionRetries = 2

// minResultLength is the soft lower bound on a usable result.
const minResultLength = 50

// Completer is the slice of the LLM client workflows need.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Enricher fetches external page content referenced by a task.
type Enricher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// step identifies a node in a workflow graph.
type step string

const (
	stepGatherContext    step = "gather_context"
	stepAnalyzeScope     step = "analyze_research_scope"
	stepAnalyzeCode      step = "analyze_code"
	stepExecuteAction    step = "execute_llm_action"
	stepValidateResult   step = "validate_result"
	stepGenerateDiagrams step = "generate_diagrams"
	stepStoreMemory      step = "store_memory"
	stepFinalize         step = "finalize_result"
	stepHandleError      step = "handle_error"
	stepEnd              step = "end"
)

// state is threaded through the nodes of one execution.
type state struct {
	task task.Task
	emp  *employee.Employee

	results       []string
	errors        []string
	memories      []string
	researchScope []string
	codeBlocks    []string
	hasCode       bool
	linkedContent string

	retryCount    int
	finalResponse string
	modelUsed     string
}

func (s *state) lastResult() string {
	if len(s.results) == 0 {
		return ""
	}
	return s.results[len(s.results)-1]
}

// Graph is a workflow of a given type. Graphs are stateless between
// executions and safe for concurrent use.
type Graph struct {
	workflowType string
	llm          Completer
	memories     memory.Store
	enricher     Enricher
	logger       *slog.Logger
}

var _ employee.Workflow = (*Graph)(nil)

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithEnricher enables linked-page content enrichment during context
// gathering.
func WithEnricher(e Enricher) GraphOption {
	return func(g *Graph) { g.enricher = e }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GraphOption {
	return func(g *Graph) { g.logger = logger }
}

// NewGraph builds a workflow graph. Unknown types get the default
// linear graph.
func NewGraph(workflowType string, completer Completer, memories memory.Store, opts ...GraphOption) *Graph {
	g := &Graph{
		workflowType: workflowType,
		llm:          completer,
		memories:     memories,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("workflow", workflowType)
	return g
}

// Type returns the workflow type.
func (g *Graph) Type() string { return g.workflowType }

// Execute runs the graph for the task. Internal failures, including
// panics in nodes, produce a failed result rather than an error.
func (g *Graph) Execute(ctx context.Context, t task.Task, emp *employee.Employee) (res employee.Result, err error) {
	start := time.Now()
	s := &state{task: t, emp: emp}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("workflow panicked", "task_id", t.ID, "panic", r)
			res = employee.Result{
				TaskID:       t.ID,
				EmployeeID:   emp.ID(),
				WorkflowType: g.workflowType,
				Success:      false,
				Results:      map[string]string{},
				Errors:       []string{fmt.Sprintf("workflow panic: %v", r)},
				Duration:     time.Since(start),
			}
			err = nil
		}
	}()

	current := stepGatherContext
	for steps := 0; current != stepEnd; steps++ {
		if steps >= maxEngineSteps {
			s.errors = append(s.errors, fmt.Sprintf("workflow exceeded %d steps without completing", maxEngineSteps))
			break
		}
		if ctx.Err() != nil {
			s.errors = append(s.errors, fmt.Sprintf("workflow cancelled: %v", ctx.Err()))
			break
		}
		g.runNode(ctx, current, s)
		current = g.next(current, s)
	}

	finalResponse := s.finalResponse
	if finalResponse == "" {
		finalResponse = s.lastResult()
	}

	results := map[string]string{}
	if finalResponse != "" {
		results["final_response"] = finalResponse
	}

	return employee.Result{
		TaskID:       t.ID,
		EmployeeID:   emp.ID(),
		WorkflowType: g.workflowType,
		Success:      len(s.errors) == 0 && finalResponse != "",
		Results:      results,
		Errors:       s.errors,
		Duration:     time.Since(start),
		Model:        s.modelUsed,
	}, nil
}

// runNode dispatches one node.
func (g *Graph) runNode(ctx context.Context, current step, s *state) {
	switch current {
	case stepGatherContext:
		g.gatherContext(ctx, s)
	case stepAnalyzeScope:
		g.analyzeResearchScope(s)
	case stepAnalyzeCode:
		g.analyzeCode(s)
	case stepExecuteAction:
		g.executeLLMAction(ctx, s)
	case stepValidateResult:
		g.validateResult(s)
	case stepGenerateDiagrams:
		g.generateDiagrams(s)
	case stepStoreMemory:
		g.storeMemory(ctx, s)
	case stepFinalize:
		g.finalizeResult(s)
	case stepHandleError:
		g.handleError(s)
	}
}

// next computes the successor step for the current workflow type.
func (g *Graph) next(current step, s *state) step {
	switch g.workflowType {
	case "specification":
		return g.nextSpecification(current, s)
	case "research":
		return g.nextResearch(current, s)
	case "documentation":
		return g.nextDocumentation(current, s)
	default:
		return nextDefault(current)
	}
}

func nextDefault(current step) step {
	switch current {
	case stepGatherContext:
		return stepExecuteAction
	case stepExecuteAction:
		return stepValidateResult
	case stepValidateResult:
		return stepStoreMemory
	case stepStoreMemory:
		return stepFinalize
	default:
		return stepEnd
	}
}

func (g *Graph) nextSpecification(current step, s *state) step {
	switch current {
	case stepGatherContext:
		return stepExecuteAction

	case stepExecuteAction:
		if len(s.errors) > 0 {
			if s.retryCount < maxActionRetries {
				s.retryCount++
				return stepGatherContext
			}
			return stepHandleError
		}
		return stepValidateResult

	case stepValidateResult:
		switch g.specCompleteness(s) {
		case "complete":
			return stepStoreMemory
		case "error":
			return stepHandleError
		default:
			return stepExecuteAction
		}

	case stepStoreMemory:
		return stepFinalize
	default:
		return stepEnd
	}
}

// specCompleteness checks the draft for the required sections.
func (g *Graph) specCompleteness(s *state) string {
	if len(s.results) == 0 {
		return "incomplete"
	}
	result := strings.ToLower(s.lastResult())
	for _, section := range []string{"requirements", "approach", "implementation"} {
		if !strings.Contains(result, section) {
			if s.retryCount >= maxActionRetries {
				return "error"
			}
			return "incomplete"
		}
	}
	return "complete"
}

func (g *Graph) nextResearch(current step, s *state) step {
	switch current {
	case stepGatherContext:
		return stepAnalyzeScope
	case stepAnalyzeScope:
		return stepExecuteAction

	case stepExecuteAction:
		// One extra research pass when the first result is thin.
		if s.retryCount < 1 && len(s.results) > 0 && len(s.lastResult()) < 500 {
			s.retryCount++
			return stepAnalyzeScope
		}
		return stepValidateResult

	case stepValidateResult:
		return stepStoreMemory
	case stepStoreMemory:
		return stepFinalize
	default:
		return stepEnd
	}
}

func (g *Graph) nextDocumentation(current step, s *state) step {
	switch current {
	case stepGatherContext:
		return stepAnalyzeCode
	case stepAnalyzeCode:
		return stepExecuteAction

	case stepExecuteAction:
		if s.hasCode {
			return stepGenerateDiagrams
		}
		return stepValidateResult

	case stepGenerateDiagrams:
		return stepValidateResult
	case stepValidateResult:
		return stepStoreMemory
	case stepStoreMemory:
		return stepFinalize
	default:
		return stepEnd
	}
}
