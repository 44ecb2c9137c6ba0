package employee

import (
	"fmt"
	"log/slog"
)

// WorkflowFactory builds a workflow of the given type for a named
// employee. Injected so employees stay decoupled from workflow wiring.
type WorkflowFactory func(workflowType string) Workflow

const engineeringManagerPersona = `You are a Senior Engineering Manager with 10+ years of experience leading technical teams.
You excel at breaking down complex problems into clear, actionable specifications.
You consider scalability, maintainability, and team capabilities in your planning.
You communicate technical concepts clearly to both technical and non-technical stakeholders.
You always provide structured, comprehensive specifications that teams can execute on.`

const researchAgentPersona = `You are a Research Specialist with expertise in gathering and analyzing information across various domains.
You excel at finding credible sources, synthesizing complex information, and identifying key insights.
You present findings objectively with proper analysis and actionable recommendations.
You stay current with industry trends and emerging technologies.
You always provide comprehensive research with multiple perspectives and evidence-based conclusions.`

const docSpecialistPersona = `You are a Technical Documentation Specialist who creates clear, comprehensive documentation.
You excel at explaining complex code and systems in simple, understandable terms.
You create well-structured documentation that serves developers at all skill levels.
You always include practical examples and clear explanations of functionality.
When appropriate, you suggest where visual diagrams would enhance understanding.`

// Factory assembles fully configured employees.
type Factory struct {
	workflows WorkflowFactory
	logger    *slog.Logger
}

// NewFactory wires a factory over the workflow constructor.
func NewFactory(workflows WorkflowFactory, logger *slog.Logger) *Factory {
	return &Factory{workflows: workflows, logger: logger.With("component", "employee-factory")}
}

// EngineeringManager creates the specification-writing employee.
func (f *Factory) EngineeringManager() (*Employee, error) {
	emp, err := New("eng_mgr_001", "EngineeringManager", "Senior Engineering Manager")
	if err != nil {
		return nil, err
	}
	emp.SetPersona(engineeringManagerPersona)
	check, err := NewCompositeCheck([]Check{
		NewAssignmentCheck(),
		NewKeywordCheck([]string{
			"specification", "spec", "requirements", "architecture",
			"design", "plan", "roadmap", "technical approach", "solution design",
		}),
		NewContentLengthCheck(20),
	}, OpAnd)
	if err != nil {
		return nil, fmt.Errorf("configure engineering manager: %w", err)
	}
	emp.AddRule(Rule{Check: check, WorkflowType: "specification", Priority: 10})
	emp.AddWorkflow(f.workflows("specification"))
	f.logger.Info("created employee", "id", emp.ID(), "name", emp.Name())
	return emp, nil
}

// ResearchAgent creates the investigation employee. Its rule is
// deliberately broad: any assigned task with minimal content.
func (f *Factory) ResearchAgent() (*Employee, error) {
	emp, err := New("research_001", "ResearchAgent", "Research Specialist")
	if err != nil {
		return nil, err
	}
	emp.SetPersona(researchAgentPersona)
	check, err := NewCompositeCheck([]Check{
		NewAssignmentCheck(),
		NewContentLengthCheck(15),
	}, OpAnd)
	if err != nil {
		return nil, fmt.Errorf("configure research agent: %w", err)
	}
	emp.AddRule(Rule{Check: check, WorkflowType: "research", Priority: 10})
	emp.AddWorkflow(f.workflows("research"))
	f.logger.Info("created employee", "id", emp.ID(), "name", emp.Name())
	return emp, nil
}

// DocSpecialist creates the documentation employee.
func (f *Factory) DocSpecialist() (*Employee, error) {
	emp, err := New("doc_spec_001", "DocSpecialist", "Technical Documentation Specialist")
	if err != nil {
		return nil, err
	}
	emp.SetPersona(docSpecialistPersona)
	check, err := NewCompositeCheck([]Check{
		NewAssignmentCheck(),
		NewKeywordCheck([]string{
			"documentation", "document", "doc", "readme", "api docs",
			"code", "python", "```", "function", "class", "module",
		}),
		NewContentLengthCheck(10),
	}, OpAnd)
	if err != nil {
		return nil, fmt.Errorf("configure doc specialist: %w", err)
	}
	emp.AddRule(Rule{Check: check, WorkflowType: "documentation", Priority: 10})
	emp.AddWorkflow(f.workflows("documentation"))
	f.logger.Info("created employee", "id", emp.ID(), "name", emp.Name())
	return emp, nil
}

// DefaultRegistry builds a registry holding the default roster, all
// activated.
func (f *Factory) DefaultRegistry() (*Registry, error) {
	registry := NewRegistry()
	builders := []func() (*Employee, error){
		f.EngineeringManager,
		f.ResearchAgent,
		f.DocSpecialist,
	}
	for _, build := range builders {
		emp, err := build()
		if err != nil {
			return nil, err
		}
		if err := emp.Activate(); err != nil {
			return nil, err
		}
		if err := registry.Register(emp); err != nil {
			return nil, err
		}
	}
	f.logger.Info("default registry ready", "employees", len(registry.All()))
	return registry, nil
}
