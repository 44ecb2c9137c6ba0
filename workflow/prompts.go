package workflow

import (
	"fmt"
	"strings"
)

const specificationPrompt = `Create a detailed technical specification including:
- Clear problem statement and objectives
- Functional requirements (what the system should do)
- Non-functional requirements (performance, security, scalability)
- Technical approach and architecture overview
- Implementation milestones and timeline
- Success criteria and acceptance criteria
- Risk assessment and mitigation strategies

Format your response as a structured document with clear sections.`

const researchPrompt = `Conduct thorough research and provide:
- Executive summary of key findings
- Detailed analysis of the research topic
- Multiple perspectives and sources of information
- Data and evidence to support conclusions
- Actionable recommendations based on findings
- Proper citations and references
- Implications and next steps

Be comprehensive but focus on actionable insights.`

const documentationPrompt = `Create comprehensive technical documentation including:
- Clear overview of what the code does
- Detailed explanation of key functions and classes
- API documentation with parameters and return values
- Usage examples and code snippets
- Architecture overview and design patterns
- Installation and setup instructions (if applicable)
- Troubleshooting and common issues

Write for developers who need to understand, use, or maintain this code.
If code analysis suggests complex architecture, mention where diagrams would be helpful.`

const defaultPrompt = `Analyze and respond to the task appropriately with detailed, helpful information.`

// actionPrompt returns the workflow-specific instructions.
func (g *Graph) actionPrompt() string {
	switch g.workflowType {
	case "specification":
		return specificationPrompt
	case "research":
		return researchPrompt
	case "documentation":
		return documentationPrompt
	default:
		return defaultPrompt
	}
}

// buildPrompt assembles the user prompt from the action instructions,
// task details, workflow context, and recalled memories.
func (g *Graph) buildPrompt(s *state) string {
	var b strings.Builder

	b.WriteString(g.actionPrompt())
	b.WriteString("\n\n## Task Details\n")
	fmt.Fprintf(&b, "Title: %s\n", s.task.Title)
	fmt.Fprintf(&b, "Description: %s\n", s.task.Description)
	fmt.Fprintf(&b, "Content: %s\n", s.task.Content)
	github := s.task.GithubURL
	if github == "" {
		github = "Not specified"
	}
	fmt.Fprintf(&b, "GitHub: %s\n", github)

	if g.workflowType == "research" && len(s.researchScope) > 0 {
		b.WriteString("\n## Research Scope\nFocus on these specific questions/topics:\n")
		for _, scope := range s.researchScope {
			fmt.Fprintf(&b, "- %s\n", scope)
		}
	}
	if g.workflowType == "documentation" && len(s.codeBlocks) > 0 {
		fmt.Fprintf(&b, "\n## Code Analysis\nFound %d code blocks to document.\n", len(s.codeBlocks))
	}

	if s.linkedContent != "" {
		b.WriteString("\n## Linked Page Content\n")
		b.WriteString(s.linkedContent)
		b.WriteString("\n")
	}

	if len(s.memories) > 0 {
		b.WriteString("\n## Relevant Memories\nThese are relevant memories from your previous work:\n")
		for _, m := range s.memories {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}

	b.WriteString("\nProvide your response:")
	return b.String()
}
