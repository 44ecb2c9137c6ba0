// Package employee implements the artificial employee aggregate: the
// capability check system, prioritized reaction rules, the registry,
// and task processing.
package employee

import (
	"fmt"
	"strings"

	"github.com/ghazi-f/ai-kanban/task"
)

// CheckKind enumerates the closed set of capability check variants.
type CheckKind string

const (
	CheckAssignment    CheckKind = "assignment"
	CheckKeyword       CheckKind = "keyword"
	CheckStatus        CheckKind = "status"
	CheckContentLength CheckKind = "content_length"
	CheckComposite     CheckKind = "composite"
)

// CompositeOp combines sub-checks.
type CompositeOp string

const (
	OpAnd CompositeOp = "AND"
	OpOr  CompositeOp = "OR"
)

// defaultKeywordFields are the task fields searched by keyword checks.
var defaultKeywordFields = []string{"title", "description", "content"}

// Check evaluates whether a task matches a condition for an employee.
// Checks are pure: all configuration is fixed at construction and
// Matches has no side effects.
type Check struct {
	kind      CheckKind
	keywords  []string
	fields    []string
	statuses  map[task.Status]struct{}
	minLength int
	subs      []Check
	op        CompositeOp
}

// NewAssignmentCheck matches tasks assigned to the evaluating employee.
func NewAssignmentCheck() Check {
	return Check{kind: CheckAssignment}
}

// NewKeywordCheck matches tasks whose named fields contain any keyword.
// Keywords are lower-cased at construction; fields defaults to
// title, description, and content.
func NewKeywordCheck(keywords []string, fields ...string) Check {
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	if len(fields) == 0 {
		fields = defaultKeywordFields
	}
	return Check{kind: CheckKeyword, keywords: lowered, fields: fields}
}

// NewStatusCheck matches tasks in any of the given statuses. Strings
// that do not parse as a status are silently discarded.
func NewStatusCheck(statuses []string) Check {
	set := make(map[task.Status]struct{})
	for _, s := range statuses {
		if status, ok := task.ParseStatus(s); ok {
			set[status] = struct{}{}
		}
	}
	return Check{kind: CheckStatus, statuses: set}
}

// NewContentLengthCheck matches tasks whose combined title, description,
// and content meet a minimum trimmed length.
func NewContentLengthCheck(minLength int) Check {
	return Check{kind: CheckContentLength, minLength: minLength}
}

// NewCompositeCheck combines sub-checks with AND or OR. An operator
// outside AND/OR is a configuration error. An empty sub-check list never
// matches regardless of operator, so a misconfigured rule cannot become
// a blanket match.
func NewCompositeCheck(subs []Check, op CompositeOp) (Check, error) {
	op = CompositeOp(strings.ToUpper(string(op)))
	if op != OpAnd && op != OpOr {
		return Check{}, fmt.Errorf("unsupported composite operator: %s", op)
	}
	return Check{kind: CheckComposite, subs: subs, op: op}, nil
}

// Kind returns the check variant.
func (c Check) Kind() CheckKind { return c.kind }

// Matches reports whether the task satisfies the check for the named
// employee.
func (c Check) Matches(t task.Task, employeeName string) bool {
	switch c.kind {
	case CheckAssignment:
		return t.IsAssignedTo(employeeName)

	case CheckKeyword:
		text := strings.ToLower(c.searchText(t))
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false

	case CheckStatus:
		_, ok := c.statuses[t.Status]
		return ok

	case CheckContentLength:
		combined := strings.TrimSpace(t.Title + " " + t.Description + " " + t.Content)
		return len(combined) >= c.minLength

	case CheckComposite:
		if len(c.subs) == 0 {
			return false
		}
		if c.op == OpAnd {
			for _, sub := range c.subs {
				if !sub.Matches(t, employeeName) {
					return false
				}
			}
			return true
		}
		for _, sub := range c.subs {
			if sub.Matches(t, employeeName) {
				return true
			}
		}
		return false
	}
	return false
}

func (c Check) searchText(t task.Task) string {
	var b strings.Builder
	for _, field := range c.fields {
		switch field {
		case "title":
			b.WriteString(" " + t.Title)
		case "description":
			b.WriteString(" " + t.Description)
		case "content":
			b.WriteString(" " + t.Content)
		}
	}
	return b.String()
}

// DescribeFailure explains why the check did not match, for resolver
// diagnostics. The description never influences control flow.
func (c Check) DescribeFailure(t task.Task, employeeName string) string {
	switch c.kind {
	case CheckAssignment:
		if !t.IsAssignedTo(employeeName) {
			return fmt.Sprintf("task not assigned to %s (assigned to %q)", employeeName, t.AIEmployee)
		}
		return "assignment check passed"

	case CheckKeyword:
		text := strings.ToLower(c.searchText(t))
		var found, missing []string
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				found = append(found, kw)
			} else {
				missing = append(missing, kw)
			}
		}
		return fmt.Sprintf("missing keywords %v (found %v)", missing, found)

	case CheckStatus:
		allowed := make([]string, 0, len(c.statuses))
		for s := range c.statuses {
			allowed = append(allowed, string(s))
		}
		return fmt.Sprintf("status %q not in required statuses %v", t.Status, allowed)

	case CheckContentLength:
		combined := strings.TrimSpace(t.Title + " " + t.Description + " " + t.Content)
		return fmt.Sprintf("content too short: %d chars < %d required", len(combined), c.minLength)

	case CheckComposite:
		var failures []string
		for _, sub := range c.subs {
			if !sub.Matches(t, employeeName) {
				failures = append(failures, fmt.Sprintf("%s: %s", sub.kind, sub.DescribeFailure(t, employeeName)))
			}
		}
		if len(failures) == 0 && len(c.subs) == 0 {
			failures = append(failures, "no sub-checks configured")
		}
		return fmt.Sprintf("composite %s failed: [%s]", c.op, strings.Join(failures, "; "))
	}
	return "unknown check kind"
}
