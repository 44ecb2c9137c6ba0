package task

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Notification mirrors the wire schema of a task notification message:
// an id, url, timestamps, and a property map keyed by column name.
type Notification struct {
	ID             string              `json:"id"`
	URL            string              `json:"url"`
	CreatedTime    string              `json:"created_time"`
	LastEditedTime string              `json:"last_edited_time"`
	Properties     map[string]Property `json:"properties"`
}

// Property is one typed column value. Only the field matching Type is
// populated by the upstream API.
type Property struct {
	Type     string       `json:"type"`
	Title    []RichText   `json:"title,omitempty"`
	RichText []RichText   `json:"rich_text,omitempty"`
	Select   *SelectValue `json:"select,omitempty"`
	Status   *SelectValue `json:"status,omitempty"`
	People   []Person     `json:"people,omitempty"`
	URL      string       `json:"url,omitempty"`
	Checkbox bool         `json:"checkbox,omitempty"`
}

// RichText is one fragment of a rich text property.
type RichText struct {
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
}

// SelectValue is the selected option of a select or status property.
type SelectValue struct {
	Name string `json:"name"`
}

// Person identifies a board user.
type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// titleProperties are the column names checked for the task title, in order.
var titleProperties = []string{"Title", "Task", "Name"}

// Decode parses a raw notification body.
func Decode(data []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode task notification: %w", err)
	}
	if n.ID == "" {
		return nil, fmt.Errorf("task notification missing id")
	}
	return &n, nil
}

// ToTask maps a decoded notification to the Task domain value.
func (n *Notification) ToTask(logger *slog.Logger) (Task, error) {
	if logger == nil {
		logger = slog.Default()
	}

	title := extractTitle(n.Properties)
	status := extractStatus(n.Properties, n.ID, logger)

	t, err := New(n.ID, title, status)
	if err != nil {
		return Task{}, err
	}

	t.SourceURL = n.URL
	t.Description = extractRichText(n.Properties, "Description")
	t.AIEmployee = extractText(n.Properties, "AI Employee")
	t.AssignedTo = extractPerson(n.Properties, "assign")
	t.Requester = extractPerson(n.Properties, "created by")
	if t.Requester == "" {
		t.Requester = "Unknown"
	}
	t.GithubURL = extractURL(n.Properties, "Github")
	t.AIProcessed = extractCheckbox(n.Properties, "ai processed")
	t.CreatedTime = parseTime(n.CreatedTime)
	t.LastEditedTime = parseTime(n.LastEditedTime)

	return t, nil
}

func extractTitle(props map[string]Property) string {
	for _, name := range titleProperties {
		p, ok := props[name]
		if !ok || p.Type != "title" {
			continue
		}
		if len(p.Title) > 0 {
			return p.Title[0].Text.Content
		}
	}
	return "Untitled Task"
}

func extractStatus(props map[string]Property, taskID string, logger *slog.Logger) Status {
	p := props["Status"]

	var name string
	switch p.Type {
	case "select":
		if p.Select != nil {
			name = p.Select.Name
		}
	case "status":
		if p.Status != nil {
			name = p.Status.Name
		}
	}

	status, ok := ParseStatus(name)
	if !ok {
		logger.Warn("Unknown task status, defaulting to To Do",
			"task_id", taskID,
			"status", name)
		return StatusToDo
	}
	return status
}

func extractRichText(props map[string]Property, name string) string {
	p, ok := props[name]
	if !ok || p.Type != "rich_text" {
		return ""
	}
	var out string
	for _, rt := range p.RichText {
		out += rt.Text.Content
	}
	return out
}

// extractText pulls a string out of a text-like property, accepting
// rich_text, select, or title typed columns.
func extractText(props map[string]Property, name string) string {
	p, ok := props[name]
	if !ok {
		return ""
	}
	switch p.Type {
	case "rich_text":
		var out string
		for _, rt := range p.RichText {
			out += rt.Text.Content
		}
		return out
	case "select":
		if p.Select != nil {
			return p.Select.Name
		}
	case "title":
		if len(p.Title) > 0 {
			return p.Title[0].Text.Content
		}
	}
	return ""
}

func extractPerson(props map[string]Property, name string) string {
	p, ok := props[name]
	if !ok || p.Type != "people" || len(p.People) == 0 {
		return ""
	}
	person := p.People[0]
	if person.Name != "" {
		return person.Name
	}
	return person.ID
}

func extractURL(props map[string]Property, name string) string {
	p, ok := props[name]
	if !ok || p.Type != "url" {
		return ""
	}
	return p.URL
}

func extractCheckbox(props map[string]Property, name string) bool {
	p, ok := props[name]
	if !ok || p.Type != "checkbox" {
		return false
	}
	return p.Checkbox
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
