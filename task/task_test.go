package task

import (
	"strings"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"To Do", StatusToDo, true},
		{"In Progress", StatusInProgress, true},
		{"Done", StatusDone, true},
		{"Cancelled", StatusCancelled, true},
		{"Backlog", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseStatus(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New("", "title", StatusToDo); err == nil {
		t.Error("expected error for empty id")
	}
	if _, err := New("t-1", "   ", StatusToDo); err == nil {
		t.Error("expected error for blank title")
	}
	if _, err := New("t-1", "ok", StatusToDo); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIsAssignedTo(t *testing.T) {
	tk := Task{ID: "t-1", Title: "x", AIEmployee: "  Research Agent "}
	if !tk.IsAssignedTo("research agent") {
		t.Error("assignment comparison should ignore case and space")
	}
	if tk.IsAssignedTo("Doc Specialist") {
		t.Error("wrong name matched")
	}
	if (Task{}).IsAssignedTo("anyone") {
		t.Error("unassigned task matched")
	}
}

func TestCanBeProcessed(t *testing.T) {
	tk := Task{ID: "t", Title: "x", Status: StatusToDo, AIEmployee: "Research Agent"}
	if !tk.CanBeProcessed() {
		t.Error("To Do with assignee should be processable")
	}
	if tk.WithStatus(StatusDone).CanBeProcessed() {
		t.Error("Done task should not be processable")
	}
	tk.AIEmployee = ""
	if tk.CanBeProcessed() {
		t.Error("unassigned task should not be processable")
	}
}

func TestWithContentCopies(t *testing.T) {
	tk := Task{ID: "t", Title: "x"}
	got := tk.WithContent("body")
	if got.Content != "body" || tk.Content != "" {
		t.Error("WithContent must not mutate the receiver")
	}
}

func TestChunkTextShort(t *testing.T) {
	got := ChunkText("short", 100)
	if len(got) != 1 || got[0] != "short" {
		t.Errorf("got %v", got)
	}
}

func TestChunkTextParagraphBoundary(t *testing.T) {
	a := strings.Repeat("a", 60)
	b := strings.Repeat("b", 60)
	got := ChunkText(a+"\n\n"+b, 100)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("expected split at paragraph break, got %d chunks", len(got))
	}
}

func TestChunkTextWordBoundary(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 50))
	got := ChunkText(text, 40)
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	for _, c := range got {
		if len(c) > 40 {
			t.Errorf("chunk exceeds limit: %d chars", len(c))
		}
		if strings.HasPrefix(c, " ") || strings.HasSuffix(c, " ") {
			t.Errorf("chunk has boundary whitespace: %q", c)
		}
	}
	if strings.Join(got, " ") != text {
		t.Error("chunks do not reassemble to the original text")
	}
}

func TestCommentBlocksShape(t *testing.T) {
	blocks := CommentBlocks("the analysis", "Research Agent", "claude-3-5-sonnet-20241022")
	if len(blocks) != 3 {
		t.Fatalf("expected header, body, attribution; got %d blocks", len(blocks))
	}
	if blocks[0].Type != "callout" {
		t.Errorf("first block type = %q", blocks[0].Type)
	}
	header := blocks[0].Callout.RichText[0].Text.Content
	if !strings.Contains(header, "Research Agent") {
		t.Errorf("header missing employee name: %q", header)
	}
	if blocks[1].Type != "paragraph" || blocks[1].Paragraph.RichText[0].Text.Content != "the analysis" {
		t.Error("body paragraph malformed")
	}
	tail := blocks[2].Paragraph.RichText[0].Text.Content
	if tail != "Model: claude-3-5-sonnet-20241022" {
		t.Errorf("attribution = %q", tail)
	}
}

func TestDecodeRejectsMissingID(t *testing.T) {
	if _, err := Decode([]byte(`{"url": "https://x"}`)); err == nil {
		t.Error("expected error for missing id")
	}
	if _, err := Decode([]byte(`{bad`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestToTaskMapsProperties(t *testing.T) {
	body := []byte(`{
		"id": "task-9",
		"url": "https://board.example/task-9",
		"created_time": "2026-08-01T10:00:00Z",
		"properties": {
			"Task": {"type": "title", "title": [{"text": {"content": "Write the report"}}]},
			"Status": {"type": "status", "status": {"name": "In Progress"}},
			"Description": {"type": "rich_text", "rich_text": [{"text": {"content": "quarterly "}}, {"text": {"content": "numbers"}}]},
			"AI Employee": {"type": "select", "select": {"name": "Doc Specialist"}},
			"created by": {"type": "people", "people": [{"id": "u1", "name": "Sam"}]},
			"Github": {"type": "url", "url": "https://github.com/org/repo"},
			"ai processed": {"type": "checkbox", "checkbox": true}
		}
	}`)

	n, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	tk, err := n.ToTask(nil)
	if err != nil {
		t.Fatalf("ToTask: %v", err)
	}

	if tk.ID != "task-9" || tk.Title != "Write the report" {
		t.Errorf("identity mapping wrong: %v", tk)
	}
	if tk.Status != StatusInProgress {
		t.Errorf("Status = %q", tk.Status)
	}
	if tk.Description != "quarterly numbers" {
		t.Errorf("Description = %q", tk.Description)
	}
	if tk.AIEmployee != "Doc Specialist" {
		t.Errorf("AIEmployee = %q", tk.AIEmployee)
	}
	if tk.Requester != "Sam" {
		t.Errorf("Requester = %q", tk.Requester)
	}
	if tk.GithubURL != "https://github.com/org/repo" {
		t.Errorf("GithubURL = %q", tk.GithubURL)
	}
	if !tk.AIProcessed {
		t.Error("AIProcessed not mapped")
	}
	if tk.SourceURL != "https://board.example/task-9" {
		t.Errorf("SourceURL = %q", tk.SourceURL)
	}
	if tk.CreatedTime == nil {
		t.Error("CreatedTime not parsed")
	}
}

func TestToTaskDefaults(t *testing.T) {
	n, err := Decode([]byte(`{"id": "task-10", "properties": {}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	tk, err := n.ToTask(nil)
	if err != nil {
		t.Fatalf("ToTask: %v", err)
	}
	if tk.Title != "Untitled Task" {
		t.Errorf("Title = %q", tk.Title)
	}
	if tk.Status != StatusToDo {
		t.Errorf("Status = %q, want default To Do", tk.Status)
	}
	if tk.Requester != "Unknown" {
		t.Errorf("Requester = %q", tk.Requester)
	}
}
