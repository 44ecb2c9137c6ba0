package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghazi-f/ai-kanban/employee"
	"github.com/ghazi-f/ai-kanban/event"
	"github.com/ghazi-f/ai-kanban/task"
	"github.com/ghazi-f/ai-kanban/tracker"
)

type fakeSink struct {
	mu       sync.Mutex
	statuses []task.Status
	comments [][]task.CommentBlock
	flags    map[string]bool

	content    string
	contentErr error
	statusErr  error
}

func newFakeSink() *fakeSink {
	return &fakeSink{flags: map[string]bool{}}
}

func (s *fakeSink) UpdateStatus(_ context.Context, _ string, status task.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return s.statusErr
	}
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *fakeSink) PostComment(_ context.Context, _ string, blocks []task.CommentBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append(s.comments, blocks)
	return nil
}

func (s *fakeSink) GetContent(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content, s.contentErr
}

func (s *fakeSink) SetProcessedFlag(_ context.Context, taskID string, processed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[taskID] = processed
	return nil
}

var _ tracker.Sink = (*fakeSink)(nil)

type stubWorkflow struct {
	workflowType string
	succeed      bool
	lastContent  string
}

func (w *stubWorkflow) Type() string { return w.workflowType }

func (w *stubWorkflow) Execute(_ context.Context, t task.Task, emp *employee.Employee) (employee.Result, error) {
	w.lastContent = t.Content
	if !w.succeed {
		return employee.Result{
			WorkflowType: w.workflowType,
			Success:      false,
			Results:      map[string]string{},
			Errors:       []string{"model unavailable"},
		}, nil
	}
	return employee.Result{
		WorkflowType: w.workflowType,
		Success:      true,
		Results:      map[string]string{"final_response": "analysis of " + t.Title},
		Model:        "claude-3-5-sonnet-20241022",
	}, nil
}

func notificationBody(t *testing.T, id, title, status, assignee string, processed bool) []byte {
	t.Helper()

	n := task.Notification{
		ID:  id,
		URL: "https://board.example/" + id,
		Properties: map[string]task.Property{
			"Task": {Type: "title", Title: []task.RichText{textOf(title)}},
			"Status": {Type: "select", Select: &task.SelectValue{
				Name: status,
			}},
			"AI Employee": {Type: "select", Select: &task.SelectValue{
				Name: assignee,
			}},
			"ai processed": {Type: "checkbox", Checkbox: processed},
		},
	}
	data, err := json.Marshal(n)
	require.NoError(t, err)
	return data
}

func textOf(content string) task.RichText {
	var rt task.RichText
	rt.Text.Content = content
	return rt
}

type fixture struct {
	consumer *Consumer
	sink     *fakeSink
	events   *event.MemStore
	workflow *stubWorkflow
}

func newFixture(t *testing.T, succeed bool) *fixture {
	t.Helper()

	logger := slog.Default()

	emp, err := employee.New("emp-1", "Research Agent", "Researcher")
	require.NoError(t, err)
	wf := &stubWorkflow{workflowType: "research", succeed: succeed}
	emp.AddRule(employee.Rule{Check: employee.NewAssignmentCheck(), WorkflowType: "research", Priority: 10})
	emp.AddWorkflow(wf)
	require.NoError(t, emp.Activate())
	emp.DrainEvents()

	registry := employee.NewRegistry()
	require.NoError(t, registry.Register(emp))

	sink := newFakeSink()
	events := event.NewMemStore()

	cfg := DefaultConfig()
	cfg.ProcessTimeout = time.Second

	c, err := New(cfg, nil, Deps{
		Resolver:  employee.NewResolver(registry, logger),
		Status:    tracker.NewStatusService(sink, logger),
		Sink:      sink,
		Processed: tracker.NewProcessedSet(filepath.Join(t.TempDir(), "processed.json"), logger),
		Events:    events,
		Logger:    logger,
	})
	require.NoError(t, err)

	return &fixture{consumer: c, sink: sink, events: events, workflow: wf}
}

func TestProcessTaskSuccess(t *testing.T) {
	f := newFixture(t, true)
	body := notificationBody(t, "task-1", "Investigate caching", "To Do", "Research Agent", false)

	d := f.consumer.processTask(context.Background(), body)

	assert.Equal(t, ackTask, d)
	assert.Equal(t, []task.Status{task.StatusInProgress, task.StatusDone}, f.sink.statuses)
	require.Len(t, f.sink.comments, 1)
	assert.True(t, f.sink.flags["task-1"])

	stats := f.consumer.GetStats()
	assert.Equal(t, int64(1), stats.TasksProcessed)
	assert.Equal(t, int64(0), stats.TasksFailed)

	processed, err := f.events.ByKind(context.Background(), event.KindTaskProcessed, 10)
	require.NoError(t, err)
	assert.Len(t, processed, 1)
}

func TestProcessTaskWorkflowFailureReverts(t *testing.T) {
	f := newFixture(t, false)
	body := notificationBody(t, "task-2", "Doomed task", "To Do", "Research Agent", false)

	d := f.consumer.processTask(context.Background(), body)

	assert.Equal(t, ackTask, d)
	assert.Equal(t, []task.Status{task.StatusInProgress, task.StatusToDo}, f.sink.statuses)
	assert.Empty(t, f.sink.comments)
	assert.False(t, f.sink.flags["task-2"])

	stats := f.consumer.GetStats()
	assert.Equal(t, int64(1), stats.TasksFailed)

	failed, err := f.events.ByKind(context.Background(), event.KindTaskProcessingFailed, 10)
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestProcessTaskPoisonMessageAcked(t *testing.T) {
	f := newFixture(t, true)

	d := f.consumer.processTask(context.Background(), []byte("{not json"))

	assert.Equal(t, ackTask, d)
	assert.Empty(t, f.sink.statuses)
	assert.Equal(t, int64(1), f.consumer.GetStats().TasksSkipped)
}

func TestProcessTaskUnknownAssigneeSkipped(t *testing.T) {
	f := newFixture(t, true)
	body := notificationBody(t, "task-3", "Unrouteable", "To Do", "Ghostwriter", false)

	d := f.consumer.processTask(context.Background(), body)

	assert.Equal(t, ackTask, d)
	assert.Empty(t, f.sink.statuses)
	assert.Equal(t, int64(1), f.consumer.GetStats().TasksSkipped)
}

func TestProcessTaskDeduplicates(t *testing.T) {
	f := newFixture(t, true)
	body := notificationBody(t, "task-4", "Do once", "To Do", "Research Agent", false)

	assert.Equal(t, ackTask, f.consumer.processTask(context.Background(), body))
	assert.Equal(t, ackTask, f.consumer.processTask(context.Background(), body))

	stats := f.consumer.GetStats()
	assert.Equal(t, int64(1), stats.TasksProcessed)
	assert.Equal(t, int64(1), stats.TasksSkipped)
	assert.Len(t, f.sink.comments, 1)
}

func TestProcessTaskAlreadyFlaggedSkipped(t *testing.T) {
	f := newFixture(t, true)
	body := notificationBody(t, "task-5", "Already done", "To Do", "Research Agent", true)

	assert.Equal(t, ackTask, f.consumer.processTask(context.Background(), body))
	assert.Empty(t, f.sink.statuses)
	assert.Equal(t, int64(1), f.consumer.GetStats().TasksSkipped)
}

func TestProcessTaskBackfillsContent(t *testing.T) {
	f := newFixture(t, true)
	f.sink.content = "full page body"
	body := notificationBody(t, "task-6", "Needs content", "To Do", "Research Agent", false)

	f.consumer.processTask(context.Background(), body)

	assert.Equal(t, "full page body", f.workflow.lastContent)
}

func TestProcessTaskStatusErrorSkips(t *testing.T) {
	f := newFixture(t, true)
	f.sink.statusErr = fmt.Errorf("board unreachable")
	body := notificationBody(t, "task-7", "Stuck", "To Do", "Research Agent", false)

	d := f.consumer.processTask(context.Background(), body)

	assert.Equal(t, ackTask, d)
	assert.Equal(t, int64(0), f.consumer.GetStats().TasksProcessed)
	assert.Equal(t, int64(1), f.consumer.GetStats().TasksSkipped)
}

func TestProcessTaskCancelledContextNaks(t *testing.T) {
	f := newFixture(t, true)
	body := notificationBody(t, "task-8", "Late arrival", "To Do", "Research Agent", false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := f.consumer.processTask(ctx, body)

	assert.Equal(t, nakTask, d)
	assert.Empty(t, f.sink.statuses)
}

// gatedWorkflow blocks inside Execute until released and records the
// in-flight high-water mark.
type gatedWorkflow struct {
	entered   chan struct{}
	release   chan struct{}
	inFlight  atomic.Int32
	highWater atomic.Int32
}

func (w *gatedWorkflow) Type() string { return "research" }

func (w *gatedWorkflow) Execute(_ context.Context, _ task.Task, _ *employee.Employee) (employee.Result, error) {
	cur := w.inFlight.Add(1)
	defer w.inFlight.Add(-1)
	for {
		prev := w.highWater.Load()
		if cur <= prev || w.highWater.CompareAndSwap(prev, cur) {
			break
		}
	}
	w.entered <- struct{}{}
	<-w.release
	return employee.Result{
		WorkflowType: "research",
		Success:      true,
		Results:      map[string]string{"final_response": "done"},
	}, nil
}

func TestAdmissionGateBoundsConcurrency(t *testing.T) {
	const gate = 2

	logger := slog.Default()
	wf := &gatedWorkflow{
		entered: make(chan struct{}, gate+1),
		release: make(chan struct{}),
	}

	emp, err := employee.New("emp-1", "Research Agent", "Researcher")
	require.NoError(t, err)
	emp.AddRule(employee.Rule{Check: employee.NewAssignmentCheck(), WorkflowType: "research", Priority: 10})
	emp.AddWorkflow(wf)
	require.NoError(t, emp.Activate())
	emp.DrainEvents()

	registry := employee.NewRegistry()
	require.NoError(t, registry.Register(emp))

	sink := newFakeSink()
	cfg := DefaultConfig()
	cfg.MaxConcurrent = gate
	cfg.ProcessTimeout = 5 * time.Second

	c, err := New(cfg, nil, Deps{
		Resolver:  employee.NewResolver(registry, logger),
		Status:    tracker.NewStatusService(sink, logger),
		Sink:      sink,
		Processed: tracker.NewProcessedSet(filepath.Join(t.TempDir(), "processed.json"), logger),
		Events:    event.NewMemStore(),
		Logger:    logger,
	})
	require.NoError(t, err)

	// Run gate+1 deliveries through the same admission sequence the
	// consume loop uses: take a slot, process, release.
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < gate+1; i++ {
		body := notificationBody(t, fmt.Sprintf("gated-%d", i), "Long analysis", "To Do", "Research Agent", false)
		wg.Add(1)
		go func(body []byte) {
			defer wg.Done()
			if !c.acquireSlot(ctx) {
				return
			}
			defer c.releaseSlot()
			c.processTask(ctx, body)
		}(body)
	}

	for i := 0; i < gate; i++ {
		select {
		case <-wf.entered:
		case <-time.After(2 * time.Second):
			t.Fatal("workflow did not start in time")
		}
	}
	select {
	case <-wf.entered:
		t.Fatal("workflow started beyond the admission gate")
	case <-time.After(100 * time.Millisecond):
	}

	close(wf.release)
	wg.Wait()

	assert.Equal(t, int32(gate), wf.highWater.Load())
	assert.Equal(t, int64(gate+1), c.GetStats().TasksProcessed)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.MaxConcurrent = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Stream = ""
	assert.Error(t, cfg.Validate())
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(DefaultConfig(), nil, Deps{})
	assert.Error(t, err)
}
