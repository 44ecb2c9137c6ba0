// Package consumer pulls task notifications from JetStream and routes
// each task to the capable artificial employee. It owns the delivery
// policy: duplicates and unprocessable tasks are acknowledged and
// skipped, workflow failures revert the task to To Do and ack, and a
// message caught by shutdown is left for redelivery.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/ghazi-f/ai-kanban/employee"
	"github.com/ghazi-f/ai-kanban/event"
	"github.com/ghazi-f/ai-kanban/task"
	"github.com/ghazi-f/ai-kanban/tracker"
)

// disposition is the terminal outcome for a delivered message.
type disposition int

const (
	// ackTask removes the message: processed, duplicate, or poison.
	ackTask disposition = iota
	// nakTask requests redelivery after a transient failure.
	nakTask
)

// Deps are the collaborators the consumer drives.
type Deps struct {
	Resolver  *employee.Resolver
	Status    *tracker.StatusService
	Sink      tracker.Sink
	Processed *tracker.ProcessedSet
	Events    event.Store
	Logger    *slog.Logger
}

// Consumer is the JetStream worker loop.
type Consumer struct {
	config Config
	js     jetstream.JetStream
	logger *slog.Logger

	resolver  *employee.Resolver
	status    *tracker.StatusService
	sink      tracker.Sink
	processed *tracker.ProcessedSet
	events    event.Store

	consumer jetstream.Consumer
	stream   jetstream.Stream

	// Execution semaphore for max_concurrent
	sem chan struct{}

	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	tasksProcessed atomic.Int64
	tasksFailed    atomic.Int64
	tasksSkipped   atomic.Int64
}

// New creates a consumer over the given JetStream context.
func New(config Config, js jetstream.JetStream, deps Deps) (*Consumer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if deps.Status == nil {
		return nil, fmt.Errorf("status service required")
	}
	if deps.Sink == nil {
		return nil, fmt.Errorf("tracker sink required")
	}
	if deps.Processed == nil {
		return nil, fmt.Errorf("processed set required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("event store required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		config:    config,
		js:        js,
		logger:    logger.With("component", "consumer"),
		resolver:  deps.Resolver,
		status:    deps.Status,
		sink:      deps.Sink,
		processed: deps.Processed,
		events:    deps.Events,
		sem:       make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Start begins consuming task notifications. Start is non-blocking: the
// consume loop runs until the context is cancelled or Stop is called.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	if c.js == nil {
		c.mu.Unlock()
		return fmt.Errorf("jetstream context required")
	}

	c.running = true
	c.startTime = time.Now()

	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	stream, err := c.js.Stream(subCtx, c.config.Stream)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get stream %s: %w", c.config.Stream, err)
	}
	c.stream = stream

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       c.config.Durable,
		FilterSubject: c.config.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.config.ProcessTimeout + time.Minute, // allow for workflow execution
		MaxDeliver:    3,
	}

	consumer, err := stream.CreateOrUpdateConsumer(subCtx, consumerConfig)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("create consumer: %w", err)
	}
	c.consumer = consumer

	go c.consumeLoop(subCtx)

	c.logger.Info("consumer started",
		"stream", c.config.Stream,
		"consumer", c.config.Durable,
		"subject", c.config.Subject,
		"max_concurrent", c.config.MaxConcurrent)

	return nil
}

func (c *Consumer) rollbackStart(cancel context.CancelFunc) {
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.mu.Unlock()
	cancel()
}

// consumeLoop continuously fetches messages from the JetStream consumer.
func (c *Consumer) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("fetch timeout or error", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			if !c.acquireSlot(ctx) {
				if err := msg.Nak(); err != nil {
					c.logger.Warn("failed to NAK message", "error", err)
				}
				return
			}
			c.wg.Add(1)
			go func(msg jetstream.Msg) {
				defer c.wg.Done()
				defer c.releaseSlot()
				c.handleMessage(ctx, msg)
			}(msg)
		}

		if msgs.Error() != nil && msgs.Error() != context.DeadlineExceeded {
			c.logger.Warn("message fetch error", "error", msgs.Error())
		}
	}
}

// acquireSlot blocks until an admission slot frees up or the context is
// cancelled. Every true return must be paired with releaseSlot.
func (c *Consumer) acquireSlot(ctx context.Context) bool {
	select {
	case c.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Consumer) releaseSlot() { <-c.sem }

func (c *Consumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	switch c.processTask(ctx, msg.Data()) {
	case nakTask:
		if err := msg.Nak(); err != nil {
			c.logger.Warn("failed to NAK message", "error", err)
		}
	default:
		if err := msg.Ack(); err != nil {
			c.logger.Warn("failed to ACK message", "error", err)
		}
	}
}

// processTask runs the full pipeline for one notification body and
// decides the message's fate. Bad payloads are poison and never
// redelivered; a task that fails validation is skipped; a failed
// workflow reverts the task so a human can retriage it.
func (c *Consumer) processTask(ctx context.Context, data []byte) disposition {
	// Shutdown raced the fetch. Leave the message for redelivery.
	if ctx.Err() != nil {
		return nakTask
	}

	n, err := task.Decode(data)
	if err != nil {
		c.logger.Error("discarding unparseable notification", "error", err)
		c.tasksSkipped.Add(1)
		metricTasksSkipped.Inc()
		return ackTask
	}

	t, err := n.ToTask(c.logger)
	if err != nil {
		c.logger.Error("discarding invalid task", "task_id", n.ID, "error", err)
		c.tasksSkipped.Add(1)
		metricTasksSkipped.Inc()
		return ackTask
	}

	if t.AIProcessed || c.processed.Contains(t.ID) {
		c.logger.Debug("task already processed", "task_id", t.ID)
		c.tasksSkipped.Add(1)
		metricTasksSkipped.Inc()
		return ackTask
	}

	c.logger.Info("processing task", "task_id", t.ID, "title", t.Title, "assignee", t.AIEmployee)

	emp, err := c.resolver.FindEmployee(t)
	if err != nil {
		c.tasksSkipped.Add(1)
		metricTasksSkipped.Inc()
		return ackTask
	}

	if t.Content == "" {
		content, err := c.sink.GetContent(ctx, t.ID)
		if err != nil {
			c.logger.Warn("failed to fetch task content", "task_id", t.ID, "error", err)
		} else if content != "" {
			t = t.WithContent(content)
		}
	}

	if err := c.status.ToInProgress(ctx, t); err != nil {
		c.logger.Warn("failed to move task to In Progress", "task_id", t.ID, "error", err)
		c.tasksSkipped.Add(1)
		metricTasksSkipped.Inc()
		return ackTask
	}
	t = t.WithStatus(task.StatusInProgress)

	procCtx, cancel := context.WithTimeout(ctx, c.config.ProcessTimeout)
	defer cancel()

	start := time.Now()
	result, err := emp.Process(procCtx, t)
	metricProcessingSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		// Resolution raced an activation change between validation and
		// processing. Revert and let the task be retriaged.
		c.logger.Error("employee could not process task",
			"task_id", t.ID,
			"employee", emp.Name(),
			"error", err)
		c.revert(ctx, t)
		c.tasksFailed.Add(1)
		metricTasksFailed.Inc()
		c.storeEvents(ctx, emp)
		return ackTask
	}

	if !result.Success {
		c.logger.Error("task processing failed",
			"task_id", t.ID,
			"employee", emp.Name(),
			"workflow", result.WorkflowType,
			"errors", result.Errors)
		c.revert(ctx, t)
		c.tasksFailed.Add(1)
		metricTasksFailed.Inc()
		c.storeEvents(ctx, emp)
		return ackTask
	}

	c.postResult(ctx, t, result, emp)

	if err := c.status.ToDone(ctx, t); err != nil {
		c.logger.Warn("failed to move task to Done", "task_id", t.ID, "error", err)
	}
	if err := c.sink.SetProcessedFlag(ctx, t.ID, true); err != nil {
		c.logger.Warn("failed to flag task as processed", "task_id", t.ID, "error", err)
	}
	if err := c.processed.Mark(t.ID); err != nil {
		c.logger.Warn("failed to record processed task", "task_id", t.ID, "error", err)
	}

	c.tasksProcessed.Add(1)
	metricTasksProcessed.Inc()
	c.storeEvents(ctx, emp)

	c.logger.Info("task processed",
		"task_id", t.ID,
		"employee", emp.Name(),
		"workflow", result.WorkflowType,
		"duration", result.Duration.Round(time.Millisecond))

	return ackTask
}

// postResult publishes the workflow's final response as a board comment.
func (c *Consumer) postResult(ctx context.Context, t task.Task, result employee.Result, emp *employee.Employee) {
	response := result.FinalResponse()
	if response == "" {
		c.logger.Warn("no result to post", "task_id", t.ID)
		return
	}

	model := result.Model
	if model == "" {
		model = "unknown"
	}

	blocks := task.CommentBlocks(response, emp.Name(), model)
	if err := c.sink.PostComment(ctx, t.ID, blocks); err != nil {
		c.logger.Error("failed to post comment", "task_id", t.ID, "error", err)
		return
	}
	c.logger.Info("posted result comment", "task_id", t.ID, "blocks", len(blocks))
}

func (c *Consumer) revert(ctx context.Context, t task.Task) {
	if err := c.status.RevertToToDo(ctx, t); err != nil {
		c.logger.Warn("failed to revert task to To Do", "task_id", t.ID, "error", err)
	}
}

func (c *Consumer) storeEvents(ctx context.Context, emp *employee.Employee) {
	for _, ev := range emp.DrainEvents() {
		if err := c.events.Append(ctx, ev); err != nil {
			c.logger.Warn("failed to store event", "kind", ev.Kind, "error", err)
		}
	}
}

// Stop halts the consume loop and waits for in-flight tasks.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.running = false
	c.mu.Unlock()

	c.wg.Wait()

	c.logger.Info("consumer stopped",
		"tasks_processed", c.tasksProcessed.Load(),
		"tasks_failed", c.tasksFailed.Load(),
		"tasks_skipped", c.tasksSkipped.Load())
	return nil
}

// Stats is a point-in-time snapshot of consumer activity.
type Stats struct {
	Running        bool          `json:"running"`
	Uptime         time.Duration `json:"uptime"`
	TasksProcessed int64         `json:"tasks_processed"`
	TasksFailed    int64         `json:"tasks_failed"`
	TasksSkipped   int64         `json:"tasks_skipped"`
}

// GetStats returns current consumer statistics.
func (c *Consumer) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var uptime time.Duration
	if c.running {
		uptime = time.Since(c.startTime)
	}
	return Stats{
		Running:        c.running,
		Uptime:         uptime,
		TasksProcessed: c.tasksProcessed.Load(),
		TasksFailed:    c.tasksFailed.Load(),
		TasksSkipped:   c.tasksSkipped.Load(),
	}
}
