package consumer

import (
	"fmt"
	"time"
)

// Config configures the task notification consumer.
type Config struct {
	// Stream is the JetStream stream holding task notifications.
	Stream string
	// Subject is the subject pattern tasks arrive on.
	Subject string
	// Durable is the durable consumer name.
	Durable string
	// MaxConcurrent caps tasks processed in parallel.
	MaxConcurrent int
	// ProcessTimeout bounds a single task's workflow execution.
	ProcessTimeout time.Duration
}

// DefaultConfig returns the default consumer configuration.
func DefaultConfig() Config {
	return Config{
		Stream:         "TASKS",
		Subject:        "tasks.notifications",
		Durable:        "ai-kanban-worker",
		MaxConcurrent:  3,
		ProcessTimeout: 3 * time.Minute,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Stream == "" {
		return fmt.Errorf("stream is required")
	}
	if c.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if c.Durable == "" {
		return fmt.Errorf("durable consumer name is required")
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", c.MaxConcurrent)
	}
	if c.ProcessTimeout <= 0 {
		return fmt.Errorf("process_timeout must be positive")
	}
	return nil
}
