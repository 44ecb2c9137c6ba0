// Package config provides configuration loading and management for the
// ai-kanban worker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghazi-f/ai-kanban/llm"
)

// Config represents the complete worker configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	NATS     NATSConfig     `yaml:"nats"`
	Consumer ConsumerConfig `yaml:"consumer"`
	Roster   RosterConfig   `yaml:"roster"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LLMConfig configures model endpoints.
type LLMConfig struct {
	// Endpoints lists model endpoints. The first is primary, the rest
	// are fallbacks tried in order.
	Endpoints []llm.Endpoint `yaml:"endpoints"`
	// Timeout is the maximum time to wait for model responses.
	Timeout time.Duration `yaml:"timeout"`
}

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server).
	URL string `yaml:"url"`
	// Embedded indicates whether to run an embedded NATS server.
	Embedded bool `yaml:"embedded"`
}

// ConsumerConfig configures the task notification consumer.
type ConsumerConfig struct {
	// Stream is the JetStream stream holding task notifications.
	Stream string `yaml:"stream"`
	// Subject is the subject pattern tasks arrive on.
	Subject string `yaml:"subject"`
	// Durable is the durable consumer name.
	Durable string `yaml:"durable"`
	// MaxConcurrent caps tasks processed in parallel.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// RosterConfig configures employee activation.
type RosterConfig struct {
	// File is an optional YAML roster watched for activation changes.
	File string `yaml:"file"`
}

// TrackerConfig configures board integration and dedup bookkeeping.
type TrackerConfig struct {
	// ProcessedFile is the path of the processed-task set.
	ProcessedFile string `yaml:"processed_file"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled).
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Endpoints: []llm.Endpoint{
				{Provider: "anthropic", Model: "claude-3-5-sonnet-20241022", MaxTokens: 2000},
			},
			Timeout: 3 * time.Minute,
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Consumer: ConsumerConfig{
			Stream:        "TASKS",
			Subject:       "tasks.notifications",
			Durable:       "ai-kanban-worker",
			MaxConcurrent: 3,
		},
		Roster: RosterConfig{
			File: "",
		},
		Tracker: TrackerConfig{
			ProcessedFile: "processed_tasks.json",
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if len(c.LLM.Endpoints) == 0 {
		return fmt.Errorf("llm.endpoints must not be empty")
	}
	for i, ep := range c.LLM.Endpoints {
		if ep.Provider == "" {
			return fmt.Errorf("llm.endpoints[%d].provider is required", i)
		}
		if ep.Model == "" {
			return fmt.Errorf("llm.endpoints[%d].model is required", i)
		}
	}
	if c.Consumer.Stream == "" {
		return fmt.Errorf("consumer.stream is required")
	}
	if c.Consumer.Subject == "" {
		return fmt.Errorf("consumer.subject is required")
	}
	if c.Consumer.Durable == "" {
		return fmt.Errorf("consumer.durable is required")
	}
	if c.Consumer.MaxConcurrent < 1 {
		return fmt.Errorf("consumer.max_concurrent must be at least 1")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence
// for non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.LLM.Endpoints) > 0 {
		c.LLM.Endpoints = other.LLM.Endpoints
	}
	if other.LLM.Timeout != 0 {
		c.LLM.Timeout = other.LLM.Timeout
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	if other.Consumer.Stream != "" {
		c.Consumer.Stream = other.Consumer.Stream
	}
	if other.Consumer.Subject != "" {
		c.Consumer.Subject = other.Consumer.Subject
	}
	if other.Consumer.Durable != "" {
		c.Consumer.Durable = other.Consumer.Durable
	}
	if other.Consumer.MaxConcurrent != 0 {
		c.Consumer.MaxConcurrent = other.Consumer.MaxConcurrent
	}

	if other.Roster.File != "" {
		c.Roster.File = other.Roster.File
	}
	if other.Tracker.ProcessedFile != "" {
		c.Tracker.ProcessedFile = other.Tracker.ProcessedFile
	}
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
