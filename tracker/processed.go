package tracker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// ProcessedSet is a file-backed set of task IDs that have completed
// processing, used to keep redelivered messages from being worked
// twice. Writes go through a temp file and rename so a crash never
// leaves a truncated file behind.
type ProcessedSet struct {
	path   string
	logger *slog.Logger

	mu  sync.Mutex
	ids map[string]struct{}
}

type processedFile struct {
	ProcessedTasks []string `json:"processed_tasks"`
}

// NewProcessedSet loads the set from path. A missing file yields an
// empty set; a corrupt file is logged and replaced on the next save.
func NewProcessedSet(path string, logger *slog.Logger) *ProcessedSet {
	p := &ProcessedSet{
		path:   path,
		logger: logger.With("component", "processed-set"),
		ids:    make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			p.logger.Warn("load failed, starting empty", "path", path, "error", err)
		}
		return p
	}
	var pf processedFile
	if err := json.Unmarshal(data, &pf); err != nil {
		p.logger.Warn("corrupt processed file, starting empty", "path", path, "error", err)
		return p
	}
	for _, id := range pf.ProcessedTasks {
		p.ids[id] = struct{}{}
	}
	p.logger.Info("loaded processed tasks", "count", len(p.ids))
	return p
}

// Contains reports whether the task has already been processed.
func (p *ProcessedSet) Contains(taskID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.ids[taskID]
	return ok
}

// Mark records the task as processed and persists the set.
func (p *ProcessedSet) Mark(taskID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids[taskID] = struct{}{}
	return p.saveLocked()
}

// Clear empties the set and persists it.
func (p *ProcessedSet) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = make(map[string]struct{})
	return p.saveLocked()
}

// Len returns the number of processed tasks.
func (p *ProcessedSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}

func (p *ProcessedSet) saveLocked() error {
	pf := processedFile{ProcessedTasks: make([]string, 0, len(p.ids))}
	for id := range p.ids {
		pf.ProcessedTasks = append(pf.ProcessedTasks, id)
	}
	data, err := json.MarshalIndent(pf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal processed set: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write processed set: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace processed set: %w", err)
	}
	return nil
}
