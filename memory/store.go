// Package memory provides per-employee memory persistence with simple
// relevance-based recall.
package memory

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Entry is one stored memory.
type Entry struct {
	Text      string         `json:"text"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Store persists and recalls memories per employee name.
type Store interface {
	// Store saves a memory for the named employee.
	Store(ctx context.Context, employeeName, text string, metadata map[string]any) error

	// Recall returns up to limit memory texts relevant to the query,
	// highest relevance first.
	Recall(ctx context.Context, employeeName, query string, limit int) ([]string, error)

	// Count returns the number of memories held for the employee.
	Count(ctx context.Context, employeeName string) (int, error)
}

// rank scores entries by word overlap with the query and returns up to
// limit texts. Score is the count of query words contained in the entry
// text; zero-score entries are dropped. Ties keep insertion order.
func rank(entries []Entry, query string, limit int) []string {
	words := strings.Fields(strings.ToLower(query))

	type scored struct {
		score int
		index int
		text  string
	}

	var matches []scored
	for i, e := range entries {
		text := strings.ToLower(e.Text)
		score := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{score: score, index: i, text: e.Text})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if limit > len(matches) {
		limit = len(matches)
	}
	out := make([]string, 0, limit)
	for _, m := range matches[:limit] {
		out = append(out, m.text)
	}
	return out
}

// normalizeName canonicalizes an employee name for use as a storage key.
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
