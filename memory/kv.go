package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// BucketMemories is the KV bucket holding employee memories.
const BucketMemories = "AIKANBAN_MEMORIES"

// KVStore persists memories in a NATS KV bucket, one key per entry,
// prefixed with the normalized employee name.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore creates the memories bucket if needed and returns a store
// backed by it.
func NewKVStore(ctx context.Context, js jetstream.JetStream) (*KVStore, error) {
	kv, err := js.KeyValue(ctx, BucketMemories)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      BucketMemories,
			Description: "ai-kanban employee memories",
		})
		if err != nil {
			return nil, fmt.Errorf("create memories bucket: %w", err)
		}
	}
	return &KVStore{kv: kv}, nil
}

// Store saves a memory for the named employee.
func (s *KVStore) Store(ctx context.Context, employeeName, text string, metadata map[string]any) error {
	entry := Entry{
		Text:      text,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal memory: %w", err)
	}

	key := fmt.Sprintf("%s.%020d.%s",
		normalizeName(employeeName), entry.Timestamp.UnixNano(), uuid.New().String()[:8])
	if _, err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store memory for %s: %w", employeeName, err)
	}
	return nil
}

// Recall returns up to limit memory texts relevant to the query.
func (s *KVStore) Recall(ctx context.Context, employeeName, query string, limit int) ([]string, error) {
	entries, err := s.load(ctx, employeeName)
	if err != nil {
		return nil, err
	}
	return rank(entries, query, limit), nil
}

// Count returns the number of memories held for the employee.
func (s *KVStore) Count(ctx context.Context, employeeName string) (int, error) {
	keys, err := s.employeeKeys(ctx, employeeName)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *KVStore) load(ctx context.Context, employeeName string) ([]Entry, error) {
	keys, err := s.employeeKeys(ctx, employeeName)
	if err != nil {
		return nil, err
	}

	// Keys embed the store timestamp; ascending order is insertion order,
	// which the ranking relies on for tie-breaking.
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		kvEntry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(kvEntry.Value(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *KVStore) employeeKeys(ctx context.Context, employeeName string) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list memory keys: %w", err)
	}

	prefix := normalizeName(employeeName) + "."
	var out []string
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out, nil
}
