package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// BucketEvents is the KV bucket holding domain events.
const BucketEvents = "AIKANBAN_EVENTS"

// KVStore persists domain events in a NATS KV bucket. Keys embed the
// event timestamp so a descending key sort yields most-recent-first.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore creates the events bucket if needed and returns a store
// backed by it.
func NewKVStore(ctx context.Context, js jetstream.JetStream) (*KVStore, error) {
	kv, err := js.KeyValue(ctx, BucketEvents)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      BucketEvents,
			Description: "ai-kanban domain events",
		})
		if err != nil {
			return nil, fmt.Errorf("create events bucket: %w", err)
		}
	}
	return &KVStore{kv: kv}, nil
}

// Append durably records one event.
func (s *KVStore) Append(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.ID, err)
	}

	key := fmt.Sprintf("%020d.%s", e.Timestamp.UnixNano(), shortID(e.ID))
	if _, err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store event %s: %w", e.ID, err)
	}
	return nil
}

// ByKind returns up to limit events of the given kind, most recent first.
func (s *KVStore) ByKind(ctx context.Context, kind Kind, limit int) ([]Event, error) {
	return s.scan(ctx, limit, func(e Event) bool {
		return e.Kind == kind
	})
}

// ByEntity returns up to limit events referencing the entity, most
// recent first.
func (s *KVStore) ByEntity(ctx context.Context, entityID string, limit int) ([]Event, error) {
	return s.scan(ctx, limit, func(e Event) bool {
		return e.EmployeeID == entityID || e.TaskID == entityID
	})
}

func (s *KVStore) scan(ctx context.Context, limit int, keep func(Event) bool) ([]Event, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list event keys: %w", err)
	}

	// Timestamp-prefixed keys: descending order is newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	events := make([]Event, 0, limit)
	for _, key := range keys {
		if len(events) >= limit {
			break
		}
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var e Event
		if err := json.Unmarshal(entry.Value(), &e); err != nil {
			continue
		}
		if keep(e) {
			events = append(events, e)
		}
	}
	return events, nil
}

// shortID keeps KV keys compact; the full event ID lives in the value.
func shortID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()[:8]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
