package history

import (
	"context"
	"sort"
	gosync "sync"

	"github.com/agentstation/utc"
)

// Store persists events and summaries.
//
// Implementations must never change or remove an appended event.
type Store interface {
	AppendEvent(ctx context.Context, e Event) error

	// Events returns the events of one entity, oldest first. An empty
	// identity returns every event.
	Events(ctx context.Context, identity string) ([]Event, error)

	// UpsertSummary merges u into the entity's summary, creating it with
	// Created set to now when absent.
	UpsertSummary(ctx context.Context, identity string, u SummaryUpdate, now utc.Time) error

	ReadSummary(ctx context.Context, identity string) (Summary, bool, error)
	Summaries(ctx context.Context) ([]Summary, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu        gosync.RWMutex
	events    []Event
	summaries map[string]Summary
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{summaries: make(map[string]Summary)}
}

// AppendEvent implements Store.
func (m *MemoryStore) AppendEvent(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e.clone())
	return nil
}

// Events implements Store.
func (m *MemoryStore) Events(_ context.Context, identity string) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	for _, e := range m.events {
		if identity == "" || e.EntityIdentity == identity {
			out = append(out, e.clone())
		}
	}
	return out, nil
}

// UpsertSummary implements Store.
func (m *MemoryStore) UpsertSummary(_ context.Context, identity string, u SummaryUpdate, now utc.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[identity]
	if !ok {
		s = Summary{Identity: identity, Created: now}
	}
	m.summaries[identity] = u.Apply(s)
	return nil
}

// ReadSummary implements Store.
func (m *MemoryStore) ReadSummary(_ context.Context, identity string) (Summary, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[identity]
	return s, ok, nil
}

// Summaries implements Store, ordered by identity.
func (m *MemoryStore) Summaries(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.summaries))
	for _, s := range m.summaries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
