package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/sentinel/core"
)

// InMemoryStore is a naive process-local core.MemoryStore. Entries are
// append-only; the only removal path is PurgeMemory.
//
// Concurrency: protected by RWMutex. Ordering: newest first by timestamp, ties
// broken by insertion order so equal timestamps remain deterministic.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []stored
	seq     int64
}

type stored struct {
	entry core.MemoryEntry
	seq   int64
}

// NewInMemoryStore creates a new in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// AppendMemory stores a copy of e. ID and AgentID are required.
func (m *InMemoryStore) AppendMemory(ctx context.Context, e core.MemoryEntry) (core.MemoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return core.MemoryEntry{}, err
	}
	if strings.TrimSpace(e.ID) == "" || strings.TrimSpace(e.AgentID) == "" {
		return core.MemoryEntry{}, fmt.Errorf("memory entry id and agent id are required: %w", core.ErrInvalidRecord)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.entries {
		if s.entry.ID == e.ID {
			return core.MemoryEntry{}, fmt.Errorf("memory entry %s already exists: %w", e.ID, core.ErrInvalidRecord)
		}
	}
	m.seq++
	m.entries = append(m.entries, stored{entry: e, seq: m.seq})
	return e, nil
}

// ListMemory returns the newest entries across all agents.
func (m *InMemoryStore) ListMemory(ctx context.Context, opts core.ListOptions) ([]core.MemoryEntry, error) {
	return m.list(ctx, "", opts)
}

// FilterMemory returns the newest entries of one agent.
func (m *InMemoryStore) FilterMemory(ctx context.Context, agentID string, opts core.ListOptions) ([]core.MemoryEntry, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent id is required: %w", core.ErrInvalidRecord)
	}
	return m.list(ctx, agentID, opts)
}

func (m *InMemoryStore) list(ctx context.Context, agentID string, opts core.ListOptions) ([]core.MemoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	snapshot := make([]stored, 0, len(m.entries))
	for _, s := range m.entries {
		if agentID == "" || s.entry.AgentID == agentID {
			snapshot = append(snapshot, s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		ti, tj := snapshot[i].entry.Timestamp, snapshot[j].entry.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return snapshot[i].seq > snapshot[j].seq
	})
	if opts.Limit > 0 && len(snapshot) > opts.Limit {
		snapshot = snapshot[:opts.Limit]
	}
	out := make([]core.MemoryEntry, len(snapshot))
	for i, s := range snapshot {
		out[i] = s.entry
	}
	return out, nil
}

// PurgeMemory removes every entry of the agent and reports how many were deleted.
func (m *InMemoryStore) PurgeMemory(ctx context.Context, agentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if agentID == "" {
		return 0, fmt.Errorf("agent id is required: %w", core.ErrInvalidRecord)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	removed := 0
	for _, s := range m.entries {
		if s.entry.AgentID == agentID {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.entries = kept
	return removed, nil
}

// Len returns the number of stored entries.
func (m *InMemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
