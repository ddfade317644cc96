package testutil

import (
	"fmt"
	"time"

	"github.com/hupe1980/sentinel/core"
)

// MemoryBuilder produces memory entries with strictly increasing timestamps.
// Example:
//
//	entries := NewMemoryBuilder("sess-1").Interleave(120, "a", "b", "c")
type MemoryBuilder struct {
	sessionID string
	base      time.Time
	step      time.Duration
	n         int
}

// NewMemoryBuilder creates a builder whose first entry is stamped at a fixed base time.
func NewMemoryBuilder(sessionID string) *MemoryBuilder {
	return &MemoryBuilder{
		sessionID: sessionID,
		base:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		step:      time.Second,
	}
}

// Next returns one entry for agentID.
func (b *MemoryBuilder) Next(agentID string) core.MemoryEntry {
	b.n++
	return core.MemoryEntry{
		ID:          fmt.Sprintf("m-%03d", b.n),
		AgentID:     agentID,
		SessionID:   b.sessionID,
		UserMessage: fmt.Sprintf("question %d", b.n),
		AgentReply:  fmt.Sprintf("answer %d from %s", b.n, agentID),
		Timestamp:   b.base.Add(time.Duration(b.n) * b.step),
	}
}

// Interleave returns total entries assigned round-robin across agentIDs,
// oldest first.
func (b *MemoryBuilder) Interleave(total int, agentIDs ...string) []core.MemoryEntry {
	out := make([]core.MemoryEntry, 0, total)
	for i := 0; i < total; i++ {
		out = append(out, b.Next(agentIDs[i%len(agentIDs)]))
	}
	return out
}
