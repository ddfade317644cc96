package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/sentinel/core"
)

// Options configures a Recorder.
type Options struct {
	// Now supplies entry timestamps. Defaults to time.Now in UTC.
	Now func() time.Time
	// NewID generates entry ids. Defaults to uuid.NewString.
	NewID func() string
}

// Recorder appends the single MemoryEntry of a turn.
type Recorder struct {
	store core.MemoryStore
	opts  Options
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store core.MemoryStore, optFns ...func(o *Options)) *Recorder {
	opts := Options{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Recorder{store: store, opts: opts}
}

// Record appends one immutable entry keyed by agent and session.
func (r *Recorder) Record(ctx context.Context, sess core.SessionContext, userMessage, reply string) (core.MemoryEntry, error) {
	entry := core.MemoryEntry{
		ID:          r.opts.NewID(),
		AgentID:     sess.AgentID,
		SessionID:   sess.SessionID,
		UserMessage: userMessage,
		AgentReply:  reply,
		Timestamp:   r.opts.Now(),
	}
	stored, err := r.store.AppendMemory(ctx, entry)
	if err != nil {
		return core.MemoryEntry{}, fmt.Errorf("record memory: %w", err)
	}
	return stored, nil
}
