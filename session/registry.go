package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/sentinel/core"
)

type entry struct {
	sc         core.SessionContext
	inFlight   bool
	transcript *Transcript
}

// Registry is a volatile session store safe for concurrent access. It
// enforces at most one in-flight turn per session.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	newID    func() string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*entry), newID: uuid.NewString}
}

// Open creates a new session bound to agentID.
func (r *Registry) Open(agentID string, voiceEnabled bool) core.SessionContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc := core.SessionContext{SessionID: r.newID(), AgentID: agentID, VoiceEnabled: voiceEnabled}
	r.sessions[sc.SessionID] = &entry{sc: sc, transcript: NewTranscript()}
	return sc
}

// Get returns the session context for id.
func (r *Registry) Get(id string) (core.SessionContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return core.SessionContext{}, false
	}
	return e.sc, true
}

// Update replaces the agent binding and voice flag of an existing session.
func (r *Registry) Update(sc core.SessionContext) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sc.SessionID]
	if !ok {
		return false
	}
	e.sc = sc
	return true
}

// Begin marks a turn in flight for the session, creating the session lazily.
// It returns core.ErrTurnInFlight while another turn holds the session. The
// returned release func is idempotent.
func (r *Registry) Begin(sc core.SessionContext) (release func(), err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sc.SessionID]
	if !ok {
		e = &entry{sc: sc, transcript: NewTranscript()}
		r.sessions[sc.SessionID] = e
	}
	if e.inFlight {
		return nil, core.ErrTurnInFlight
	}
	e.inFlight = true

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			e.inFlight = false
			r.mu.Unlock()
		})
	}, nil
}

// InFlight reports whether a turn currently holds the session.
func (r *Registry) InFlight(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	return ok && e.inFlight
}

// Transcript returns the transcript of a session, creating the session lazily.
func (r *Registry) Transcript(id string) *Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		e = &entry{sc: core.SessionContext{SessionID: id}, transcript: NewTranscript()}
		r.sessions[id] = e
	}
	return e.transcript
}

// Close forgets a session.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}
