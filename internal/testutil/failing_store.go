package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/sentinel/core"
)

// Operation names understood by FailingStore.
const (
	OpListAgents      = "ListAgents"
	OpGetAgent        = "GetAgent"
	OpCreateAgent     = "CreateAgent"
	OpUpdateAgent     = "UpdateAgent"
	OpDeleteAgent     = "DeleteAgent"
	OpListProjects    = "ListProjects"
	OpGetProject      = "GetProject"
	OpCreateProject   = "CreateProject"
	OpSetBriefing     = "SetProjectBriefing"
	OpListMemory      = "ListMemory"
	OpFilterMemory    = "FilterMemory"
	OpAppendMemory    = "AppendMemory"
	OpPurgeMemory     = "PurgeMemory"
	OpListKnowledge   = "ListKnowledge"
	OpCreateKnowledge = "CreateKnowledge"
	OpDeleteKnowledge = "DeleteKnowledge"
)

// FailingStore wraps a core.EntityStore, counts calls per operation and
// returns injected errors instead of delegating.
type FailingStore struct {
	core.EntityStore

	mu    sync.Mutex
	fail  map[string]error
	calls map[string]int
}

// NewFailingStore wraps inner.
func NewFailingStore(inner core.EntityStore) *FailingStore {
	return &FailingStore{EntityStore: inner, fail: map[string]error{}, calls: map[string]int{}}
}

// Fail makes op return err until cleared with a nil err (chainable).
func (s *FailingStore) Fail(op string, err error) *FailingStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
	} else {
		s.fail[op] = err
	}
	return s
}

// Calls returns how often op was invoked.
func (s *FailingStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Reset zeroes the call counters. Injected failures are kept, so fixtures
// can seed through the store and then count only what the code under test does.
func (s *FailingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = map[string]int{}
}

// Mutations returns the number of calls to store-mutating operations.
func (s *FailingStore) Mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, op := range []string{OpCreateAgent, OpUpdateAgent, OpDeleteAgent, OpCreateProject, OpSetBriefing, OpCreateKnowledge, OpDeleteKnowledge} {
		n += s.calls[op]
	}
	return n
}

func (s *FailingStore) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.fail[op]
}

func (s *FailingStore) ListAgents(ctx context.Context, opts core.ListOptions) ([]core.Agent, error) {
	if err := s.enter(OpListAgents); err != nil {
		return nil, err
	}
	return s.EntityStore.ListAgents(ctx, opts)
}

func (s *FailingStore) GetAgent(ctx context.Context, id string) (core.Agent, error) {
	if err := s.enter(OpGetAgent); err != nil {
		return core.Agent{}, err
	}
	return s.EntityStore.GetAgent(ctx, id)
}

func (s *FailingStore) CreateAgent(ctx context.Context, a core.Agent) (core.Agent, error) {
	if err := s.enter(OpCreateAgent); err != nil {
		return core.Agent{}, err
	}
	return s.EntityStore.CreateAgent(ctx, a)
}

func (s *FailingStore) UpdateAgent(ctx context.Context, id string, p core.AgentPatch) (core.Agent, error) {
	if err := s.enter(OpUpdateAgent); err != nil {
		return core.Agent{}, err
	}
	return s.EntityStore.UpdateAgent(ctx, id, p)
}

func (s *FailingStore) DeleteAgent(ctx context.Context, id string) error {
	if err := s.enter(OpDeleteAgent); err != nil {
		return err
	}
	return s.EntityStore.DeleteAgent(ctx, id)
}

func (s *FailingStore) ListProjects(ctx context.Context, opts core.ListOptions) ([]core.Project, error) {
	if err := s.enter(OpListProjects); err != nil {
		return nil, err
	}
	return s.EntityStore.ListProjects(ctx, opts)
}

func (s *FailingStore) GetProject(ctx context.Context, id string) (core.Project, error) {
	if err := s.enter(OpGetProject); err != nil {
		return core.Project{}, err
	}
	return s.EntityStore.GetProject(ctx, id)
}

func (s *FailingStore) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if err := s.enter(OpCreateProject); err != nil {
		return core.Project{}, err
	}
	return s.EntityStore.CreateProject(ctx, p)
}

func (s *FailingStore) SetProjectBriefing(ctx context.Context, id, briefing string) (core.Project, error) {
	if err := s.enter(OpSetBriefing); err != nil {
		return core.Project{}, err
	}
	return s.EntityStore.SetProjectBriefing(ctx, id, briefing)
}

func (s *FailingStore) ListMemory(ctx context.Context, opts core.ListOptions) ([]core.MemoryEntry, error) {
	if err := s.enter(OpListMemory); err != nil {
		return nil, err
	}
	return s.EntityStore.ListMemory(ctx, opts)
}

func (s *FailingStore) FilterMemory(ctx context.Context, agentID string, opts core.ListOptions) ([]core.MemoryEntry, error) {
	if err := s.enter(OpFilterMemory); err != nil {
		return nil, err
	}
	return s.EntityStore.FilterMemory(ctx, agentID, opts)
}

func (s *FailingStore) AppendMemory(ctx context.Context, e core.MemoryEntry) (core.MemoryEntry, error) {
	if err := s.enter(OpAppendMemory); err != nil {
		return core.MemoryEntry{}, err
	}
	return s.EntityStore.AppendMemory(ctx, e)
}

func (s *FailingStore) PurgeMemory(ctx context.Context, agentID string) (int, error) {
	if err := s.enter(OpPurgeMemory); err != nil {
		return 0, err
	}
	return s.EntityStore.PurgeMemory(ctx, agentID)
}

func (s *FailingStore) ListKnowledge(ctx context.Context, opts core.ListOptions) ([]core.KnowledgeFragment, error) {
	if err := s.enter(OpListKnowledge); err != nil {
		return nil, err
	}
	return s.EntityStore.ListKnowledge(ctx, opts)
}

func (s *FailingStore) CreateKnowledge(ctx context.Context, k core.KnowledgeFragment) (core.KnowledgeFragment, error) {
	if err := s.enter(OpCreateKnowledge); err != nil {
		return core.KnowledgeFragment{}, err
	}
	return s.EntityStore.CreateKnowledge(ctx, k)
}

func (s *FailingStore) DeleteKnowledge(ctx context.Context, id string) error {
	if err := s.enter(OpDeleteKnowledge); err != nil {
		return err
	}
	return s.EntityStore.DeleteKnowledge(ctx, id)
}
