package entity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/memory"
)

// Options configures an InMemoryStore.
type Options struct {
	Now   func() time.Time
	NewID func() string
}

type row[T any] struct {
	value T
	seq   int64
}

// InMemoryStore keeps agents, projects and knowledge in maps guarded by an
// RWMutex. Values are copied on the way in and out.
type InMemoryStore struct {
	mu        sync.RWMutex
	agents    map[string]row[core.Agent]
	projects  map[string]row[core.Project]
	knowledge map[string]row[core.KnowledgeFragment]
	seq       int64
	opts      Options
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{
		agents:    make(map[string]row[core.Agent]),
		projects:  make(map[string]row[core.Project]),
		knowledge: make(map[string]row[core.KnowledgeFragment]),
		opts:      opts,
	}
}

// Store is the complete core.EntityStore backed by process memory.
type Store struct {
	*InMemoryStore
	core.MemoryStore
}

// NewEntityStore pairs an entity InMemoryStore with a memory.InMemoryStore.
func NewEntityStore(optFns ...func(o *Options)) *Store {
	return &Store{InMemoryStore: NewInMemoryStore(optFns...), MemoryStore: memory.NewInMemoryStore()}
}

func newest[T any](rows map[string]row[T], created func(T) time.Time, limit int) []T {
	list := make([]row[T], 0, len(rows))
	for _, r := range rows {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		ci, cj := created(list[i].value), created(list[j].value)
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return list[i].seq > list[j].seq
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]T, len(list))
	for i, r := range list {
		out[i] = r.value
	}
	return out
}

func (s *InMemoryStore) stamp(id *string, created *time.Time) {
	if strings.TrimSpace(*id) == "" {
		*id = s.opts.NewID()
	}
	if created.IsZero() {
		*created = s.opts.Now()
	}
	s.seq++
}

// ListAgents returns agents newest first.
func (s *InMemoryStore) ListAgents(ctx context.Context, opts core.ListOptions) ([]core.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newest(s.agents, func(a core.Agent) time.Time { return a.CreatedAt }, opts.Limit), nil
}

// GetAgent returns the agent or core.ErrAgentNotFound.
func (s *InMemoryStore) GetAgent(ctx context.Context, id string) (core.Agent, error) {
	if err := ctx.Err(); err != nil {
		return core.Agent{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.agents[id]
	if !ok {
		return core.Agent{}, fmt.Errorf("agent %q: %w", id, core.ErrAgentNotFound)
	}
	return r.value, nil
}

// CreateAgent validates and stores a new agent, assigning id and timestamps.
func (s *InMemoryStore) CreateAgent(ctx context.Context, a core.Agent) (core.Agent, error) {
	if err := ctx.Err(); err != nil {
		return core.Agent{}, err
	}
	if strings.TrimSpace(a.Name) == "" {
		return core.Agent{}, fmt.Errorf("agent name is required: %w", core.ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&a.ID, &a.CreatedAt)
	if _, exists := s.agents[a.ID]; exists {
		return core.Agent{}, fmt.Errorf("agent %q already exists: %w", a.ID, core.ErrInvalidRecord)
	}
	a.UpdatedAt = a.CreatedAt
	s.agents[a.ID] = row[core.Agent]{value: a, seq: s.seq}
	return a, nil
}

// UpdateAgent applies patch to an existing agent in one step.
func (s *InMemoryStore) UpdateAgent(ctx context.Context, id string, patch core.AgentPatch) (core.Agent, error) {
	if err := ctx.Err(); err != nil {
		return core.Agent{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.agents[id]
	if !ok {
		return core.Agent{}, fmt.Errorf("agent %q: %w", id, core.ErrAgentNotFound)
	}
	updated := patch.Apply(r.value)
	if strings.TrimSpace(updated.Name) == "" {
		return core.Agent{}, fmt.Errorf("agent name is required: %w", core.ErrInvalidRecord)
	}
	updated.UpdatedAt = s.opts.Now()
	s.agents[id] = row[core.Agent]{value: updated, seq: r.seq}
	return updated, nil
}

// DeleteAgent removes the agent or returns core.ErrAgentNotFound.
func (s *InMemoryStore) DeleteAgent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return fmt.Errorf("agent %q: %w", id, core.ErrAgentNotFound)
	}
	delete(s.agents, id)
	return nil
}

// ListProjects returns projects newest first.
func (s *InMemoryStore) ListProjects(ctx context.Context, opts core.ListOptions) ([]core.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := newest(s.projects, func(p core.Project) time.Time { return p.CreatedAt }, opts.Limit)
	for i := range out {
		out[i].CorePrinciples = append([]string(nil), out[i].CorePrinciples...)
	}
	return out, nil
}

// GetProject returns the project or core.ErrNotFound.
func (s *InMemoryStore) GetProject(ctx context.Context, id string) (core.Project, error) {
	if err := ctx.Err(); err != nil {
		return core.Project{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.projects[id]
	if !ok {
		return core.Project{}, fmt.Errorf("project %q: %w", id, core.ErrNotFound)
	}
	p := r.value
	p.CorePrinciples = append([]string(nil), p.CorePrinciples...)
	return p, nil
}

// CreateProject validates and stores a new project.
func (s *InMemoryStore) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if err := ctx.Err(); err != nil {
		return core.Project{}, err
	}
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Objective) == "" {
		return core.Project{}, fmt.Errorf("project name and objective are required: %w", core.ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&p.ID, &p.CreatedAt)
	if _, exists := s.projects[p.ID]; exists {
		return core.Project{}, fmt.Errorf("project %q already exists: %w", p.ID, core.ErrInvalidRecord)
	}
	p.CorePrinciples = append([]string(nil), p.CorePrinciples...)
	s.projects[p.ID] = row[core.Project]{value: p, seq: s.seq}
	return p, nil
}

// SetProjectBriefing replaces the stored briefing.
func (s *InMemoryStore) SetProjectBriefing(ctx context.Context, id, briefing string) (core.Project, error) {
	if err := ctx.Err(); err != nil {
		return core.Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.projects[id]
	if !ok {
		return core.Project{}, fmt.Errorf("project %q: %w", id, core.ErrNotFound)
	}
	r.value.Briefing = briefing
	s.projects[id] = r
	return r.value, nil
}

// ListKnowledge returns fragments newest first.
func (s *InMemoryStore) ListKnowledge(ctx context.Context, opts core.ListOptions) ([]core.KnowledgeFragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newest(s.knowledge, func(k core.KnowledgeFragment) time.Time { return k.CreatedAt }, opts.Limit), nil
}

// CreateKnowledge stores a fragment.
func (s *InMemoryStore) CreateKnowledge(ctx context.Context, k core.KnowledgeFragment) (core.KnowledgeFragment, error) {
	if err := ctx.Err(); err != nil {
		return core.KnowledgeFragment{}, err
	}
	if strings.TrimSpace(k.Title) == "" || strings.TrimSpace(k.Content) == "" {
		return core.KnowledgeFragment{}, fmt.Errorf("knowledge title and content are required: %w", core.ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&k.ID, &k.CreatedAt)
	if _, exists := s.knowledge[k.ID]; exists {
		return core.KnowledgeFragment{}, fmt.Errorf("knowledge %q already exists: %w", k.ID, core.ErrInvalidRecord)
	}
	s.knowledge[k.ID] = row[core.KnowledgeFragment]{value: k, seq: s.seq}
	return k, nil
}

// DeleteKnowledge removes a fragment.
func (s *InMemoryStore) DeleteKnowledge(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.knowledge[id]; !ok {
		return fmt.Errorf("knowledge %q: %w", id, core.ErrNotFound)
	}
	delete(s.knowledge, id)
	return nil
}
