package core

import "context"

// ListOptions bounds list calls. Results are always ordered newest first.
// A zero Limit means no limit.
type ListOptions struct {
	Limit int
}

// AgentStore persists agents.
type AgentStore interface {
	ListAgents(ctx context.Context, opts ListOptions) ([]Agent, error)
	GetAgent(ctx context.Context, id string) (Agent, error)
	CreateAgent(ctx context.Context, a Agent) (Agent, error)
	UpdateAgent(ctx context.Context, id string, patch AgentPatch) (Agent, error)
	DeleteAgent(ctx context.Context, id string) error
}

// ProjectStore persists projects.
type ProjectStore interface {
	ListProjects(ctx context.Context, opts ListOptions) ([]Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	CreateProject(ctx context.Context, p Project) (Project, error)
	SetProjectBriefing(ctx context.Context, id, briefing string) (Project, error)
}

// MemoryStore persists immutable memory entries. Entries are never updated.
type MemoryStore interface {
	ListMemory(ctx context.Context, opts ListOptions) ([]MemoryEntry, error)
	FilterMemory(ctx context.Context, agentID string, opts ListOptions) ([]MemoryEntry, error)
	AppendMemory(ctx context.Context, e MemoryEntry) (MemoryEntry, error)
	PurgeMemory(ctx context.Context, agentID string) (int, error)
}

// KnowledgeStore persists knowledge fragments.
type KnowledgeStore interface {
	ListKnowledge(ctx context.Context, opts ListOptions) ([]KnowledgeFragment, error)
	CreateKnowledge(ctx context.Context, k KnowledgeFragment) (KnowledgeFragment, error)
	DeleteKnowledge(ctx context.Context, id string) error
}

// EntityStore aggregates every collection the engine touches.
type EntityStore interface {
	AgentStore
	ProjectStore
	MemoryStore
	KnowledgeStore
}

// FileStore uploads attachments and returns an opaque reference that is
// forwarded to the generative-text service unchanged.
type FileStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (FileRef, error)
}

// Identity resolves the acting agent. Rank used for authorization always
// comes from here, never from a model reply.
type Identity interface {
	Resolve(ctx context.Context, agentID string) (Agent, error)
}
