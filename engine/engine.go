package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/hupe1980/sentinel/action"
	"github.com/hupe1980/sentinel/artifact"
	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/entity"
	"github.com/hupe1980/sentinel/logging"
	"github.com/hupe1980/sentinel/memory"
	"github.com/hupe1980/sentinel/model"
	"github.com/hupe1980/sentinel/policy"
	"github.com/hupe1980/sentinel/prompt"
	"github.com/hupe1980/sentinel/reply"
	"github.com/hupe1980/sentinel/session"
)

var tracer = otel.Tracer("github.com/hupe1980/sentinel/engine")

// Config holds the behavioral knobs of the engine.
type Config struct {
	// ResearchTrigger switches a single turn into research mode when the
	// operator message contains it. Empty disables the trigger.
	ResearchTrigger string

	// HistoryScan is how many recent memory entries are read per turn.
	HistoryScan int

	// HistoryWindow is how many of the agent's own entries reach the prompt.
	HistoryWindow int

	// KnowledgeBudget caps the knowledge block in characters. Zero disables the cap.
	KnowledgeBudget int
}

// DefaultConfig provides the stock configuration.
var DefaultConfig = Config{
	ResearchTrigger: "Override 144-Manifest",
	HistoryScan:     prompt.DefaultHistoryScan,
	HistoryWindow:   prompt.DefaultHistoryWindow,
	KnowledgeBudget: prompt.DefaultKnowledgeBudget,
}

// Options wires the collaborators of an Engine. Nil fields get in-memory or
// default implementations.
type Options struct {
	Config Config

	// Store holds agents, projects, memory and knowledge.
	Store core.EntityStore

	// Files receives turn attachments.
	Files core.FileStore

	// Identity resolves the acting agent. Defaults to StoreIdentity over Store.
	Identity core.Identity

	// Authorizer decides whether a rank may perform an action kind.
	// Defaults to policy.DefaultTable.
	Authorizer policy.Authorizer

	// Sessions tracks open sessions, in-flight turns and transcripts.
	Sessions *session.Registry

	// Handlers override the default action handlers for their kinds.
	Handlers []action.Handler

	// Callbacks are invoked at fixed points of the turn pipeline.
	Callbacks *CallbackManager

	Logger logging.Logger

	// Now and NewID feed memory entry timestamps and ids.
	Now   func() time.Time
	NewID func() string
}

// Engine runs turns for any number of sessions. It is safe for concurrent use;
// turns of the same session are serialized by rejection.
type Engine struct {
	opts      Options
	model     model.Model
	store     core.EntityStore
	files     core.FileStore
	identity  core.Identity
	authz     policy.Authorizer
	sessions  *session.Registry
	assembler *prompt.Assembler
	replies   *reply.Client
	executor  *action.Executor
	recorder  *memory.Recorder
	callbacks *CallbackManager
	logger    logging.Logger

	rosterMu sync.RWMutex
	roster   []core.Agent
}

// New creates an Engine backed by m.
func New(m model.Model, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
		Now:    func() time.Time { return time.Now().UTC() },
		NewID:  uuid.NewString,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = entity.NewEntityStore()
	}
	if opts.Files == nil {
		opts.Files = artifact.NewInMemoryStore()
	}
	if opts.Identity == nil {
		opts.Identity = StoreIdentity{Agents: opts.Store}
	}
	if opts.Authorizer == nil {
		opts.Authorizer = policy.DefaultTable()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewRegistry()
	}
	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	e := &Engine{
		opts:      opts,
		model:     m,
		store:     opts.Store,
		files:     opts.Files,
		identity:  opts.Identity,
		authz:     opts.Authorizer,
		sessions:  opts.Sessions,
		callbacks: opts.Callbacks,
		logger:    logging.Scoped(opts.Logger, "engine"),
	}

	e.assembler = prompt.NewAssembler(opts.Store, func(o *prompt.Options) {
		o.HistoryScan = opts.Config.HistoryScan
		o.HistoryWindow = opts.Config.HistoryWindow
		o.KnowledgeBudget = opts.Config.KnowledgeBudget
		o.Logger = logging.Scoped(opts.Logger, "prompt")
		if p, ok := opts.Authorizer.(interface {
			Permitted(rank core.Rank) []core.ActionKind
		}); ok {
			o.Permissions = p
		}
	})
	e.replies = reply.NewClient(m, func(o *reply.Options) {
		o.Logger = logging.Scoped(opts.Logger, "reply")
	})
	e.executor = action.NewExecutor(opts.Store, func(o *action.Options) {
		o.Logger = logging.Scoped(opts.Logger, "action")
		o.Handlers = opts.Handlers
	})
	e.recorder = memory.NewRecorder(opts.Store, func(o *memory.Options) {
		o.Now = opts.Now
		o.NewID = opts.NewID
	})
	return e
}

// Sessions returns the session registry.
func (e *Engine) Sessions() *session.Registry { return e.sessions }

// Store returns the entity store.
func (e *Engine) Store() core.EntityStore { return e.store }

// Model returns the underlying model.
func (e *Engine) Model() model.Model { return e.model }

// Roster returns the last loaded agent list, newest first.
func (e *Engine) Roster() []core.Agent {
	e.rosterMu.RLock()
	defer e.rosterMu.RUnlock()
	return append([]core.Agent(nil), e.roster...)
}

// RefreshRoster reloads the agent list from the store.
func (e *Engine) RefreshRoster(ctx context.Context) ([]core.Agent, error) {
	agents, err := e.store.ListAgents(ctx, core.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("refresh roster: %w", err)
	}
	e.rosterMu.Lock()
	e.roster = agents
	e.rosterMu.Unlock()
	return append([]core.Agent(nil), agents...), nil
}

// Authority level stamped on fragments promoted from a conversation.
const promotedAuthority = "architect"

// PromoteKnowledge stores a reply as a global knowledge fragment.
func (e *Engine) PromoteKnowledge(ctx context.Context, title, content, category string) (core.KnowledgeFragment, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		return core.KnowledgeFragment{}, fmt.Errorf("promote knowledge: title and content are required: %w", core.ErrInvalidRecord)
	}
	if strings.TrimSpace(category) == "" {
		category = "General"
	}
	k, err := e.store.CreateKnowledge(ctx, core.KnowledgeFragment{
		Title:          title,
		Content:        content,
		Category:       category,
		AuthorityLevel: promotedAuthority,
	})
	if err != nil {
		return core.KnowledgeFragment{}, fmt.Errorf("promote knowledge: %w", err)
	}
	e.logger.Info("Knowledge promoted", "knowledge_id", k.ID, "category", category)
	return k, nil
}

// PurgeMemory deletes every memory entry of agentID and returns the count.
func (e *Engine) PurgeMemory(ctx context.Context, agentID string) (int, error) {
	n, err := e.store.PurgeMemory(ctx, agentID)
	if err != nil {
		return 0, fmt.Errorf("purge memory of %q: %w", agentID, err)
	}
	e.logger.Info("Memory purged", "agent_id", agentID, "entries", n)
	return n, nil
}

// GenerateBriefing returns the strategic briefing of a project, generating
// and storing one when none exists or force is set.
func (e *Engine) GenerateBriefing(ctx context.Context, projectID string, force bool) (core.Project, error) {
	ctx, span := tracer.Start(ctx, "engine.briefing")
	defer span.End()

	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return core.Project{}, fmt.Errorf("briefing: %w", err)
	}
	if p.Briefing != "" && !force {
		return p, nil
	}

	resp, err := model.Collect(ctx, e.model, model.Request{Prompt: briefingPrompt(p)})
	if err != nil {
		span.RecordError(err)
		return core.Project{}, fmt.Errorf("briefing: %w: %w", core.ErrGeneration, err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return core.Project{}, fmt.Errorf("briefing: %w", model.ErrNoResponse)
	}
	return e.store.SetProjectBriefing(ctx, p.ID, text)
}

func briefingPrompt(p core.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a detailed, strategic briefing for a project named %q.\n", p.Name)
	fmt.Fprintf(&b, "The core objective is: %q.\n", p.Objective)
	if p.PersonalityText != "" {
		fmt.Fprintf(&b, "The guiding doctrine of the project is: %q.\n", p.PersonalityText)
	}
	if len(p.CorePrinciples) > 0 {
		fmt.Fprintf(&b, "Core principles: %s.\n", strings.Join(p.CorePrinciples, "; "))
	}
	b.WriteString("The briefing should outline operational phases, resource requirements, risk factors, and success metrics. ")
	b.WriteString("Adopt a formal, command-level tone.")
	return b.String()
}
