package prompt

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/logging"
	"github.com/hupe1980/sentinel/policy"
)

// Defaults for Options.
const (
	DefaultHistoryScan     = 100
	DefaultHistoryWindow   = 10
	DefaultKnowledgeBudget = 16000
)

// Store is the read side of the entity store used for context assembly.
type Store interface {
	ListMemory(ctx context.Context, opts core.ListOptions) ([]core.MemoryEntry, error)
	ListKnowledge(ctx context.Context, opts core.ListOptions) ([]core.KnowledgeFragment, error)
	GetProject(ctx context.Context, id string) (core.Project, error)
	ListProjects(ctx context.Context, opts core.ListOptions) ([]core.Project, error)
}

// Options configures an Assembler.
type Options struct {
	// HistoryScan is how many recent entries are read before filtering by agent.
	HistoryScan int
	// HistoryWindow is how many of the agent's entries are kept.
	HistoryWindow int
	// KnowledgeBudget caps the knowledge block in characters (runes). Zero
	// disables the cap.
	KnowledgeBudget int
	// Permissions describes what each rank may do in the authority block.
	Permissions interface {
		Permitted(rank core.Rank) []core.ActionKind
	}
	Logger logging.Logger
}

// Request is the input for one assembly.
type Request struct {
	Agent        core.Agent
	SessionID    string
	Message      string
	ResearchMode bool
	Attachment   *core.FileRef
}

// Context is the assembled prompt plus the material it was built from.
type Context struct {
	Text string
	// History is the selected memory window, oldest first.
	History []core.MemoryEntry
	// Project is the linked project, nil when absent or unavailable.
	Project *core.Project
	// ProjectErr records a linked-project fetch failure that was tolerated.
	ProjectErr       error
	KnowledgeUsed    int
	KnowledgeOmitted int
}

// Assembler builds prompt contexts.
type Assembler struct {
	store Store
	opts  Options
}

// NewAssembler creates an Assembler reading from store.
func NewAssembler(store Store, optFns ...func(o *Options)) *Assembler {
	opts := Options{
		HistoryScan:     DefaultHistoryScan,
		HistoryWindow:   DefaultHistoryWindow,
		KnowledgeBudget: DefaultKnowledgeBudget,
		Permissions:     policy.DefaultTable(),
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HistoryScan <= 0 {
		opts.HistoryScan = DefaultHistoryScan
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	if opts.KnowledgeBudget < 0 {
		opts.KnowledgeBudget = DefaultKnowledgeBudget
	}
	return &Assembler{store: store, opts: opts}
}

// Assemble fetches all context sources concurrently and renders the prompt.
// Any failure other than the linked project wraps core.ErrContextFetch.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Context, error) {
	var (
		recent    []core.MemoryEntry
		knowledge []core.KnowledgeFragment
		manifest  []core.Project
		project   *core.Project
		projErr   error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		entries, err := a.store.ListMemory(gctx, core.ListOptions{Limit: a.opts.HistoryScan})
		if err != nil {
			return fmt.Errorf("%w: memory: %w", core.ErrContextFetch, err)
		}
		recent = entries
		return nil
	})

	g.Go(func() error {
		frags, err := a.store.ListKnowledge(gctx, core.ListOptions{})
		if err != nil {
			return fmt.Errorf("%w: knowledge: %w", core.ErrContextFetch, err)
		}
		knowledge = frags
		return nil
	})

	g.Go(func() error {
		projects, err := a.store.ListProjects(gctx, core.ListOptions{})
		if err != nil {
			return fmt.Errorf("%w: project manifest: %w", core.ErrContextFetch, err)
		}
		manifest = projects
		return nil
	})

	if req.Agent.ProjectID != "" {
		g.Go(func() error {
			p, err := a.store.GetProject(gctx, req.Agent.ProjectID)
			if err != nil {
				projErr = fmt.Errorf("%w: %w", core.ErrProjectFetch, err)
				return nil
			}
			project = &p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if projErr != nil {
		a.opts.Logger.Warn("linked project unavailable; continuing without it",
			"agent_id", req.Agent.ID, "project_id", req.Agent.ProjectID, "error", projErr)
	}

	history := Window(recent, req.Agent.ID, a.opts.HistoryWindow)
	kb, used, omitted := knowledgeBlock(knowledge, a.opts.KnowledgeBudget)

	text := render(renderInput{
		agent:       req.Agent,
		permitted:   a.opts.Permissions.Permitted(req.Agent.Rank),
		knowledge:   kb,
		project:     project,
		history:     history,
		manifest:    manifest,
		message:     req.Message,
		hasFile:     req.Attachment != nil,
		fileName:    attachmentName(req.Attachment),
		researching: req.ResearchMode,
	})

	return &Context{
		Text:             text,
		History:          history,
		Project:          project,
		ProjectErr:       projErr,
		KnowledgeUsed:    used,
		KnowledgeOmitted: omitted,
	}, nil
}

// Window selects the agent's entries from a newest-first list, keeps at most
// size of them and returns them oldest first. Entries of other agents never
// pass. A non-positive size yields an empty window.
func Window(newestFirst []core.MemoryEntry, agentID string, size int) []core.MemoryEntry {
	if size <= 0 {
		return []core.MemoryEntry{}
	}
	out := make([]core.MemoryEntry, 0, size)
	for _, e := range newestFirst {
		if len(out) == size {
			break
		}
		if e.AgentID != agentID {
			continue
		}
		out = append(out, e)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func attachmentName(f *core.FileRef) string {
	if f == nil {
		return ""
	}
	return f.Name
}
