package action

import (
	"context"
	"strings"

	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/internal/util"
	"github.com/hupe1980/sentinel/logging"
)

// Result describes a successful action.
type Result struct {
	Kind     core.ActionKind
	TargetID string
	Summary  string
	// Mutated is true when the entity store changed.
	Mutated bool
}

// Store is the subset of the entity store handlers write to.
type Store interface {
	core.AgentStore
	core.ProjectStore
}

// Handler executes one action kind.
type Handler interface {
	Kind() core.ActionKind
	// Parameters returns the JSON schema for the action params.
	Parameters() map[string]any
	Execute(ctx context.Context, actor core.Agent, params map[string]any) (Result, error)
}

type createAgentHandler struct {
	store  core.AgentStore
	schema map[string]any
}

func (h *createAgentHandler) Kind() core.ActionKind      { return core.ActionCreateAgent }
func (h *createAgentHandler) Parameters() map[string]any { return h.schema }

func (h *createAgentHandler) Execute(ctx context.Context, _ core.Agent, raw map[string]any) (Result, error) {
	var p createAgentParams
	if err := bind(h.Kind(), h.schema, raw, &p); err != nil {
		return Result{}, err
	}

	a := core.Agent{
		Name:            strings.TrimSpace(p.Name),
		Rank:            core.RankSpecialist,
		Faction:         p.Faction,
		Status:          core.StatusActive,
		AccessTier:      core.TierDelta,
		PersonalityText: p.PersonalityText,
		ProjectID:       p.ProjectID,
		VoiceProfile:    p.VoiceProfile,
	}
	if p.Rank != "" {
		r, err := parseRank(h.Kind(), p.Rank)
		if err != nil {
			return Result{}, err
		}
		a.Rank = r
	}
	if p.Status != "" {
		a.Status = p.Status
	}
	if p.AccessTier != "" {
		a.AccessTier = p.AccessTier
	}

	created, err := h.store.CreateAgent(ctx, a)
	if err != nil {
		return Result{}, storeError(h.Kind(), err)
	}
	return Result{Kind: h.Kind(), TargetID: created.ID, Summary: "created agent " + created.Name, Mutated: true}, nil
}

type updateAgentHandler struct {
	store  core.AgentStore
	schema map[string]any
}

func (h *updateAgentHandler) Kind() core.ActionKind      { return core.ActionUpdateAgent }
func (h *updateAgentHandler) Parameters() map[string]any { return h.schema }

func (h *updateAgentHandler) Execute(ctx context.Context, actor core.Agent, raw map[string]any) (Result, error) {
	var p updateAgentParams
	if err := bind(h.Kind(), h.schema, raw, &p); err != nil {
		return Result{}, err
	}

	patch := core.AgentPatch{
		Name:            p.Name,
		Faction:         p.Faction,
		Status:          p.Status,
		AccessTier:      p.AccessTier,
		PersonalityText: p.PersonalityText,
		ProjectID:       p.ProjectID,
		VoiceProfile:    p.VoiceProfile,
	}
	if p.Rank != nil {
		r, err := parseRank(h.Kind(), *p.Rank)
		if err != nil {
			return Result{}, err
		}
		if p.TargetID == actor.ID && r != actor.Rank {
			return Result{}, NewError(h.Kind(), "an agent may not change its own rank", CodeForbidden)
		}
		patch.Rank = &r
	}
	if patch.Empty() {
		return Result{}, NewError(h.Kind(), "no fields to update", CodeInvalidParams)
	}

	updated, err := h.store.UpdateAgent(ctx, p.TargetID, patch)
	if err != nil {
		return Result{}, storeError(h.Kind(), err)
	}
	return Result{Kind: h.Kind(), TargetID: updated.ID, Summary: "updated agent " + updated.Name, Mutated: true}, nil
}

type deleteAgentHandler struct {
	store  core.AgentStore
	schema map[string]any
}

func (h *deleteAgentHandler) Kind() core.ActionKind      { return core.ActionDeleteAgent }
func (h *deleteAgentHandler) Parameters() map[string]any { return h.schema }

func (h *deleteAgentHandler) Execute(ctx context.Context, actor core.Agent, raw map[string]any) (Result, error) {
	var p deleteAgentParams
	if err := bind(h.Kind(), h.schema, raw, &p); err != nil {
		return Result{}, err
	}
	if p.TargetID == actor.ID {
		return Result{}, NewError(h.Kind(), "an agent may not delete itself", CodeForbidden)
	}
	if err := h.store.DeleteAgent(ctx, p.TargetID); err != nil {
		return Result{}, storeError(h.Kind(), err)
	}
	return Result{Kind: h.Kind(), TargetID: p.TargetID, Summary: "deleted agent " + p.TargetID, Mutated: true}, nil
}

type createProjectHandler struct {
	store  core.ProjectStore
	schema map[string]any
}

func (h *createProjectHandler) Kind() core.ActionKind      { return core.ActionCreateProject }
func (h *createProjectHandler) Parameters() map[string]any { return h.schema }

func (h *createProjectHandler) Execute(ctx context.Context, actor core.Agent, raw map[string]any) (Result, error) {
	var p createProjectParams
	if err := bind(h.Kind(), h.schema, raw, &p); err != nil {
		return Result{}, err
	}
	status := p.Status
	if status == "" {
		status = ProjectStatusProposed
	}
	created, err := h.store.CreateProject(ctx, core.Project{
		Name:            strings.TrimSpace(p.Name),
		Objective:       strings.TrimSpace(p.Objective),
		PersonalityText: p.PersonalityText,
		CorePrinciples:  p.CorePrinciples,
		Status:          status,
		AgentID:         actor.ID,
	})
	if err != nil {
		return Result{}, storeError(h.Kind(), err)
	}
	return Result{Kind: h.Kind(), TargetID: created.ID, Summary: "created project " + created.Name, Mutated: true}, nil
}

// ProjectStatusProposed is the status of projects created by an agent.
const ProjectStatusProposed = "proposed"

// manipulateEnvironmentHandler only records the request in the log.
type manipulateEnvironmentHandler struct {
	logger logging.Logger
	schema map[string]any
}

func (h *manipulateEnvironmentHandler) Kind() core.ActionKind {
	return core.ActionManipulateEnvironment
}
func (h *manipulateEnvironmentHandler) Parameters() map[string]any { return h.schema }

func (h *manipulateEnvironmentHandler) Execute(_ context.Context, actor core.Agent, raw map[string]any) (Result, error) {
	var p manipulateEnvironmentParams
	if err := bind(h.Kind(), h.schema, raw, &p); err != nil {
		return Result{}, err
	}
	h.logger.Info("environment manipulation requested", "agent_id", actor.ID, "agent", actor.Name, "description", p.Description)
	return Result{Kind: h.Kind(), Summary: p.Description}, nil
}

func defaultHandlers(store Store, logger logging.Logger) []Handler {
	return []Handler{
		&createAgentHandler{store: store, schema: util.CreateSchema(createAgentParams{})},
		&updateAgentHandler{store: store, schema: util.CreateSchema(updateAgentParams{})},
		&deleteAgentHandler{store: store, schema: util.CreateSchema(deleteAgentParams{})},
		&createProjectHandler{store: store, schema: util.CreateSchema(createProjectParams{})},
		&manipulateEnvironmentHandler{logger: logger, schema: util.CreateSchema(manipulateEnvironmentParams{})},
	}
}
