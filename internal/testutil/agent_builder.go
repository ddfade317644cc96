package testutil

import (
	"time"

	"github.com/hupe1980/sentinel/core"
)

// AgentBuilder helps construct agents with fluent chaining for tests.
// Example:
//
//	a := NewAgentBuilder("a1").Name("Vex").Rank(core.RankCaptain).Build()
type AgentBuilder struct {
	a core.Agent
}

// NewAgentBuilder creates a builder for an active Specialist with the given id.
func NewAgentBuilder(id string) *AgentBuilder {
	return &AgentBuilder{a: core.Agent{
		ID:         id,
		Name:       "Agent " + id,
		Rank:       core.RankSpecialist,
		Faction:    "Vanguard",
		Status:     core.StatusActive,
		AccessTier: core.TierDelta,
		CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

// Name sets the agent name (chainable).
func (b *AgentBuilder) Name(n string) *AgentBuilder { b.a.Name = n; return b }

// Rank sets the agent rank (chainable).
func (b *AgentBuilder) Rank(r core.Rank) *AgentBuilder { b.a.Rank = r; return b }

// Faction sets the faction (chainable).
func (b *AgentBuilder) Faction(f string) *AgentBuilder { b.a.Faction = f; return b }

// Personality sets the personality text (chainable).
func (b *AgentBuilder) Personality(p string) *AgentBuilder { b.a.PersonalityText = p; return b }

// Project links the agent to a project (chainable).
func (b *AgentBuilder) Project(id string) *AgentBuilder { b.a.ProjectID = id; return b }

// Voice sets the voice profile (chainable).
func (b *AgentBuilder) Voice(v string) *AgentBuilder { b.a.VoiceProfile = v; return b }

// Build returns the agent.
func (b *AgentBuilder) Build() core.Agent { return b.a }
