package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/sentinel/core"
)

// StoreIdentity resolves the acting agent from the agent store.
type StoreIdentity struct {
	Agents core.AgentStore
}

// Resolve implements core.Identity. A missing agent wraps core.ErrAgentNotFound.
func (s StoreIdentity) Resolve(ctx context.Context, agentID string) (core.Agent, error) {
	if agentID == "" {
		return core.Agent{}, fmt.Errorf("no agent selected: %w", core.ErrAgentNotFound)
	}
	a, err := s.Agents.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, core.ErrAgentNotFound) || errors.Is(err, core.ErrNotFound) {
			return core.Agent{}, fmt.Errorf("resolve %q: %w", agentID, core.ErrAgentNotFound)
		}
		return core.Agent{}, fmt.Errorf("resolve %q: %w", agentID, err)
	}
	return a, nil
}

var _ core.Identity = StoreIdentity{}
