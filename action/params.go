package action

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/internal/util"
)

type createAgentParams struct {
	Name            string `json:"name" description:"Name of the new agent."`
	Rank            string `json:"rank,omitempty"`
	Faction         string `json:"faction,omitempty"`
	Status          string `json:"status,omitempty" enum:"active|standby|maintenance|offline"`
	AccessTier      string `json:"accessTier,omitempty" enum:"alpha|beta|gamma|delta"`
	VoiceProfile    string `json:"voiceProfile,omitempty"`
	PersonalityText string `json:"personalityText,omitempty"`
	ProjectID       string `json:"projectId,omitempty"`
}

type updateAgentParams struct {
	TargetID        string  `json:"targetId" description:"Id of the agent to update."`
	Name            *string `json:"name,omitempty"`
	Rank            *string `json:"rank,omitempty"`
	Faction         *string `json:"faction,omitempty"`
	Status          *string `json:"status,omitempty" enum:"active|standby|maintenance|offline"`
	AccessTier      *string `json:"accessTier,omitempty" enum:"alpha|beta|gamma|delta"`
	VoiceProfile    *string `json:"voiceProfile,omitempty"`
	PersonalityText *string `json:"personalityText,omitempty"`
	ProjectID       *string `json:"projectId,omitempty"`
}

type deleteAgentParams struct {
	TargetID string `json:"targetId" description:"Id of the agent to delete."`
}

type createProjectParams struct {
	Name            string   `json:"name" description:"Project name."`
	Objective       string   `json:"objective" description:"Project objective."`
	PersonalityText string   `json:"personalityText,omitempty"`
	CorePrinciples  []string `json:"corePrinciples,omitempty"`
	Status          string   `json:"status,omitempty"`
}

type manipulateEnvironmentParams struct {
	Description string `json:"description" description:"Description of the environmental change."`
}

// bind validates raw params against schema and decodes them into dst.
func bind(kind core.ActionKind, schema, raw map[string]any, dst any) error {
	if err := util.ValidateParameters(raw, schema); err != nil {
		return &Error{Kind: kind, Message: err.Error(), Code: CodeInvalidParams, Err: err}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return &Error{Kind: kind, Message: "params are not serializable", Code: CodeInvalidParams, Err: err}
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return &Error{Kind: kind, Message: err.Error(), Code: CodeInvalidParams, Err: err}
	}
	return nil
}

// parseRank rejects rank strings that do not name a known rank.
func parseRank(kind core.ActionKind, s string) (core.Rank, error) {
	r := core.ParseRank(s)
	if r == core.RankUnknown {
		return r, NewError(kind, fmt.Sprintf("unknown rank %q", s), CodeInvalidParams)
	}
	return r, nil
}

