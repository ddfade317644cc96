package reply

import (
	"github.com/hupe1980/sentinel/core"
)

// ContractName identifies the reply contract to providers.
const ContractName = "sentinel_reply"

// Contract returns the JSON schema every model reply must satisfy. A fresh
// map is returned on each call so providers may mutate it.
func Contract() map[string]any {
	kinds := make([]string, 0, len(core.ActionKinds()))
	for _, k := range core.ActionKinds() {
		kinds = append(kinds, string(k))
	}
	ranks := make([]string, 0, len(core.Ranks()))
	for _, r := range core.Ranks() {
		ranks = append(ranks, r.String())
	}

	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"replyText": str("The verbal response from the agent to the operator."),
			"action": map[string]any{
				"type":        "object",
				"description": "An optional administrative action. Omit entirely unless explicitly commanded.",
				"properties": map[string]any{
					"kind": map[string]any{
						"type":        "string",
						"enum":        kinds,
						"description": "The kind of administrative action to perform.",
					},
					"params": map[string]any{
						"type":        "object",
						"description": "Parameters for the action. create-project requires name and objective; manipulate-environment requires description.",
						"properties": map[string]any{
							"targetId":        str("The id of the target agent for update/delete actions."),
							"name":            str("The name for the agent or project being created."),
							"rank":            map[string]any{"type": "string", "enum": ranks},
							"faction":         str("The faction of the agent."),
							"status":          map[string]any{"type": "string", "enum": []string{core.StatusActive, core.StatusStandby, core.StatusMaintenance, core.StatusOffline}},
							"accessTier":      map[string]any{"type": "string", "enum": []string{core.TierAlpha, core.TierBeta, core.TierGamma, core.TierDelta}},
							"voiceProfile":    str("Voice profile identifier."),
							"personalityText": str("Personality instructions."),
							"objective":       str("The objective for the project to be created."),
							"description":     str("Description of the environmental manipulation."),
						},
					},
				},
				"required": []string{"kind", "params"},
			},
		},
		"required": []string{"replyText"},
	}
}
