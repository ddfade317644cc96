package core

import "strings"

// ActionKind enumerates the administrative actions a reply may request.
type ActionKind string

const (
	ActionCreateAgent           ActionKind = "create-agent"
	ActionUpdateAgent           ActionKind = "update-agent"
	ActionDeleteAgent           ActionKind = "delete-agent"
	ActionCreateProject         ActionKind = "create-project"
	ActionManipulateEnvironment ActionKind = "manipulate-environment"
)

// ActionKinds returns the known kinds in contract order.
func ActionKinds() []ActionKind {
	return []ActionKind{
		ActionCreateAgent,
		ActionUpdateAgent,
		ActionDeleteAgent,
		ActionCreateProject,
		ActionManipulateEnvironment,
	}
}

// Valid reports whether k is one of the known kinds.
func (k ActionKind) Valid() bool {
	for _, known := range ActionKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Mutating reports whether the kind changes the entity store.
func (k ActionKind) Mutating() bool {
	return k.Valid() && k != ActionManipulateEnvironment
}

// ParseActionKind normalizes underscores to dashes before matching.
func ParseActionKind(s string) (ActionKind, bool) {
	k := ActionKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	return k, k.Valid()
}

// ActionVariant tags an Action.
type ActionVariant int

const (
	// ActionNone means the reply requested no action.
	ActionNone ActionVariant = iota
	// ActionKnown is a well-formed request with a known kind and params.
	ActionKnown
	// ActionMalformed is a request whose shape violates the reply contract.
	ActionMalformed
)

// Action is the reply-derived request: Known(kind, params) | Malformed. It is
// never persisted.
type Action struct {
	Variant ActionVariant
	Kind    ActionKind
	Params  map[string]any
	Reason  string
}

// Known builds a well-formed action.
func Known(kind ActionKind, params map[string]any) Action {
	return Action{Variant: ActionKnown, Kind: kind, Params: params}
}

// Malformed builds a contract-violating action with a diagnostic reason.
func Malformed(reason string) Action {
	return Action{Variant: ActionMalformed, Reason: reason}
}

// IsNone reports whether no action was requested.
func (a Action) IsNone() bool { return a.Variant == ActionNone }

// IsKnown reports whether the action is well-formed.
func (a Action) IsKnown() bool { return a.Variant == ActionKnown }

// IsMalformed reports whether the action violates the contract.
func (a Action) IsMalformed() bool { return a.Variant == ActionMalformed }

// StringParam returns a trimmed string parameter and whether it was present and non-empty.
func (a Action) StringParam(key string) (string, bool) {
	v, ok := a.Params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
