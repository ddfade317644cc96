package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sentinel/core"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantText  string
		variant   core.ActionVariant
		kind      core.ActionKind
		wantErr   bool
		discarded int
	}{
		{name: "text only", raw: `{"replyText":"Hello."}`, wantText: "Hello.", variant: core.ActionNone},
		{name: "null action", raw: `{"replyText":"Hi","action":null}`, wantText: "Hi", variant: core.ActionNone},
		{
			name:     "known action",
			raw:      `{"replyText":"Deploying.","action":{"kind":"create-agent","params":{"name":"Vex"}}}`,
			wantText: "Deploying.", variant: core.ActionKnown, kind: core.ActionCreateAgent,
		},
		{
			name:     "underscore kind alias",
			raw:      `{"replyText":"Logged.","action":{"kind":"create_project","params":{"name":"Ark"}}}`,
			wantText: "Logged.", variant: core.ActionKnown, kind: core.ActionCreateProject,
		},
		{
			name:     "fenced json",
			raw:      "```json\n{\"replyText\":\"Fenced.\"}\n```",
			wantText: "Fenced.", variant: core.ActionNone,
		},
		{
			name:     "kind without params",
			raw:      `{"replyText":"Acknowledged.","action":{"kind":"update-agent"}}`,
			wantText: "Acknowledged.", variant: core.ActionMalformed,
		},
		{
			name:     "params without kind",
			raw:      `{"replyText":"Acknowledged.","action":{"params":{"name":"x"}}}`,
			wantText: "Acknowledged.", variant: core.ActionMalformed,
		},
		{
			name:     "unknown kind",
			raw:      `{"replyText":"Sure.","action":{"kind":"launch-missiles","params":{}}}`,
			wantText: "Sure.", variant: core.ActionMalformed,
		},
		{
			name:     "params not an object",
			raw:      `{"replyText":"Sure.","action":{"kind":"delete-agent","params":"abc"}}`,
			wantText: "Sure.", variant: core.ActionMalformed,
		},
		{
			name: "action candidates first valid wins",
			raw: `{"replyText":"Two.","action":[{"kind":"delete-agent"},` +
				`{"kind":"delete-agent","params":{"targetId":"a1"}},` +
				`{"kind":"create-agent","params":{"name":"b"}}]}`,
			wantText: "Two.", variant: core.ActionKnown, kind: core.ActionDeleteAgent, discarded: 2,
		},
		{
			name:     "reply array first valid wins",
			raw:      `[{"nope":1},{"replyText":"Second."},{"replyText":"Third."}]`,
			wantText: "Second.", variant: core.ActionNone, discarded: 1,
		},
		{
			name: "reply array skips malformed action candidate",
			raw: `[{"replyText":"a","action":{"kind":"update-agent"}},` +
				`{"replyText":"b","action":{"kind":"create-project","params":{"name":"Ark"}}}]`,
			wantText: "b", variant: core.ActionKnown, kind: core.ActionCreateProject,
		},
		{
			name: "reply array of only malformed actions",
			raw: `[{"replyText":"a","action":{"kind":"update-agent"}},` +
				`{"replyText":"b","action":{"params":{}}}]`,
			wantText: "a", variant: core.ActionMalformed, discarded: 1,
		},
		{name: "blank replyText", raw: `{"replyText":"   "}`, wantText: "   ", variant: core.ActionNone},
		{name: "not json", raw: "Certainly, Architect.", wantErr: true},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "missing replyText", raw: `{"text":"x"}`, wantErr: true},
		{
			name:     "action without replyText",
			raw:      `{"action":{"kind":"manipulate-environment","params":{"description":"dim lights"}}}`,
			variant:  core.ActionKnown,
			kind:     core.ActionManipulateEnvironment,
			wantText: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, core.ErrContractViolation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, r.Text)
			assert.Equal(t, tt.variant, r.Action.Variant)
			assert.Equal(t, tt.kind, r.Action.Kind)
			assert.Equal(t, tt.discarded, r.Discarded)
		})
	}
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFence("```json{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFence(`{"a":1}`))
}

func TestContract(t *testing.T) {
	c := Contract()
	assert.Equal(t, []string{"replyText"}, c["required"])

	props := c["properties"].(map[string]any)
	action := props["action"].(map[string]any)
	assert.Equal(t, []string{"kind", "params"}, action["required"])

	kind := action["properties"].(map[string]any)["kind"].(map[string]any)
	assert.Len(t, kind["enum"], len(core.ActionKinds()))

	c["mutated"] = true
	assert.NotContains(t, Contract(), "mutated")
}
