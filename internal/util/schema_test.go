package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleParams struct {
	Name     string   `json:"name" description:"agent name"`
	Rank     string   `json:"rank,omitempty" enum:"Commander|Captain"`
	Tier     *string  `json:"tier"`
	Count    int      `json:"count,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	internal string
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleParams{})
	props := schema["properties"].(map[string]any)

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"name"}, schema["required"])
	assert.Equal(t, "agent name", props["name"].(map[string]any)["description"])
	assert.Equal(t, []string{"Commander", "Captain"}, props["rank"].(map[string]any)["enum"])
	assert.Equal(t, "string", props["tier"].(map[string]any)["type"])
	assert.Equal(t, "integer", props["count"].(map[string]any)["type"])
	assert.Equal(t, "array", props["tags"].(map[string]any)["type"])
	assert.NotContains(t, props, "internal")
}

func TestValidateParameters(t *testing.T) {
	schema := CreateSchema(sampleParams{})

	require.NoError(t, ValidateParameters(map[string]any{"name": "Vex", "count": float64(2), "extra": true}, schema))

	var vErr *ValidationError

	err := ValidateParameters(map[string]any{}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field)

	err = ValidateParameters(map[string]any{"name": "  "}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "required field is empty", vErr.Message)

	err = ValidateParameters(map[string]any{"name": "Vex", "count": 1.5}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "count", vErr.Field)

	err = ValidateParameters(map[string]any{"name": "Vex", "rank": "Admiral"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "rank", vErr.Field)
	assert.Contains(t, vErr.Error(), "must be one of")
}

func TestStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Strings([]any{"a", 1, "b"}))
	assert.Equal(t, []string{"x"}, Strings([]string{"x"}))
	assert.Nil(t, Strings(42))
}
