package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/model"
)

func TestSchemaFromMap(t *testing.T) {
	s := SchemaFromMap(map[string]any{
		"type":     "object",
		"required": []any{"replyText"},
		"properties": map[string]any{
			"replyText": map[string]any{"type": "string"},
			"kind":      map[string]any{"type": "string", "enum": []string{"create-agent", "delete-agent"}},
			"tags":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	})
	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"replyText"}, s.Required)
	assert.Equal(t, genai.TypeString, s.Properties["replyText"].Type)
	assert.Equal(t, []string{"create-agent", "delete-agent"}, s.Properties["kind"].Enum)
	assert.Equal(t, genai.TypeString, s.Properties["tags"].Items.Type)
	assert.Nil(t, SchemaFromMap(nil))
}

func TestBuildConfig_WebAugmentationDropsSchema(t *testing.T) {
	contract := map[string]any{"type": "object"}

	cfg := buildConfig(model.Request{Contract: contract, AllowWebAugmentation: true}, 0.5)
	require.Len(t, cfg.Tools, 1)
	assert.NotNil(t, cfg.Tools[0].GoogleSearch)
	assert.Nil(t, cfg.ResponseSchema)

	cfg = buildConfig(model.Request{Contract: contract}, 0.5)
	assert.Empty(t, cfg.Tools)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.NotNil(t, cfg.ResponseSchema)
}

func TestBuildParts_SplitsRemoteAndLocalReferences(t *testing.T) {
	parts := buildParts(model.Request{
		Prompt: "look",
		FileReferences: []core.FileRef{
			{URL: "https://files.example/a.png", Name: "a.png", ContentType: "image/png"},
			{URL: "mem://files/b", Name: "b.txt", ContentType: "text/plain"},
		},
	})
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0].Text, "b.txt")
	assert.NotContains(t, parts[0].Text, "a.png")
	require.NotNil(t, parts[1].FileData)
	assert.Equal(t, "https://files.example/a.png", parts[1].FileData.FileURI)
}
