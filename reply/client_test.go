package reply

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/model"
)

func TestAllowWebAugmentation(t *testing.T) {
	assert.True(t, AllowWebAugmentation(true, false))
	assert.False(t, AllowWebAugmentation(true, true))
	assert.False(t, AllowWebAugmentation(false, false))
	assert.False(t, AllowWebAugmentation(false, true))
}

func TestClient_Generate(t *testing.T) {
	m := model.NewMockModel("mock").AddReply(`{"replyText":"On it.","action":{"kind":"create-project","params":{"name":"Ark","objective":"Build"}}}`)
	c := NewClient(m)

	r, err := c.Generate(context.Background(), Request{Prompt: "do it", ResearchMode: true})
	require.NoError(t, err)
	assert.Equal(t, "On it.", r.Text)
	assert.True(t, r.Action.IsKnown())
	assert.Equal(t, core.ActionCreateProject, r.Action.Kind)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "do it", reqs[0].Prompt)
	assert.Equal(t, ContractName, reqs[0].ContractName)
	assert.NotNil(t, reqs[0].Contract)
	assert.True(t, reqs[0].AllowWebAugmentation)
	assert.Empty(t, reqs[0].FileReferences)
}

func TestClient_GenerateWithAttachment(t *testing.T) {
	m := model.NewMockModel("mock")
	c := NewClient(m)

	ref := core.FileRef{URL: "mem://files/1", Name: "scan.png", ContentType: "image/png"}
	_, err := c.Generate(context.Background(), Request{Prompt: "see", ResearchMode: true, Attachment: &ref})
	require.NoError(t, err)

	req := m.Requests()[0]
	assert.False(t, req.AllowWebAugmentation)
	assert.Equal(t, []core.FileRef{ref}, req.FileReferences)
}

func TestClient_GenerateMalformed(t *testing.T) {
	m := model.NewMockModel("mock").AddReply(`{"replyText":"Acknowledged.","action":{"kind":"update-agent"}}`)

	r, err := NewClient(m).Generate(context.Background(), Request{Prompt: "x"})
	require.ErrorIs(t, err, core.ErrContractViolation)
	assert.True(t, r.Action.IsMalformed())
}

func TestClient_GenerateTransportError(t *testing.T) {
	m := model.NewMockModel("mock").AddError(errors.New("503"))

	_, err := NewClient(m).Generate(context.Background(), Request{Prompt: "x"})
	require.ErrorIs(t, err, core.ErrGeneration)
	assert.NotErrorIs(t, err, core.ErrContractViolation)
}

func TestClient_GenerateNotJSON(t *testing.T) {
	m := model.NewMockModel("mock").AddReply("plain words")

	_, err := NewClient(m).Generate(context.Background(), Request{Prompt: "x"})
	require.ErrorIs(t, err, core.ErrContractViolation)
}
