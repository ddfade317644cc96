package sentinel

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/engine"
	"github.com/hupe1980/sentinel/model"
)

func TestSentinel_SendAndExport(t *testing.T) {
	ctx := context.Background()
	m := model.NewMockModel("mock").AddReply(`{"replyText":"Standing by."}`)
	s := New(m)

	a, err := s.Store().CreateAgent(ctx, core.Agent{Name: "Vega", Rank: core.RankMajor})
	require.NoError(t, err)

	sc, err := s.OpenSession(ctx, a.ID, false)
	require.NoError(t, err)

	res, err := s.Send(ctx, sc, "Report", WithResearch())
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeCompleted, res.Outcome)
	assert.Equal(t, "Standing by.", res.Message)
	assert.True(t, m.Requests()[0].AllowWebAugmentation)

	var buf bytes.Buffer
	require.NoError(t, s.ExportTranscript(ctx, &buf, sc))
	assert.Contains(t, buf.String(), "Conversation with Vega")
	assert.Contains(t, buf.String(), "OPERATOR: Report")
	assert.Contains(t, buf.String(), "Vega: Standing by.")
	assert.NoError(t, s.Close())
}

func TestSentinel_OpenSessionUnknownAgent(t *testing.T) {
	_, err := New(model.NewMockModel("mock")).OpenSession(context.Background(), "ghost", false)
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}
