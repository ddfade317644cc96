package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sentinel/entity"
)

func TestFailingStore_ResetClearsCountsKeepsFailures(t *testing.T) {
	ctx := context.Background()
	store := NewFailingStore(entity.NewEntityStore())
	boom := errors.New("offline")
	store.Fail(OpDeleteAgent, boom)

	_, err := store.CreateAgent(ctx, NewAgentBuilder("a1").Name("Vega").Build())
	require.NoError(t, err)
	assert.Equal(t, 1, store.Calls(OpCreateAgent))
	assert.Equal(t, 1, store.Mutations())

	store.Reset()
	assert.Zero(t, store.Calls(OpCreateAgent))
	assert.Zero(t, store.Mutations())

	_, err = store.GetAgent(ctx, "a1")
	require.NoError(t, err)
	assert.ErrorIs(t, store.DeleteAgent(ctx, "a1"), boom)
	assert.Equal(t, 1, store.Mutations())
}
