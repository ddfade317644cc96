package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/sentinel/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ core.MemoryStore = (*InMemoryStore)(nil)

func seed(t *testing.T, s *InMemoryStore, n int, agents ...string) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := s.AppendMemory(context.Background(), core.MemoryEntry{
			ID:          fmt.Sprintf("m%03d", i),
			AgentID:     agents[i%len(agents)],
			SessionID:   "s1",
			UserMessage: fmt.Sprintf("q%d", i),
			AgentReply:  fmt.Sprintf("r%d", i),
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func TestInMemoryStore_ListNewestFirst(t *testing.T) {
	s := NewInMemoryStore()
	seed(t, s, 5, "a")

	res, err := s.ListMemory(context.Background(), core.ListOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []string{"m004", "m003", "m002"}, []string{res[0].ID, res[1].ID, res[2].ID})

	all, err := s.ListMemory(context.Background(), core.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestInMemoryStore_EqualTimestampsKeepInsertionOrder(t *testing.T) {
	s := NewInMemoryStore()
	ts := time.Now()
	for _, id := range []string{"x", "y", "z"} {
		_, err := s.AppendMemory(context.Background(), core.MemoryEntry{ID: id, AgentID: "a", Timestamp: ts})
		require.NoError(t, err)
	}
	res, err := s.ListMemory(context.Background(), core.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, "z", res[0].ID)
	assert.Equal(t, "x", res[2].ID)
}

func TestInMemoryStore_FilterAndPurge(t *testing.T) {
	s := NewInMemoryStore()
	seed(t, s, 9, "a", "b", "c")

	bs, err := s.FilterMemory(context.Background(), "b", core.ListOptions{})
	require.NoError(t, err)
	require.Len(t, bs, 3)
	for _, e := range bs {
		assert.Equal(t, "b", e.AgentID)
	}

	n, err := s.PurgeMemory(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 6, s.Len())

	bs, err = s.FilterMemory(context.Background(), "b", core.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, bs)
}

func TestInMemoryStore_RejectsInvalid(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.AppendMemory(context.Background(), core.MemoryEntry{ID: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)

	_, err = s.AppendMemory(context.Background(), core.MemoryEntry{ID: "x", AgentID: "a"})
	require.NoError(t, err)
	_, err = s.AppendMemory(context.Background(), core.MemoryEntry{ID: "x", AgentID: "a"})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)

	_, err = s.FilterMemory(context.Background(), "", core.ListOptions{})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewInMemoryStore()
	wg := sync.WaitGroup{}
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AppendMemory(context.Background(), core.MemoryEntry{ID: fmt.Sprint(i), AgentID: "a", Timestamp: time.Now()})
			if err != nil {
				t.Errorf("append error: %v", err)
			}
			if _, err := s.ListMemory(context.Background(), core.ListOptions{Limit: 5}); err != nil {
				t.Errorf("list error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 25, s.Len())
}

func TestRecorder_Record(t *testing.T) {
	s := NewInMemoryStore()
	fixed := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	r := NewRecorder(s, func(o *Options) {
		o.Now = func() time.Time { return fixed }
		o.NewID = func() string { return "entry-1" }
	})

	e, err := r.Record(context.Background(), core.SessionContext{SessionID: "s", AgentID: "a"}, "hi", "hello")
	require.NoError(t, err)
	assert.Equal(t, core.MemoryEntry{ID: "entry-1", AgentID: "a", SessionID: "s", UserMessage: "hi", AgentReply: "hello", Timestamp: fixed}, e)
	assert.Equal(t, 1, s.Len())
}

func TestRecorder_PropagatesStoreError(t *testing.T) {
	r := NewRecorder(NewInMemoryStore())
	_, err := r.Record(context.Background(), core.SessionContext{SessionID: "s"}, "hi", "hello")
	assert.ErrorIs(t, err, core.ErrInvalidRecord)
}
