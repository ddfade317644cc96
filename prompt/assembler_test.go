package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/entity"
	"github.com/hupe1980/sentinel/internal/testutil"
)

func seedMemory(t *testing.T, store core.MemoryStore, entries []core.MemoryEntry) {
	t.Helper()
	for _, e := range entries {
		_, err := store.AppendMemory(context.Background(), e)
		require.NoError(t, err)
	}
}

func TestAssemble_HistoryWindowScopedToAgent(t *testing.T) {
	store := entity.NewEntityStore()
	entries := testutil.NewMemoryBuilder("s1").Interleave(120, "a", "b", "x")
	seedMemory(t, store, entries)

	var want []string
	for _, e := range entries {
		if e.AgentID == "x" {
			want = append(want, e.ID)
		}
	}
	want = want[len(want)-10:]

	agent := testutil.NewAgentBuilder("x").Name("Xan").Build()
	got, err := NewAssembler(store).Assemble(context.Background(), Request{Agent: agent, Message: "hi"})
	require.NoError(t, err)

	ids := make([]string, len(got.History))
	for i, e := range got.History {
		assert.Equal(t, "x", e.AgentID)
		ids[i] = e.ID
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("history window mismatch (-want +got):\n%s", diff)
	}
	assert.NotContains(t, got.Text, " from a\n")
	assert.NotContains(t, got.Text, " from b\n")
}

func TestWindow(t *testing.T) {
	b := testutil.NewMemoryBuilder("s")
	e1, e2, e3, e4 := b.Next("a"), b.Next("b"), b.Next("a"), b.Next("a")
	newestFirst := []core.MemoryEntry{e4, e3, e2, e1}

	got := Window(newestFirst, "a", 2)
	require.Len(t, got, 2)
	assert.Equal(t, e3.ID, got[0].ID)
	assert.Equal(t, e4.ID, got[1].ID)

	assert.Empty(t, Window(newestFirst, "zzz", 10))
}

func TestAssemble_BlockOrder(t *testing.T) {
	ctx := context.Background()
	store := entity.NewEntityStore()

	proj, err := store.CreateProject(ctx, core.Project{Name: "Ark", Objective: "Preserve knowledge", CorePrinciples: []string{"Integrity"}})
	require.NoError(t, err)
	_, err = store.CreateKnowledge(ctx, core.KnowledgeFragment{Title: "Directive", Content: "Protect the archive"})
	require.NoError(t, err)
	seedMemory(t, store, []core.MemoryEntry{testutil.NewMemoryBuilder("s").Next("cmdr")})

	agent := testutil.NewAgentBuilder("cmdr").Name("Halden").Rank(core.RankCommander).
		Personality("Calm and precise.").Project(proj.ID).Build()

	ref := core.FileRef{URL: "mem://files/1", Name: "map.png"}
	got, err := NewAssembler(store).Assemble(ctx, Request{Agent: agent, Message: "Status report", Attachment: &ref})
	require.NoError(t, err)
	require.NotNil(t, got.Project)

	markers := []string{
		"You are Halden, a Commander",
		"Calm and precise.",
		"RANK AUTHORITY (Commander, CMDR)",
		"QUERY CLASSIFICATION PROTOCOL",
		"ACTION PROTOCOL",
		"--- GLOBAL KNOWLEDGE BASE ---",
		"Title: Directive",
		"Project: Ark",
		"- Integrity",
		"PROJECT BRIEFING PROTOCOL",
		"PREVIOUS CONVERSATION HISTORY",
		"question 1",
		"AVAILABLE PROJECT MANIFEST",
		`Project Name: "Ark"`,
		"CURRENT USER MESSAGE: Status report",
		"A file (map.png) has been attached",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(got.Text, m)
		require.GreaterOrEqualf(t, idx, 0, "missing %q", m)
		assert.Greaterf(t, idx, last, "%q out of order", m)
		last = idx
	}
}

func TestAssemble_AuthorityListsPermittedKinds(t *testing.T) {
	store := entity.NewEntityStore()
	a := NewAssembler(store)

	got, err := a.Assemble(context.Background(), Request{Agent: testutil.NewAgentBuilder("c").Rank(core.RankCaptain).Build()})
	require.NoError(t, err)
	assert.Contains(t, got.Text, "Permitted action kinds: create-project, manipulate-environment.")

	got, err = a.Assemble(context.Background(), Request{Agent: testutil.NewAgentBuilder("s").Build()})
	require.NoError(t, err)
	assert.Contains(t, got.Text, "not authorized to perform any administrative action")
}

func TestAssemble_ProjectFailureIsolated(t *testing.T) {
	store := testutil.NewFailingStore(entity.NewEntityStore())
	store.Fail(testutil.OpGetProject, errors.New("timeout"))

	agent := testutil.NewAgentBuilder("a").Project("p1").Build()
	got, err := NewAssembler(store).Assemble(context.Background(), Request{Agent: agent, Message: "hi"})
	require.NoError(t, err)
	assert.Nil(t, got.Project)
	assert.ErrorIs(t, got.ProjectErr, core.ErrProjectFetch)
	assert.NotContains(t, got.Text, "designated intelligence")
}

func TestAssemble_MissingProjectIsolated(t *testing.T) {
	agent := testutil.NewAgentBuilder("a").Project("gone").Build()
	got, err := NewAssembler(entity.NewEntityStore()).Assemble(context.Background(), Request{Agent: agent})
	require.NoError(t, err)
	assert.Nil(t, got.Project)
	assert.ErrorIs(t, got.ProjectErr, core.ErrNotFound)
}

func TestAssemble_FetchFailuresAreFatal(t *testing.T) {
	for _, op := range []string{testutil.OpListMemory, testutil.OpListKnowledge, testutil.OpListProjects} {
		t.Run(op, func(t *testing.T) {
			boom := errors.New("unreachable")
			store := testutil.NewFailingStore(entity.NewEntityStore()).Fail(op, boom)

			_, err := NewAssembler(store).Assemble(context.Background(), Request{Agent: testutil.NewAgentBuilder("a").Build()})
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrContextFetch)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestAssemble_HistoryScanLimit(t *testing.T) {
	store := testutil.NewFailingStore(entity.NewEntityStore())
	seedMemory(t, store, testutil.NewMemoryBuilder("s").Interleave(30, "a", "b"))

	got, err := NewAssembler(store, func(o *Options) {
		o.HistoryScan = 4
		o.HistoryWindow = 10
	}).Assemble(context.Background(), Request{Agent: testutil.NewAgentBuilder("a").Build()})
	require.NoError(t, err)
	assert.Len(t, got.History, 2)
}

func TestKnowledgeBlock_Budget(t *testing.T) {
	frags := []core.KnowledgeFragment{
		{Title: "new", Content: strings.Repeat("n", 40)},
		{Title: "mid", Content: strings.Repeat("m", 40)},
		{Title: "old", Content: strings.Repeat("o", 40)},
	}

	text, used, omitted := knowledgeBlock(frags, 130)
	assert.Equal(t, 2, used)
	assert.Equal(t, 1, omitted)
	assert.Contains(t, text, "Title: new")
	assert.Contains(t, text, "Title: mid")
	assert.NotContains(t, text, "Title: old")
	assert.Contains(t, text, "[1 older knowledge fragments omitted]")

	text, used, omitted = knowledgeBlock(frags, 0)
	assert.Equal(t, 3, used)
	assert.Zero(t, omitted)
	assert.NotContains(t, text, "omitted")
}

func TestKnowledgeBlock_BudgetCountsRunes(t *testing.T) {
	frag := core.KnowledgeFragment{Title: "Ä", Content: "äöüßé"}
	entry := "Title: Ä\nContent: äöüßé"

	text, used, omitted := knowledgeBlock([]core.KnowledgeFragment{frag}, len([]rune(entry)))
	assert.Equal(t, 1, used)
	assert.Zero(t, omitted)
	assert.Equal(t, entry, text)

	_, used, omitted = knowledgeBlock([]core.KnowledgeFragment{frag}, len([]rune(entry))-1)
	assert.Zero(t, used)
	assert.Equal(t, 1, omitted)
}

func TestWindow_NonPositiveSize(t *testing.T) {
	b := testutil.NewMemoryBuilder("s")
	entries := []core.MemoryEntry{b.Next("a"), b.Next("a")}

	assert.Empty(t, Window(entries, "a", 0))
	assert.Empty(t, Window(entries, "a", -3))
}

func TestNewAssembler_NonPositiveLimitsUseDefaults(t *testing.T) {
	store := entity.NewEntityStore()
	seedMemory(t, store, testutil.NewMemoryBuilder("s").Interleave(40, "a", "b"))

	got, err := NewAssembler(store, func(o *Options) {
		o.HistoryScan = 0
		o.HistoryWindow = -1
		o.KnowledgeBudget = -5
	}).Assemble(context.Background(), Request{Agent: testutil.NewAgentBuilder("a").Build()})
	require.NoError(t, err)
	assert.Len(t, got.History, DefaultHistoryWindow)
}
