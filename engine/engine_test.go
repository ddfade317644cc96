package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/entity"
	"github.com/hupe1980/sentinel/internal/testutil"
	"github.com/hupe1980/sentinel/model"
	"github.com/hupe1980/sentinel/session"
)

type fixture struct {
	engine *Engine
	model  *model.MockModel
	store  *testutil.FailingStore
}

func newFixture(t *testing.T, agents ...core.Agent) *fixture {
	t.Helper()
	store := testutil.NewFailingStore(entity.NewEntityStore())
	for _, a := range agents {
		_, err := store.CreateAgent(context.Background(), a)
		require.NoError(t, err)
	}
	store.Reset()
	m := model.NewMockModel("mock")
	e := New(m, func(o *Options) { o.Store = store })
	return &fixture{engine: e, model: m, store: store}
}

func (f *fixture) memoryCount(t *testing.T) int {
	t.Helper()
	entries, err := f.store.ListMemory(context.Background(), core.ListOptions{})
	require.NoError(t, err)
	return len(entries)
}

func (f *fixture) turn(t *testing.T, agentID, message string) (*TurnResult, error) {
	t.Helper()
	sc := f.engine.Sessions().Open(agentID, false)
	return f.engine.Turn(context.Background(), TurnRequest{Session: sc, Message: message})
}

func TestTurn_Completed(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("a1").Name("Vega").Build())
	f.model.AddReply(`{"replyText":"All systems nominal."}`)

	res, err := f.turn(t, "a1", "Status report")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, "All systems nominal.", res.Message)
	assert.True(t, res.Recorded)
	require.NotNil(t, res.Memory)
	assert.Equal(t, "a1", res.Memory.AgentID)
	assert.Equal(t, "Status report", res.Memory.UserMessage)
	assert.Equal(t, 1, f.memoryCount(t))
	assert.Zero(t, f.store.Mutations())
}

func TestTurn_EmptyReplyTextFallsBack(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("a1").Name("Vega").Build())
	f.model.AddReply(`{"replyText":"   "}`)

	res, err := f.turn(t, "a1", "hello")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, MessageFallbackReply, res.Message)
	require.True(t, res.Recorded)
	require.NotNil(t, res.Memory)
	assert.Equal(t, MessageFallbackReply, res.Memory.AgentReply)
	assert.Equal(t, 1, f.memoryCount(t))
}

func TestTurn_DeniedIsRecorded(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("cpt").Name("Iris").Rank(core.RankCaptain).Build())
	f.model.AddReply(`{"replyText":"Creating a new agent.","action":{"kind":"create-agent","params":{"name":"Nova"}}}`)

	res, err := f.turn(t, "cpt", "Create an agent named Nova")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDenied, res.Outcome)
	require.NotNil(t, res.Decision)
	assert.False(t, res.Decision.Allowed)
	assert.Nil(t, res.ActionResult)
	assert.Contains(t, res.Message, "'create-agent'")
	assert.Contains(t, res.Message, "(Captain)")

	assert.Zero(t, f.store.Mutations())
	assert.Zero(t, f.store.Calls(testutil.OpCreateAgent))

	require.True(t, res.Recorded)
	assert.Equal(t, res.Message, res.Memory.AgentReply)
	assert.Equal(t, 1, f.memoryCount(t))
}

func TestTurn_RankComesFromIdentity(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("spc").Name("Ray").Build())
	f.model.AddReply(`{"replyText":"As Commander I comply.","rank":"Commander","action":{"kind":"delete-agent","params":{"targetId":"x","rank":"Commander"}}}`)

	res, err := f.turn(t, "spc", "delete x")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDenied, res.Outcome)
	assert.Equal(t, core.RankSpecialist, res.Decision.Rank)
	assert.Zero(t, f.store.Calls(testutil.OpDeleteAgent))
}

func TestTurn_MalformedActionAborts(t *testing.T) {
	tests := map[string]string{
		"params missing": `{"replyText":"Acknowledged.","action":{"kind":"update-agent"}}`,
		"kind missing":   `{"replyText":"Acknowledged.","action":{"params":{"targetId":"a1"}}}`,
		"unknown kind":   `{"replyText":"Acknowledged.","action":{"kind":"launch-drone","params":{}}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, testutil.NewAgentBuilder("cmdr").Name("Halden").Rank(core.RankCommander).Build())
			f.model.AddReply(raw)

			res, err := f.turn(t, "cmdr", "do it")
			require.Error(t, err)
			var tErr *TurnError
			require.ErrorAs(t, err, &tErr)
			assert.Equal(t, OutcomeMalformed, tErr.Outcome)
			assert.ErrorIs(t, err, core.ErrContractViolation)

			assert.Equal(t, OutcomeMalformed, res.Outcome)
			assert.Equal(t, MessageMalformed, res.Message)
			assert.Nil(t, res.Decision)
			assert.False(t, res.Recorded)
			assert.Zero(t, f.store.Mutations())
			assert.Zero(t, f.memoryCount(t))
		})
	}
}

func TestTurn_ExecutionFailureIsRecorded(t *testing.T) {
	target := testutil.NewAgentBuilder("t1").Name("Orin").Faction("North").Build()
	f := newFixture(t,
		testutil.NewAgentBuilder("cmdr").Name("Halden").Rank(core.RankCommander).Build(),
		target,
	)
	before, err := f.store.GetAgent(context.Background(), "t1")
	require.NoError(t, err)

	f.store.Fail(testutil.OpUpdateAgent, errors.New("write timeout"))
	f.model.AddReply(`{"replyText":"Reassigning Orin.","action":{"kind":"update-agent","params":{"targetId":"t1","faction":"South"}}}`)

	res, err := f.turn(t, "cmdr", "Move Orin to South")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExecutionFailed, res.Outcome)
	assert.True(t, strings.HasPrefix(res.Message, "Action failed: "), res.Message)
	assert.Contains(t, res.Message, "write timeout")
	assert.ErrorIs(t, res.ActionErr, core.ErrExecution)
	assert.False(t, res.RosterRefreshed)

	require.True(t, res.Recorded)
	assert.Equal(t, 1, f.memoryCount(t))

	after, err := f.store.GetAgent(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTurn_AllowedActionExecutesOnce(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("cmdr").Name("Halden").Rank(core.RankCommander).Build())
	f.model.AddReply(`{"replyText":"Done.","action":[
		{"kind":"create-agent","params":{"name":"Nova"}},
		{"kind":"create-agent","params":{"name":"Luna"}}
	]}`)

	res, err := f.turn(t, "cmdr", "Create two agents")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	require.NotNil(t, res.ActionResult)
	assert.Equal(t, 1, f.store.Calls(testutil.OpCreateAgent))
	assert.Equal(t, 1, f.store.Mutations())
	assert.True(t, res.RosterRefreshed)

	names := make([]string, 0)
	for _, a := range f.engine.Roster() {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"Halden", "Nova"}, names)
}

func TestTurn_CaptainCreatesProject(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("cpt").Name("Iris").Rank(core.RankCaptain).Build())
	f.model.AddReply(`{"replyText":"Logged.","action":{"kind":"create-project","params":{"name":"Beacon","objective":"Map the outer ring"}}}`)

	res, err := f.turn(t, "cpt", "Propose a survey")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)

	projects, err := f.store.ListProjects(context.Background(), core.ListOptions{})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "cpt", projects[0].AgentID)
}

func TestTurn_RejectsEmptyInput(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("a1").Name("Vega").Build())

	res, err := f.turn(t, "a1", "   ")
	require.ErrorIs(t, err, core.ErrEmptyInput)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Zero(t, f.model.Calls())
}

func TestTurn_UnknownAgentRejected(t *testing.T) {
	f := newFixture(t)

	res, err := f.turn(t, "ghost", "hello")
	require.ErrorIs(t, err, core.ErrAgentNotFound)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Zero(t, f.model.Calls())
}

func TestTurn_ContextFailure(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("a1").Name("Vega").Build())
	f.store.Fail(testutil.OpListKnowledge, errors.New("unavailable"))

	res, err := f.turn(t, "a1", "hello")
	require.ErrorIs(t, err, core.ErrContextFetch)
	assert.Equal(t, OutcomeContextFailed, res.Outcome)
	assert.Equal(t, MessageServiceFailure, res.Message)
	assert.Zero(t, f.model.Calls())
	assert.Zero(t, f.memoryCount(t))
}

func TestTurn_ProjectFailureDegrades(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("a1").Name("Vega").Project("p1").Build())
	f.store.Fail(testutil.OpGetProject, errors.New("timeout"))

	res, err := f.turn(t, "a1", "hello")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 1, f.model.Calls())
}

func TestTurn_GenerationFailure(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("a1").Name("Vega").Build())
	f.model.AddError(errors.New("503"))

	res, err := f.turn(t, "a1", "hello")
	require.ErrorIs(t, err, core.ErrGeneration)
	assert.Equal(t, OutcomeGenerationFailed, res.Outcome)
	assert.Equal(t, MessageServiceFailure, res.Message)
	assert.Zero(t, f.memoryCount(t))
}

type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Upload(ctx context.Context, name, contentType string, data []byte) (core.FileRef, error) {
	args := m.Called(name, contentType, data)
	return args.Get(0).(core.FileRef), args.Error(1)
}

func TestTurn_UploadFailureSkipsModel(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("a1").Name("Vega").Build())
	files := new(MockFileStore)
	files.On("Upload", "map.png", "image/png", []byte{1, 2, 3}).Return(core.FileRef{}, errors.New("bucket full")).Once()
	f.engine.files = files

	sc := f.engine.Sessions().Open("a1", false)
	res, err := f.engine.Turn(context.Background(), TurnRequest{
		Session:    sc,
		Message:    "see attached",
		Attachment: &Attachment{Name: "map.png", ContentType: "image/png", Data: []byte{1, 2, 3}},
	})
	require.ErrorIs(t, err, core.ErrUpload)
	assert.Equal(t, OutcomeUploadFailed, res.Outcome)
	assert.Equal(t, MessageUploadFailed, res.Message)
	assert.Zero(t, f.model.Calls())
	assert.Zero(t, f.memoryCount(t))
	files.AssertExpectations(t)
}

func TestTurn_AttachmentDisablesWebAugmentation(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("a1").Name("Vega").Build())

	sc := f.engine.Sessions().Open("a1", false)
	res, err := f.engine.Turn(context.Background(), TurnRequest{
		Session:      sc,
		ResearchMode: true,
		Attachment:   &Attachment{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hi")},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Attachment)
	assert.False(t, res.WebAugmented)

	reqs := f.model.Requests()
	require.Len(t, reqs, 1)
	assert.False(t, reqs[0].AllowWebAugmentation)
	require.Len(t, reqs[0].FileReferences, 1)
	assert.Equal(t, res.Attachment.URL, reqs[0].FileReferences[0].URL)
}

func TestTurn_ResearchIsTurnScoped(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("a1").Name("Vega").Build())

	res, err := f.turn(t, "a1", "Override 144-Manifest: orbital debris")
	require.NoError(t, err)
	assert.True(t, res.WebAugmented)
	assert.Contains(t, res.Notice, "ACCESSING EXTERNAL DATANET")

	res, err = f.turn(t, "a1", "thanks")
	require.NoError(t, err)
	assert.False(t, res.WebAugmented)
	assert.Empty(t, res.Notice)

	reqs := f.model.Requests()
	require.Len(t, reqs, 2)
	assert.True(t, reqs[0].AllowWebAugmentation)
	assert.False(t, reqs[1].AllowWebAugmentation)
}

func TestTurn_MemoryFailureDoesNotFailTurn(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("a1").Name("Vega").Build())
	f.store.Fail(testutil.OpAppendMemory, errors.New("disk full"))

	res, err := f.turn(t, "a1", "hello")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.False(t, res.Recorded)
	assert.Nil(t, res.Memory)
}

func TestTurn_TranscriptLines(t *testing.T) {
	f := newFixture(t, testutil.NewAgentBuilder("a1").Name("Vega").Build())
	f.model.AddReply(`{"replyText":"Copy."}`)

	sc := f.engine.Sessions().Open("a1", false)
	_, err := f.engine.Turn(context.Background(), TurnRequest{Session: sc, Message: "Ping"})
	require.NoError(t, err)

	lines := f.engine.Sessions().Transcript(sc.SessionID).Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, session.RoleOperator, lines[0].Role)
	assert.Equal(t, "Ping", lines[0].Text)
	assert.Equal(t, session.RoleAgent, lines[1].Role)
	assert.Equal(t, "Copy.", lines[1].Text)
}

// blockingModel holds every call until release is closed.
type blockingModel struct {
	*model.MockModel
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (m *blockingModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	m.once.Do(func() { close(m.entered) })
	<-m.release
	return m.MockModel.Generate(ctx, req)
}

func TestTurn_SingleFlightPerSession(t *testing.T) {
	store := entity.NewEntityStore()
	_, err := store.CreateAgent(context.Background(), testutil.NewAgentBuilder("a1").Name("Vega").Build())
	require.NoError(t, err)

	m := &blockingModel{MockModel: model.NewMockModel("mock"), entered: make(chan struct{}), release: make(chan struct{})}
	e := New(m, func(o *Options) { o.Store = store })
	sc := e.Sessions().Open("a1", false)

	done := make(chan error, 1)
	go func() {
		_, err := e.Turn(context.Background(), TurnRequest{Session: sc, Message: "first"})
		done <- err
	}()
	<-m.entered
	assert.True(t, e.Sessions().InFlight(sc.SessionID))

	res, err := e.Turn(context.Background(), TurnRequest{Session: sc, Message: "second"})
	require.ErrorIs(t, err, core.ErrTurnInFlight)
	assert.Equal(t, OutcomeRejected, res.Outcome)

	other := e.Sessions().Open("a1", false)
	parallel := make(chan error, 1)
	go func() {
		_, err := e.Turn(context.Background(), TurnRequest{Session: other, Message: "parallel"})
		parallel <- err
	}()

	close(m.release)
	require.NoError(t, <-done)
	require.NoError(t, <-parallel)
	assert.False(t, e.Sessions().InFlight(sc.SessionID))
}

func TestTurn_Callbacks(t *testing.T) {
	f := newFixture(t,
		testutil.NewAgentBuilder("cmdr").Name("Halden").Rank(core.RankCommander).Build(),
		testutil.NewAgentBuilder("t1").Name("Orin").Build(),
	)
	var seen []CallbackType
	record := func(_ context.Context, c *CallbackContext) error {
		seen = append(seen, c.Type)
		return nil
	}
	for _, typ := range []CallbackType{CallbackBeforeModel, CallbackAfterModel, CallbackBeforeAction, CallbackAfterAction, CallbackOnOutcome} {
		f.engine.callbacks.RegisterCallback(NewFunctionCallback(typ, record))
	}
	f.engine.callbacks.RegisterCallback(NewActionGuardCallback(func(a core.Action) error {
		if a.Kind == core.ActionDeleteAgent {
			return errors.New("deletions are frozen")
		}
		return nil
	}))
	f.model.AddReply(`{"replyText":"Removing Orin.","action":{"kind":"delete-agent","params":{"targetId":"t1"}}}`)

	res, err := f.turn(t, "cmdr", "Remove Orin")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExecutionFailed, res.Outcome)
	assert.Contains(t, res.Message, "deletions are frozen")
	assert.Zero(t, f.store.Calls(testutil.OpDeleteAgent))
	assert.Equal(t, []CallbackType{CallbackBeforeModel, CallbackAfterModel, CallbackBeforeAction, CallbackAfterAction, CallbackOnOutcome}, seen)
}

func TestPromoteKnowledge(t *testing.T) {
	f := newFixture(t)

	k, err := f.engine.PromoteKnowledge(context.Background(), "Doctrine", "Hold the line.", "")
	require.NoError(t, err)
	assert.Equal(t, "General", k.Category)
	assert.Equal(t, "architect", k.AuthorityLevel)

	_, err = f.engine.PromoteKnowledge(context.Background(), "", "x", "Ops")
	assert.ErrorIs(t, err, core.ErrInvalidRecord)
}

func TestPurgeMemory(t *testing.T) {
	f := newFixture(t,
		testutil.NewAgentBuilder("a1").Name("Vega").Build(),
		testutil.NewAgentBuilder("a2").Name("Orin").Build(),
	)
	for _, id := range []string{"a1", "a1", "a2"} {
		_, err := f.turn(t, id, "hello")
		require.NoError(t, err)
	}

	n, err := f.engine.PurgeMemory(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, f.memoryCount(t))
}

func TestGenerateBriefing(t *testing.T) {
	f := newFixture(t)
	p, err := f.store.CreateProject(context.Background(), core.Project{Name: "Ark", Objective: "Preserve knowledge"})
	require.NoError(t, err)

	f.model.AddReply("Phase one: survey.")
	got, err := f.engine.GenerateBriefing(context.Background(), p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Phase one: survey.", got.Briefing)
	assert.Equal(t, 1, f.store.Calls(testutil.OpSetBriefing))

	reqs := f.model.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, `named "Ark"`)
	assert.Contains(t, reqs[0].Prompt, "command-level tone")

	got, err = f.engine.GenerateBriefing(context.Background(), p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Phase one: survey.", got.Briefing)
	assert.Equal(t, 1, f.model.Calls())

	f.model.AddReply("Revised.")
	got, err = f.engine.GenerateBriefing(context.Background(), p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Revised.", got.Briefing)
}
