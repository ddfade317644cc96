// Package sentinel provides a high-level façade over the dialogue engine and
// its collaborators (entity store, file store, rank policy, sessions and
// logging). Most applications interact with this package by:
//  1. Creating a Sentinel via New() with a model.Model, optionally overriding
//     the default in-memory stores
//  2. Opening a session bound to an agent (OpenSession)
//  3. Sending operator messages (Send) and rendering TurnResult.Message
//
// Defaults are safe for local development and testing; durable deployments
// supply the sqlite store and a structured logger.
package sentinel

import (
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/sentinel/artifact"
	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/engine"
	"github.com/hupe1980/sentinel/entity"
	"github.com/hupe1980/sentinel/logging"
	"github.com/hupe1980/sentinel/model"
	"github.com/hupe1980/sentinel/policy"
)

// Options configures a Sentinel instance.
type Options struct {
	EngineConfig engine.Config

	// Stores default to in-memory implementations.
	Store core.EntityStore
	Files core.FileStore

	// Authorizer defaults to policy.DefaultTable.
	Authorizer policy.Authorizer

	// Callbacks hook into the turn pipeline.
	Callbacks *engine.CallbackManager

	// Logger defaults to a NoOp logger.
	Logger logging.Logger
}

// Sentinel aggregates the engine and the services it runs on.
type Sentinel struct {
	opts   Options
	engine *engine.Engine
}

// New creates a Sentinel answering through m.
func New(m model.Model, optFns ...func(o *Options)) *Sentinel {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Store:        entity.NewEntityStore(),
		Files:        artifact.NewInMemoryStore(),
		Authorizer:   policy.DefaultTable(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(m, func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Store = opts.Store
		o.Files = opts.Files
		o.Authorizer = opts.Authorizer
		o.Callbacks = opts.Callbacks
		o.Logger = opts.Logger
	})
	return &Sentinel{opts: opts, engine: e}
}

// Engine exposes the underlying engine.
func (s *Sentinel) Engine() *engine.Engine { return s.engine }

// Store exposes the entity store.
func (s *Sentinel) Store() core.EntityStore { return s.opts.Store }

// OpenSession verifies the agent exists and opens a session bound to it.
func (s *Sentinel) OpenSession(ctx context.Context, agentID string, voiceEnabled bool) (core.SessionContext, error) {
	if _, err := s.opts.Store.GetAgent(ctx, agentID); err != nil {
		return core.SessionContext{}, fmt.Errorf("open session: %w", err)
	}
	return s.engine.Sessions().Open(agentID, voiceEnabled), nil
}

// Send runs one turn in the session.
func (s *Sentinel) Send(ctx context.Context, sc core.SessionContext, message string, optFns ...func(r *engine.TurnRequest)) (*engine.TurnResult, error) {
	req := engine.TurnRequest{Session: sc, Message: message}
	for _, fn := range optFns {
		fn(&req)
	}
	return s.engine.Turn(ctx, req)
}

// WithResearch enables research mode for one Send.
func WithResearch() func(r *engine.TurnRequest) {
	return func(r *engine.TurnRequest) { r.ResearchMode = true }
}

// WithAttachment attaches a file to one Send.
func WithAttachment(name, contentType string, data []byte) func(r *engine.TurnRequest) {
	return func(r *engine.TurnRequest) {
		r.Attachment = &engine.Attachment{Name: name, ContentType: contentType, Data: data}
	}
}

// ExportTranscript writes the session transcript as plain text.
func (s *Sentinel) ExportTranscript(ctx context.Context, w io.Writer, sc core.SessionContext) error {
	a, err := s.opts.Store.GetAgent(ctx, sc.AgentID)
	if err != nil {
		return fmt.Errorf("export transcript: %w", err)
	}
	return s.engine.Sessions().Transcript(sc.SessionID).Export(w, a.Name)
}

// Close releases the store when it holds resources.
func (s *Sentinel) Close() error {
	if c, ok := s.opts.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
