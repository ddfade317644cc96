package action

import (
	"context"
	"time"

	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/logging"
)

// Options configures an Executor.
type Options struct {
	Logger logging.Logger
	// Handlers replace the defaults for their kinds.
	Handlers []Handler
}

// Executor dispatches known actions to their handlers. It assumes the action
// was already authorized.
type Executor struct {
	handlers map[core.ActionKind]Handler
	logger   logging.Logger
}

// NewExecutor creates an Executor with the default handler set.
func NewExecutor(store Store, optFns ...func(o *Options)) *Executor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	e := &Executor{handlers: make(map[core.ActionKind]Handler), logger: opts.Logger}
	for _, h := range defaultHandlers(store, opts.Logger) {
		e.handlers[h.Kind()] = h
	}
	for _, h := range opts.Handlers {
		e.handlers[h.Kind()] = h
	}
	return e
}

// Handler returns the handler for kind.
func (e *Executor) Handler(kind core.ActionKind) (Handler, bool) {
	h, ok := e.handlers[kind]
	return h, ok
}

// Execute runs a Known action on behalf of actor.
func (e *Executor) Execute(ctx context.Context, actor core.Agent, a core.Action) (Result, error) {
	if !a.IsKnown() {
		return Result{}, NewError(a.Kind, "action is not well-formed", CodeInvalidParams)
	}
	h, ok := e.handlers[a.Kind]
	if !ok {
		return Result{}, NewError(a.Kind, "no handler registered", CodeUnsupported)
	}

	start := time.Now()
	res, err := h.Execute(ctx, actor, a.Params)
	if sl, ok := e.logger.(*logging.SentinelLogger); ok {
		sl.LogAction(string(a.Kind), time.Since(start), err)
	} else if err != nil {
		e.logger.Warn("action failed", "kind", a.Kind, "error", err)
	}
	return res, err
}
