package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/sentinel/action"
	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/logging"
	"github.com/hupe1980/sentinel/policy"
	"github.com/hupe1980/sentinel/prompt"
	"github.com/hupe1980/sentinel/reply"
	"github.com/hupe1980/sentinel/session"
)

// Attachment is a file sent along with a turn.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// TurnRequest is the operator input for one turn.
type TurnRequest struct {
	Session core.SessionContext
	Message string
	// ResearchMode enables web augmentation for this turn only.
	ResearchMode bool
	Attachment   *Attachment
}

// Turn runs one dialogue turn. The returned result is never nil.
func (e *Engine) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "engine.turn", trace.WithAttributes(
		attribute.String("session.id", req.Session.SessionID),
		attribute.String("agent.id", req.Session.AgentID),
	))
	defer span.End()

	res, err := e.turn(ctx, req)

	span.SetAttributes(
		attribute.String("turn.outcome", string(res.Outcome)),
		attribute.Bool("turn.recorded", res.Recorded),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(res.Outcome))
	}

	if cbErr := e.callbacks.ExecuteCallbacks(ctx, CallbackOnOutcome, &CallbackContext{
		Session: req.Session,
		Action:  res.Action,
		Result:  res,
	}); cbErr != nil {
		e.logger.Warn("outcome callback failed", "error", cbErr)
	}

	if sl, ok := e.logger.(*logging.SentinelLogger); ok {
		sl.WithSession(req.Session.SessionID, req.Session.AgentID).
			LogTurn(string(res.Outcome), time.Since(start), res.Recorded)
	}
	return res, err
}

func (e *Engine) turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if strings.TrimSpace(req.Message) == "" && req.Attachment == nil {
		return abort(OutcomeRejected, MessageEmptyInput, core.ErrEmptyInput)
	}

	release, err := e.sessions.Begin(req.Session)
	if err != nil {
		return abort(OutcomeRejected, MessageInFlight, err)
	}
	defer release()

	agent, err := e.identity.Resolve(ctx, req.Session.AgentID)
	if err != nil {
		if errors.Is(err, core.ErrAgentNotFound) {
			return abort(OutcomeRejected, MessageUnknownAgent, err)
		}
		return abort(OutcomeContextFailed, MessageServiceFailure, fmt.Errorf("%w: identity: %w", core.ErrContextFetch, err))
	}

	res := &TurnResult{}
	transcript := e.sessions.Transcript(req.Session.SessionID)

	if req.Attachment != nil {
		ref, err := e.upload(ctx, req.Attachment)
		if err != nil {
			return abort(OutcomeUploadFailed, MessageUploadFailed, err)
		}
		res.Attachment = &ref
	}

	research := req.ResearchMode || e.researchTriggered(req.Message)
	if research {
		res.Notice = researchNotice(req.Message)
	}
	res.WebAugmented = reply.AllowWebAugmentation(research, res.Attachment != nil)

	pctx, err := e.assembler.Assemble(ctx, prompt.Request{
		Agent:        agent,
		SessionID:    req.Session.SessionID,
		Message:      req.Message,
		ResearchMode: research,
		Attachment:   res.Attachment,
	})
	if err != nil {
		return abortWith(res, OutcomeContextFailed, MessageServiceFailure, err)
	}
	if pctx.ProjectErr != nil {
		e.logger.Warn("continuing without linked project", "agent_id", agent.ID, "error", pctx.ProjectErr)
	}

	cbCtx := &CallbackContext{Session: req.Session, Agent: agent, Prompt: pctx.Text}
	if err := e.callbacks.ExecuteCallbacks(ctx, CallbackBeforeModel, cbCtx); err != nil {
		return abortWith(res, OutcomeGenerationFailed, MessageServiceFailure, fmt.Errorf("%w: %w", core.ErrGeneration, err))
	}

	r, err := e.replies.Generate(ctx, reply.Request{
		Prompt:       pctx.Text,
		ResearchMode: research,
		Attachment:   res.Attachment,
	})
	if err != nil {
		if errors.Is(err, core.ErrContractViolation) {
			res.Action = r.Action
			return abortWith(res, OutcomeMalformed, MessageMalformed, err)
		}
		return abortWith(res, OutcomeGenerationFailed, MessageServiceFailure, err)
	}

	res.Outcome = OutcomeCompleted
	res.ReplyText = r.Text
	res.Message = r.Text
	if strings.TrimSpace(res.Message) == "" {
		res.Message = MessageFallbackReply
	}
	res.Action = r.Action

	cbCtx.Action = r.Action
	if err := e.callbacks.ExecuteCallbacks(ctx, CallbackAfterModel, cbCtx); err != nil {
		e.logger.Warn("after-model callback failed", "error", err)
	}

	if r.Action.IsKnown() {
		e.authorizeAndExecute(ctx, agent, res, cbCtx)
	}

	e.record(ctx, req, res)

	transcript.Add(session.RoleOperator, req.Message, res.Attachment)
	if res.Notice != "" {
		transcript.Add(session.RoleSystem, res.Notice, nil)
	}
	transcript.Add(session.RoleAgent, res.Message, nil)

	return res, nil
}

// authorizeAndExecute gates the single Known action of a reply. The rank
// always comes from the resolved agent.
func (e *Engine) authorizeAndExecute(ctx context.Context, agent core.Agent, res *TurnResult, cbCtx *CallbackContext) {
	decision := e.authorize(ctx, agent.Rank, res.Action.Kind)
	res.Decision = &decision
	cbCtx.Decision = &decision

	if !decision.Allowed {
		e.logger.Warn("action denied", "agent_id", agent.ID, "rank", agent.Rank, "kind", decision.Kind)
		res.Outcome = OutcomeDenied
		res.Message = deniedMessage(decision)
		return
	}

	var (
		result action.Result
		err    error
	)
	if err = e.callbacks.ExecuteCallbacks(ctx, CallbackBeforeAction, cbCtx); err != nil {
		err = action.NewError(res.Action.Kind, err.Error(), action.CodeForbidden)
	} else {
		ctx, span := tracer.Start(ctx, "action.execute", trace.WithAttributes(
			attribute.String("action.kind", string(res.Action.Kind)),
		))
		result, err = e.executor.Execute(ctx, agent, res.Action)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "action failed")
		}
		span.End()
	}

	cbCtx.ActionErr = err
	if cbErr := e.callbacks.ExecuteCallbacks(ctx, CallbackAfterAction, cbCtx); cbErr != nil {
		e.logger.Warn("after-action callback failed", "error", cbErr)
	}

	if err != nil {
		res.Outcome = OutcomeExecutionFailed
		res.ActionErr = err
		res.Message = executionFailedMessage(err)
		return
	}

	res.ActionResult = &result
	if result.Mutated {
		if _, err := e.RefreshRoster(ctx); err != nil {
			e.logger.Warn("roster refresh failed", "error", err)
		} else {
			res.RosterRefreshed = true
		}
	}
}

func (e *Engine) authorize(ctx context.Context, rank core.Rank, kind core.ActionKind) policy.Decision {
	_, span := tracer.Start(ctx, "policy.authorize")
	defer span.End()

	d := e.authz.Authorize(rank, kind)
	span.SetAttributes(
		attribute.String("policy.rank", rank.String()),
		attribute.String("policy.kind", string(kind)),
		attribute.Bool("policy.allowed", d.Allowed),
	)
	return d
}

// record appends the turn's memory entry. A failure is logged and leaves
// Recorded false; it never changes the outcome.
func (e *Engine) record(ctx context.Context, req TurnRequest, res *TurnResult) {
	if !res.Outcome.Records() {
		return
	}
	entry, err := e.recorder.Record(ctx, req.Session, req.Message, res.Message)
	if err != nil {
		e.logger.Error("memory record failed", "session_id", req.Session.SessionID, "error", err)
		return
	}
	res.Recorded = true
	res.Memory = &entry
}

func (e *Engine) upload(ctx context.Context, a *Attachment) (core.FileRef, error) {
	ref, err := e.files.Upload(ctx, a.Name, a.ContentType, a.Data)
	if err != nil {
		if !errors.Is(err, core.ErrUpload) {
			err = fmt.Errorf("%w: %w", core.ErrUpload, err)
		}
		return core.FileRef{}, err
	}
	return ref, nil
}

func (e *Engine) researchTriggered(message string) bool {
	trigger := e.opts.Config.ResearchTrigger
	return trigger != "" && strings.Contains(message, trigger)
}

func abort(outcome Outcome, message string, err error) (*TurnResult, error) {
	return abortWith(&TurnResult{}, outcome, message, err)
}

func abortWith(res *TurnResult, outcome Outcome, message string, err error) (*TurnResult, error) {
	res.Outcome = outcome
	res.Message = message
	return res, &TurnError{Outcome: outcome, Err: err}
}
