package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/policy"
)

// CallbackType identifies a point in the turn pipeline where callbacks run.
//
// Callbacks run synchronously. An error returned from a Before* callback
// aborts the turn; errors from the remaining types are logged and ignored.
type CallbackType string

const (
	// CallbackBeforeModel runs after the prompt is assembled and before the
	// reply contract call. Returning an error aborts the turn as a
	// generation failure.
	CallbackBeforeModel CallbackType = "before_model"

	// CallbackAfterModel runs after a reply was received and validated.
	CallbackAfterModel CallbackType = "after_model"

	// CallbackBeforeAction runs after an allow decision and before execution.
	// Returning an error turns the action into an execution failure.
	CallbackBeforeAction CallbackType = "before_action"

	// CallbackAfterAction runs after an action executed, successfully or not.
	CallbackAfterAction CallbackType = "after_action"

	// CallbackOnOutcome runs once per turn with the final result.
	CallbackOnOutcome CallbackType = "on_outcome"
)

func (t CallbackType) aborts() bool {
	return t == CallbackBeforeModel || t == CallbackBeforeAction
}

// CallbackContext carries what a callback may inspect. Fields that do not
// apply to the current phase are zero.
type CallbackContext struct {
	Session core.SessionContext
	Agent   core.Agent
	Type    CallbackType

	Prompt   string
	Action   core.Action
	Decision *policy.Decision
	// ActionErr is set for CallbackAfterAction when execution failed.
	ActionErr error
	Result    *TurnResult
}

// Callback is a turn lifecycle hook.
type Callback interface {
	Type() CallbackType
	Execute(ctx context.Context, cbCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a Callback.
//
// Example:
//
//	audit := engine.NewFunctionCallback(engine.CallbackAfterAction,
//	    func(ctx context.Context, c *engine.CallbackContext) error {
//	        log.Printf("%s executed %s", c.Agent.Name, c.Action.Kind)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, cbCtx *CallbackContext) error
}

// NewFunctionCallback creates a function-based callback.
func NewFunctionCallback(callbackType CallbackType, fn func(ctx context.Context, cbCtx *CallbackContext) error) *FunctionCallback {
	return &FunctionCallback{callbackType: callbackType, fn: fn}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute calls the wrapped function.
func (c *FunctionCallback) Execute(ctx context.Context, cbCtx *CallbackContext) error {
	return c.fn(ctx, cbCtx)
}

// CallbackManager runs callbacks in registration order. Registration is not
// safe for concurrent use; execution is.
type CallbackManager struct {
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{callbacks: make(map[CallbackType][]Callback)}
}

// RegisterCallback adds a callback for its type.
func (cm *CallbackManager) RegisterCallback(cb Callback) {
	cm.callbacks[cb.Type()] = append(cm.callbacks[cb.Type()], cb)
}

// ExecuteCallbacks runs every callback of cbType and stops at the first error.
func (cm *CallbackManager) ExecuteCallbacks(ctx context.Context, cbType CallbackType, cbCtx *CallbackContext) error {
	if cm == nil {
		return nil
	}
	cbCtx.Type = cbType
	for _, cb := range cm.callbacks[cbType] {
		if err := cb.Execute(ctx, cbCtx); err != nil {
			return fmt.Errorf("%s callback: %w", cbType, err)
		}
	}
	return nil
}

// LoggingCallback forwards a one-line summary of each event to a log function.
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a logging callback for callbackType.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{callbackType: callbackType, logger: logger}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType { return c.callbackType }

// Execute logs the event.
func (c *LoggingCallback) Execute(_ context.Context, cbCtx *CallbackContext) error {
	if c.logger == nil {
		return nil
	}
	msg := fmt.Sprintf("[%s] agent=%s session=%s", c.callbackType, cbCtx.Agent.ID, cbCtx.Session.SessionID)
	if cbCtx.Action.IsKnown() {
		msg += fmt.Sprintf(" action=%s", cbCtx.Action.Kind)
	}
	if cbCtx.Result != nil {
		msg += fmt.Sprintf(" outcome=%s", cbCtx.Result.Outcome)
	}
	c.logger(msg)
	return nil
}

// ActionGuardCallback vetoes authorized actions with an extra business rule
// on top of the rank table, such as a maintenance freeze.
//
// Example:
//
//	freeze := engine.NewActionGuardCallback(func(a core.Action) error {
//	    if a.Kind == core.ActionDeleteAgent {
//	        return errors.New("deletions are frozen")
//	    }
//	    return nil
//	})
type ActionGuardCallback struct {
	guard func(a core.Action) error
}

// NewActionGuardCallback creates a guard callback.
func NewActionGuardCallback(guard func(a core.Action) error) *ActionGuardCallback {
	return &ActionGuardCallback{guard: guard}
}

// Type always returns CallbackBeforeAction.
func (c *ActionGuardCallback) Type() CallbackType { return CallbackBeforeAction }

// Execute applies the guard to the pending action.
func (c *ActionGuardCallback) Execute(_ context.Context, cbCtx *CallbackContext) error {
	if c.guard == nil || !cbCtx.Action.IsKnown() {
		return nil
	}
	return c.guard(cbCtx.Action)
}
