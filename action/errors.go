package action

import (
	"fmt"

	"github.com/hupe1980/sentinel/core"
)

// Error codes reported by handlers.
const (
	CodeInvalidParams = "invalid_params"
	CodeForbidden     = "forbidden"
	CodeStore         = "store_failure"
	CodeUnsupported   = "unsupported"
)

// Error represents a failed action execution.
type Error struct {
	Kind    core.ActionKind `json:"kind"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Err     error           `json:"-"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("action error [%s] in %s: %s", e.Code, e.Kind, e.Message)
	}
	return fmt.Sprintf("action error in %s: %s", e.Kind, e.Message)
}

// Unwrap exposes both core.ErrExecution and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{core.ErrExecution}
	}
	return []error{core.ErrExecution, e.Err}
}

// NewError creates a new Error.
func NewError(kind core.ActionKind, message, code string) *Error {
	return &Error{Kind: kind, Message: message, Code: code}
}

func storeError(kind core.ActionKind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Code: CodeStore, Err: err}
}
