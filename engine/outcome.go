package engine

import (
	"errors"
	"fmt"

	"github.com/hupe1980/sentinel/action"
	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/policy"
)

// Outcome classifies how a turn ended.
type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeDenied           Outcome = "denied"
	OutcomeExecutionFailed  Outcome = "execution_failed"
	OutcomeMalformed        Outcome = "malformed"
	OutcomeContextFailed    Outcome = "context_failed"
	OutcomeUploadFailed     Outcome = "upload_failed"
	OutcomeGenerationFailed Outcome = "generation_failed"
	OutcomeRejected         Outcome = "rejected"
)

// Records reports whether turns with this outcome append a memory entry.
func (o Outcome) Records() bool {
	switch o {
	case OutcomeCompleted, OutcomeDenied, OutcomeExecutionFailed:
		return true
	default:
		return false
	}
}

// Operator-facing messages.
const (
	MessageFallbackReply  = "I apologize, but I'm currently unable to process that request. Please try again."
	MessageServiceFailure = "I apologize, but there was an error processing your request. Please try again."
	MessageMalformed      = "Architect: I received a corrupted action directive and was unable to execute. Please rephrase your command."
	MessageUploadFailed   = "File upload failed. Please try again."
	MessageInFlight       = "A response is already in progress for this session."
	MessageEmptyInput     = "Enter a message or attach a file."
	MessageUnknownAgent   = "The selected agent could not be found."
)

func deniedMessage(d policy.Decision) string {
	return fmt.Sprintf("Architect: My protocols prevent me from performing the action '%s' with my current rank (%s). Please refer to the operational guidelines.",
		d.Kind, d.Rank)
}

func executionFailedMessage(err error) string {
	msg := err.Error()
	var aErr *action.Error
	if errors.As(err, &aErr) {
		msg = aErr.Message
	}
	return "Action failed: " + msg
}

func researchNotice(message string) string {
	return fmt.Sprintf("[ACCESSING EXTERNAL DATANET... Compiling research on: %q]", message)
}

// TurnResult is what the operator sees plus what happened underneath.
type TurnResult struct {
	Outcome Outcome
	// Message is the text shown to the operator.
	Message string
	// ReplyText is the model's replyText, if a valid reply was received.
	ReplyText string
	// Notice is an optional status line shown before the reply.
	Notice string

	Action       core.Action
	Decision     *policy.Decision
	ActionResult *action.Result
	// ActionErr holds the execution failure of an execution-failed turn.
	ActionErr error

	Attachment   *core.FileRef
	WebAugmented bool

	Recorded bool
	Memory   *core.MemoryEntry
	// RosterRefreshed is set when a mutating action succeeded and the
	// roster was reloaded.
	RosterRefreshed bool
}

// TurnError is returned for turns that abort before completion.
type TurnError struct {
	Outcome Outcome
	Err     error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn %s: %v", e.Outcome, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }
