package core

import "errors"

// Store errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAgentNotFound = errors.New("agent not found")
	ErrInvalidRecord = errors.New("invalid record")
)

// Turn error taxonomy. Callers match with errors.Is.
var (
	// ErrContextFetch is a non-project context fetch failure; fatal to the turn.
	ErrContextFetch = errors.New("context fetch failed")
	// ErrProjectFetch is isolated and degrades the prompt instead of failing the turn.
	ErrProjectFetch = errors.New("project fetch failed")
	// ErrContractViolation marks a reply that does not satisfy the reply contract.
	ErrContractViolation = errors.New("reply contract violation")
	// ErrExecution marks an authorized action whose store operation failed.
	ErrExecution = errors.New("action execution failed")
	// ErrUpload marks an attachment upload failure.
	ErrUpload = errors.New("upload failed")
	// ErrGeneration marks a generative-text service failure.
	ErrGeneration = errors.New("generation failed")
	// ErrTurnInFlight rejects input while the session already has a pending turn.
	ErrTurnInFlight = errors.New("turn already in flight for session")
	// ErrEmptyInput rejects a turn with neither message nor attachment.
	ErrEmptyInput = errors.New("empty input")
)
