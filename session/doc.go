// Package session tracks live chat sessions: their identity, the single
// turn that may be in flight for each, and the visible transcript.
//
// Sessions are process-local and volatile. Durable conversation state lives
// in the memory store; the transcript here is only what the operator saw.
package session
