// Package playback presents an agent reply to the operator: a timed
// character-by-character reveal, optionally followed by speech.
//
// The Controller is an explicit state machine:
//
//	Idle -> Revealing -> Revealed -> Speaking <-> Paused
//	                        |            |
//	                        +----> Idle <+
//
// At most one reveal timer and one utterance exist at any time. Speech
// synthesis itself is behind the Speaker interface.
package playback
