// Package memory records and stores the immutable per-turn MemoryEntry
// history. The store interface lives in core (core.MemoryStore); this package
// offers a process-local implementation and the Recorder the engine uses to
// append exactly one entry per synthesized turn.
//
// Durable backends (see package sqlite) implement the same interface and are
// selected at wiring time.
package memory
