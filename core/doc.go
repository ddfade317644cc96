// Package core provides the foundational domain types and interfaces used by
// Sentinel. It defines the core abstractions for:
//
//   - Agents (ranked conversational entities) and their ordered Rank enum
//   - Memory entries, knowledge fragments and projects
//   - Actions requested by a model reply (tagged Known / Malformed variant)
//   - Pluggable stores for agents, projects, memory, knowledge and files
//   - The session context passed explicitly into every engine call
//
// The package keeps implementation concerns (persistence, orchestration,
// providers) out of scope, exposing small interfaces so backends can be
// swapped in tests and production.
package core
