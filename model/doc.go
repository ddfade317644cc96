// Package model defines the provider-agnostic abstraction for the external
// generative-text service and concrete helpers for driving it.
//
// Core goals:
//   - Carry a prompt plus a structured-output contract (JSON schema) to any provider
//   - Forward turn-scoped web augmentation and opaque file references
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic, Gemini) implement the Model interface in
// sub-packages so higher layers remain decoupled from vendor SDKs. Every field
// a provider returns is untrusted; package reply validates it.
package model
