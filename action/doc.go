// Package action executes authorized administrative actions against the
// entity store.
//
// Each core.ActionKind has one Handler with a JSON parameter schema. Params
// come from untrusted model output: they are validated against the schema
// before use, and identity fields inside them never influence authorization.
// Every handler performs exactly one store operation. Failures are returned as
// *Error values wrapping core.ErrExecution.
package action
