// Package reply turns an assembled prompt into a validated agent reply.
//
// The Client sends the prompt together with a structured-output contract to a
// model.Model and decodes the untrusted result into a Reply: free text plus at
// most one action request, represented as the tagged core.Action variant.
// Anything that does not satisfy the contract surfaces as
// core.ErrContractViolation; no caller ever sees a half-valid action.
package reply
