// Package engine orchestrates one dialogue turn end to end.
//
// A turn flows through a fixed pipeline:
//
//	input -> identity -> upload -> context assembly -> reply contract
//	      -> authorization -> execution -> memory -> transcript
//
// # Guarantees
//
//   - At most one turn is in flight per session (session.Registry).
//   - The acting agent's rank always comes from core.Identity, never from
//     the model reply.
//   - At most one action is executed per turn, and only after an allow.
//   - A malformed reply never reaches authorization, execution or memory.
//   - Memory is recorded for completed, denied and execution-failed turns
//     only; a failed record is logged and reported via TurnResult.Recorded.
//
// # Outcomes
//
// Every call to Turn returns a non-nil *TurnResult carrying the message shown
// to the operator. Failures that abort the turn additionally return a
// *TurnError whose Outcome classifies them; a denial or a failed action is a
// completed turn with a distinct Outcome and a nil error.
//
// # Usage
//
//	e := engine.New(model.NewMockModel("mock"),
//	    func(o *engine.Options) { o.Store = store },
//	)
//	sc := e.Sessions().Open(agentID, false)
//	res, err := e.Turn(ctx, engine.TurnRequest{Session: sc, Message: "Status report"})
//
// Spans are emitted through the global OpenTelemetry tracer provider.
package engine
