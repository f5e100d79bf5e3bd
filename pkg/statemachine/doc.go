// Package statemachine provides a small finite state machine with
// guarded transitions.
//
// Transitions are declared as data: a (from, event) pair maps to one or
// more candidate targets, and at fire time the first candidate whose
// guards all pass wins. This makes declaration order the priority order
// and lets callers branch on runtime payload without control flow:
//
//	m, err := statemachine.New(statemachine.StringState("none"),
//		statemachine.WithTransitions([]statemachine.TransitionDef{
//			{From: none, To: trialing, Event: created, Guards: []statemachine.Guard{startsTrial}},
//			{From: none, To: active, Event: created},
//		}),
//	)
//	err = m.Fire(ctx, created, payload)
//
// Fire returns a NoTransitionError when the current state has no
// declared transition for the event, and a TransitionRejectedError when
// candidates exist but every guard set failed. Callers distinguish the
// two from other failures with IsNoTransitionAvailableError and
// IsTransitionRejectedError.
package statemachine
