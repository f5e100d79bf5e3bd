package statemachine

import "context"

// State represents a state in the machine.
type State interface {
	Name() string
}

// Event represents a trigger for a state transition.
type Event interface {
	Name() string
}

// Guard decides at fire time whether a transition may proceed.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Action runs side effects during a transition. A returned error aborts
// the transition before the state changes.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// StateMachine is a finite state machine with guarded transitions.
type StateMachine interface {
	Current() State
	Fire(ctx context.Context, event Event, data any) error
	CanFire(ctx context.Context, event Event, data any) bool
}

// StringState is a string-based State for simple machines.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent is a string-based Event for simple machines.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }
