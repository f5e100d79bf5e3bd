package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("statemachine: from, to, and event are required")
	ErrInvalidEvent      = errors.New("statemachine: event cannot be nil")
)

// NoTransitionError indicates no transition is declared for the
// state/event combination.
type NoTransitionError struct {
	StateName string
	EventName string
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("no transition from state %q on event %q", e.StateName, e.EventName)
}

// TransitionRejectedError indicates every declared transition for the
// state/event combination was blocked by its guards.
type TransitionRejectedError struct {
	StateName string
	EventName string
}

func (e *TransitionRejectedError) Error() string {
	return fmt.Sprintf("transition from state %q on event %q rejected by guards", e.StateName, e.EventName)
}

// IsNoTransitionAvailableError reports whether err is a NoTransitionError.
func IsNoTransitionAvailableError(err error) bool {
	var e *NoTransitionError
	return errors.As(err, &e)
}

// IsTransitionRejectedError reports whether err is a TransitionRejectedError.
func IsTransitionRejectedError(err error) bool {
	var e *TransitionRejectedError
	return errors.As(err, &e)
}
