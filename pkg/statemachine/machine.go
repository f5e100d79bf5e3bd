package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// TransitionDef declares one allowed transition.
type TransitionDef struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard // all must pass
	Actions []Action
}

// Option configures a machine during construction.
type Option func(*machine) error

// WithTransitions registers the given transitions.
func WithTransitions(defs []TransitionDef) Option {
	return func(m *machine) error {
		for i, def := range defs {
			if err := m.add(def); err != nil {
				return fmt.Errorf("transition[%d]: %w", i, err)
			}
		}
		return nil
	}
}

// WithTransition registers a single transition.
func WithTransition(from, to State, event Event, guards []Guard, actions []Action) Option {
	return func(m *machine) error {
		return m.add(TransitionDef{From: from, To: to, Event: event, Guards: guards, Actions: actions})
	}
}

// New creates a machine starting in initial.
func New(initial State, opts ...Option) (StateMachine, error) {
	if initial == nil {
		return nil, ErrInvalidTransition
	}

	m := &machine{
		current:     initial,
		transitions: make(map[string]map[string][]TransitionDef),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// machine is a thread-safe in-memory implementation with O(1)
// transition lookup keyed by [fromState][event].
type machine struct {
	mu          sync.RWMutex
	current     State
	transitions map[string]map[string][]TransitionDef
}

func (m *machine) add(def TransitionDef) error {
	if def.From == nil || def.To == nil || def.Event == nil {
		return ErrInvalidTransition
	}

	from := def.From.Name()
	if _, ok := m.transitions[from]; !ok {
		m.transitions[from] = make(map[string][]TransitionDef)
	}
	// Multiple entries per from/event pair are allowed; guards select
	// the first matching one, so declaration order is priority order.
	m.transitions[from][def.Event.Name()] = append(m.transitions[from][def.Event.Name()], def)
	return nil
}

func (m *machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *machine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	candidates, ok := m.transitions[m.current.Name()][event.Name()]
	if !ok || len(candidates) == 0 {
		return &NoTransitionError{StateName: m.current.Name(), EventName: event.Name()}
	}

	def := m.match(ctx, candidates, event, data)
	if def == nil {
		return &TransitionRejectedError{StateName: m.current.Name(), EventName: event.Name()}
	}

	for _, action := range def.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, m.current, def.To, event, data); err != nil {
			return fmt.Errorf("transition action failed: %w", err)
		}
	}

	m.current = def.To
	return nil
}

func (m *machine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates, ok := m.transitions[m.current.Name()][event.Name()]
	if !ok {
		return false
	}
	return m.match(ctx, candidates, event, data) != nil
}

// match returns the first candidate whose guards all pass.
func (m *machine) match(ctx context.Context, candidates []TransitionDef, event Event, data any) *TransitionDef {
	for i := range candidates {
		passed := true
		for _, guard := range candidates[i].Guards {
			if guard != nil && !guard(ctx, m.current, event, data) {
				passed = false
				break
			}
		}
		if passed {
			return &candidates[i]
		}
	}
	return nil
}
