package statemachine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/statemachine"
)

var (
	stateIdle    = statemachine.StringState("idle")
	stateRunning = statemachine.StringState("running")
	stateDone    = statemachine.StringState("done")

	eventStart  = statemachine.StringEvent("start")
	eventFinish = statemachine.StringEvent("finish")
)

func TestMachine_Fire(t *testing.T) {
	t.Parallel()

	t.Run("follows declared transitions", func(t *testing.T) {
		t.Parallel()
		m, err := statemachine.New(stateIdle,
			statemachine.WithTransitions([]statemachine.TransitionDef{
				{From: stateIdle, To: stateRunning, Event: eventStart},
				{From: stateRunning, To: stateDone, Event: eventFinish},
			}),
		)
		require.NoError(t, err)

		require.NoError(t, m.Fire(context.Background(), eventStart, nil))
		assert.Equal(t, "running", m.Current().Name())

		require.NoError(t, m.Fire(context.Background(), eventFinish, nil))
		assert.Equal(t, "done", m.Current().Name())
	})

	t.Run("returns NoTransitionError for undeclared event", func(t *testing.T) {
		t.Parallel()
		m, err := statemachine.New(stateIdle,
			statemachine.WithTransitions([]statemachine.TransitionDef{
				{From: stateIdle, To: stateRunning, Event: eventStart},
			}),
		)
		require.NoError(t, err)

		err = m.Fire(context.Background(), eventFinish, nil)
		assert.True(t, statemachine.IsNoTransitionAvailableError(err))
		assert.Equal(t, "idle", m.Current().Name())
	})

	t.Run("first transition with passing guards wins", func(t *testing.T) {
		t.Parallel()
		wantRunning := func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
			v, ok := data.(string)
			return ok && v == "running"
		}

		m, err := statemachine.New(stateIdle,
			statemachine.WithTransitions([]statemachine.TransitionDef{
				{From: stateIdle, To: stateRunning, Event: eventStart, Guards: []statemachine.Guard{wantRunning}},
				{From: stateIdle, To: stateDone, Event: eventStart},
			}),
		)
		require.NoError(t, err)

		require.NoError(t, m.Fire(context.Background(), eventStart, "running"))
		assert.Equal(t, "running", m.Current().Name())
	})

	t.Run("falls through to unguarded transition", func(t *testing.T) {
		t.Parallel()
		never := func(context.Context, statemachine.State, statemachine.Event, any) bool { return false }

		m, err := statemachine.New(stateIdle,
			statemachine.WithTransitions([]statemachine.TransitionDef{
				{From: stateIdle, To: stateRunning, Event: eventStart, Guards: []statemachine.Guard{never}},
				{From: stateIdle, To: stateDone, Event: eventStart},
			}),
		)
		require.NoError(t, err)

		require.NoError(t, m.Fire(context.Background(), eventStart, nil))
		assert.Equal(t, "done", m.Current().Name())
	})

	t.Run("returns TransitionRejectedError when all guards fail", func(t *testing.T) {
		t.Parallel()
		never := func(context.Context, statemachine.State, statemachine.Event, any) bool { return false }

		m, err := statemachine.New(stateIdle,
			statemachine.WithTransitions([]statemachine.TransitionDef{
				{From: stateIdle, To: stateRunning, Event: eventStart, Guards: []statemachine.Guard{never}},
			}),
		)
		require.NoError(t, err)

		err = m.Fire(context.Background(), eventStart, nil)
		assert.True(t, statemachine.IsTransitionRejectedError(err))
	})

	t.Run("failing action aborts transition", func(t *testing.T) {
		t.Parallel()
		boom := func(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
			return assert.AnError
		}

		m, err := statemachine.New(stateIdle,
			statemachine.WithTransition(stateIdle, stateRunning, eventStart, nil, []statemachine.Action{boom}),
		)
		require.NoError(t, err)

		err = m.Fire(context.Background(), eventStart, nil)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, "idle", m.Current().Name())
	})
}

func TestMachine_CanFire(t *testing.T) {
	t.Parallel()

	m, err := statemachine.New(stateIdle,
		statemachine.WithTransitions([]statemachine.TransitionDef{
			{From: stateIdle, To: stateRunning, Event: eventStart},
		}),
	)
	require.NoError(t, err)

	assert.True(t, m.CanFire(context.Background(), eventStart, nil))
	assert.False(t, m.CanFire(context.Background(), eventFinish, nil))
}

func TestNew_RejectsNilStates(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(nil)
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	_, err = statemachine.New(stateIdle,
		statemachine.WithTransition(stateIdle, nil, eventStart, nil, nil),
	)
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)
}
