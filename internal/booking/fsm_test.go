package booking

import (
	"testing"

	"tablebook/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSMTransitions(t *testing.T) {
	fsm := NewFSM()

	tests := []struct {
		name        string
		from        model.Status
		to          model.Status
		shouldAllow bool
	}{
		{"pending to confirmed", model.StatusPending, model.StatusConfirmed, true},
		{"pending to cancelled", model.StatusPending, model.StatusCancelled, true},
		{"confirmed to cancelled", model.StatusConfirmed, model.StatusCancelled, true},
		{"confirmed to completed", model.StatusConfirmed, model.StatusCompleted, true},
		{"confirmed to no show", model.StatusConfirmed, model.StatusNoShow, true},
		// Invalid transitions
		{"pending to completed", model.StatusPending, model.StatusCompleted, false},
		{"pending to no show", model.StatusPending, model.StatusNoShow, false},
		{"confirmed back to pending", model.StatusConfirmed, model.StatusPending, false},
		{"pending to pending", model.StatusPending, model.StatusPending, false},
		{"cancelled to confirmed", model.StatusCancelled, model.StatusConfirmed, false},
		{"completed to cancelled", model.StatusCompleted, model.StatusCancelled, false},
		{"no show to completed", model.StatusNoShow, model.StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.shouldAllow, fsm.CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransitionErrors(t *testing.T) {
	fsm := NewFSM()

	got, err := fsm.Transition(model.StatusPending, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got)

	got, err = fsm.Transition(model.StatusCompleted, model.StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, model.StatusCompleted, got)

	_, err = fsm.Transition(model.StatusPending, model.Status("seated"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = fsm.Transition(model.Status(""), model.StatusPending)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestTerminalStatuses(t *testing.T) {
	fsm := NewFSM()

	assert.Equal(t, model.StatusPending, fsm.Initial())
	for _, st := range []model.Status{model.StatusCancelled, model.StatusCompleted, model.StatusNoShow} {
		assert.True(t, fsm.IsTerminal(st), st)
		assert.Empty(t, fsm.Next(st))
	}
	assert.False(t, fsm.IsTerminal(model.StatusPending))
	assert.False(t, fsm.IsTerminal(model.Status("unknown")))
	assert.ElementsMatch(t, []model.Status{model.StatusConfirmed, model.StatusCancelled}, fsm.Next(model.StatusPending))
}
