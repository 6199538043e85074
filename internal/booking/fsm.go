// Package booking provides the reservation status machine.
package booking

import (
	"fmt"

	"tablebook/internal/model"
)

// ErrInvalidTransition is returned for transitions the machine does not allow.
var ErrInvalidTransition = model.ErrInvalidTransition

// FSM manages status transitions of a reservation.
type FSM struct {
	transitions map[model.Status][]model.Status
}

// NewFSM creates a new FSM with the reservation lifecycle.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[model.Status][]model.Status{
			model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
			model.StatusConfirmed: {model.StatusCancelled, model.StatusCompleted, model.StatusNoShow},
			model.StatusCancelled: nil,
			model.StatusCompleted: nil,
			model.StatusNoShow:    nil,
		},
	}
}

// Initial is the status every new reservation starts in.
func (f *FSM) Initial() model.Status {
	return model.StatusPending
}

// CanTransition checks if transition is allowed.
func (f *FSM) CanTransition(from, to model.Status) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (f *FSM) IsTerminal(s model.Status) bool {
	allowed, ok := f.transitions[s]
	return ok && len(allowed) == 0
}

// Next returns the statuses reachable from s.
func (f *FSM) Next(s model.Status) []model.Status {
	out := make([]model.Status, len(f.transitions[s]))
	copy(out, f.transitions[s])
	return out
}

// Transition validates from -> to. Unknown labels yield ErrInvalidInput,
// disallowed moves ErrInvalidTransition.
func (f *FSM) Transition(from, to model.Status) (model.Status, error) {
	if _, ok := f.transitions[from]; !ok {
		return from, model.Invalidf("unknown status %q", from)
	}
	if _, ok := f.transitions[to]; !ok {
		return from, model.Invalidf("unknown status %q", to)
	}
	if !f.CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}
