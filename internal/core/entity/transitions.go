package entity

import (
	"slices"

	"glasserp/internal/core/apperror"
)

// Transitions describes a forward-only state machine: each state maps to the
// states it may move to. States absent from the map are terminal.
type Transitions[S ~string] map[S][]S

// Allows reports whether from -> to is a permitted move.
func (t Transitions[S]) Allows(from, to S) bool {
	return slices.Contains(t[from], to)
}

// IsTerminal reports whether no move leaves s.
func (t Transitions[S]) IsTerminal(s S) bool {
	return len(t[s]) == 0
}

// Check returns an InvalidTransition error naming the entity when from -> to is not allowed.
func (t Transitions[S]) Check(entity string, from, to S) error {
	if !t.Allows(from, to) {
		return apperror.NewInvalidTransition(entity, string(from), string(to))
	}
	return nil
}
