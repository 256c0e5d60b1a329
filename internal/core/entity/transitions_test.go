package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"glasserp/internal/core/apperror"
)

type lightState string

func TestTransitions(t *testing.T) {
	machine := Transitions[lightState]{
		"red":    {"green"},
		"green":  {"yellow"},
		"yellow": {"red", "off"},
	}

	assert.True(t, machine.Allows("red", "green"))
	assert.False(t, machine.Allows("green", "red"))
	assert.True(t, machine.IsTerminal("off"))
	assert.False(t, machine.IsTerminal("yellow"))

	err := machine.Check("light", "green", "red")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
	assert.NoError(t, machine.Check("light", "yellow", "off"))
}
