package controls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrosim/penstock/internal/network"
)

func TestAction_Run(t *testing.T) {
	m := tankModel(t)

	act, err := NewAction(m, "pipe1", network.AttrStatus, float64(network.StatusClosed))
	require.NoError(t, err)

	change, err := act.Run("ctrl")
	require.NoError(t, err)
	require.True(t, change.Changed)
	require.NotNil(t, change.Target)
	assert.Equal(t, "pipe1", change.Target.Element)
	assert.Equal(t, network.AttrStatus, change.Target.Attribute)
	assert.True(t, change.PreviousKnown)
	assert.Equal(t, float64(network.StatusOpen), change.Previous)

	pipe, _ := m.Link("pipe1")
	assert.Equal(t, network.StatusClosed, pipe.Status())
}

func TestAction_NoOpWhenValueAlreadySet(t *testing.T) {
	m := tankModel(t)

	// The pipe starts open; setting status to open changes nothing.
	act, err := NewAction(m, "pipe1", network.AttrStatus, float64(network.StatusOpen))
	require.NoError(t, err)

	change, err := act.Run("ctrl")
	require.NoError(t, err)
	assert.False(t, change.Changed)
	assert.Nil(t, change.Target)
	assert.False(t, change.PreviousKnown)
}

func TestAction_PreviousUnknownBeforeFirstSolve(t *testing.T) {
	m := tankModel(t)

	act, err := NewAction(m, "pipe1", network.AttrFlow, 0.25)
	require.NoError(t, err)

	change, err := act.Run("ctrl")
	require.NoError(t, err)
	require.True(t, change.Changed)
	assert.False(t, change.PreviousKnown, "flow had no value before the write")
}

func TestAction_ConstructionErrors(t *testing.T) {
	m := tankModel(t)

	_, err := NewAction(m, "ghost", network.AttrStatus, 1)
	assert.ErrorIs(t, err, network.ErrElementNotFound)

	_, err = NewAction(m, "tank1", network.AttrStatus, 1)
	assert.ErrorIs(t, err, network.ErrUnknownAttribute)
}

func TestAction_String(t *testing.T) {
	m := tankModel(t)
	act, err := NewAction(m, "pipe1", network.AttrStatus, 0)
	require.NoError(t, err)
	assert.Equal(t, "set pipe1.status = 0", act.String())
}
