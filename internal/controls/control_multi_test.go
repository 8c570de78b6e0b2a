package controls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrosim/penstock/internal/network"
)

func twoTankModel(t *testing.T) *network.Model {
	t.Helper()
	m := network.NewModel(0)
	require.NoError(t, m.AddNode(network.NewTank("tankA", 0, 2.0, 3.0)))
	require.NoError(t, m.AddNode(network.NewTank("tankB", 0, 2.0, 4.0)))
	require.NoError(t, m.AddLink(network.NewPipe("pipe1", "tankA", "tankB", 0.3, false)))
	return m
}

func TestMultiConditionalControl_AllClausesMustHold(t *testing.T) {
	m := twoTankModel(t)
	pipe, _ := m.Link("pipe1")
	pipe.SetFlow(0.3)

	act, err := NewAction(m, "pipe1", network.AttrStatus, float64(network.StatusClosed))
	require.NoError(t, err)

	ctrl, err := NewMultiConditionalControl(m, "both-low",
		[]AttributeRef{
			{Element: "tankA", Attribute: network.AttrLevel},
			{Element: "pipe1", Attribute: network.AttrFlow},
		},
		[]Relation{RelLt, RelGt},
		[]Threshold{LiteralThreshold(5.0), LiteralThreshold(0.1)},
		Priority(1), act)
	require.NoError(t, err)
	assert.Equal(t, Priority(1), ctrl.Priority())

	// Both clauses hold.
	req, err := ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.True(t, req.Required)

	// Presolve never requires action.
	req, err = ctrl.IsActionRequired(m, true)
	require.NoError(t, err)
	assert.False(t, req.Required)

	// Break the second clause.
	pipe.SetFlow(0.05)
	req, err = ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.False(t, req.Required)
}

func TestMultiConditionalControl_RefThreshold(t *testing.T) {
	m := twoTankModel(t)

	act, err := NewAction(m, "pipe1", network.AttrStatus, float64(network.StatusClosed))
	require.NoError(t, err)

	ctrl, err := NewMultiConditionalControl(m, "a-below-b",
		[]AttributeRef{{Element: "tankA", Attribute: network.AttrLevel}},
		[]Relation{RelLt},
		[]Threshold{RefThreshold("tankB", network.AttrLevel)},
		Priority(2), act)
	require.NoError(t, err)

	req, err := ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.True(t, req.Required, "3.0 < 4.0")

	tankA, _ := m.Node("tankA")
	require.NoError(t, tankA.SetAttribute(network.AttrLevel, 4.5))
	req, err = ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.False(t, req.Required)
}

func TestMultiConditionalControl_UnsetClauseDoesNotHold(t *testing.T) {
	m := twoTankModel(t)

	act, err := NewAction(m, "pipe1", network.AttrStatus, float64(network.StatusClosed))
	require.NoError(t, err)

	// Flow is unsolved, so its clause cannot hold.
	ctrl, err := NewMultiConditionalControl(m, "flow-gate",
		[]AttributeRef{{Element: "pipe1", Attribute: network.AttrFlow}},
		[]Relation{RelGt},
		[]Threshold{LiteralThreshold(0.0)},
		Priority(0), act)
	require.NoError(t, err)

	req, err := ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.False(t, req.Required)
}

func TestMultiConditionalControl_ConstructionErrors(t *testing.T) {
	m := twoTankModel(t)
	act, err := NewAction(m, "pipe1", network.AttrStatus, float64(network.StatusClosed))
	require.NoError(t, err)

	refs := []AttributeRef{{Element: "tankA", Attribute: network.AttrLevel}}

	// Mismatched clause list lengths.
	_, err = NewMultiConditionalControl(m, "bad", refs,
		[]Relation{RelLt, RelGt}, []Threshold{LiteralThreshold(1)}, Priority(0), act)
	assert.Error(t, err)

	// Empty clause list.
	_, err = NewMultiConditionalControl(m, "bad", nil, nil, nil, Priority(0), act)
	assert.Error(t, err)

	// Priority out of range.
	_, err = NewMultiConditionalControl(m, "bad", refs,
		[]Relation{RelLt}, []Threshold{LiteralThreshold(1)}, Priority(4), act)
	assert.Error(t, err)

	// Unknown source element and unknown ref-threshold attribute.
	_, err = NewMultiConditionalControl(m, "bad",
		[]AttributeRef{{Element: "ghost", Attribute: network.AttrLevel}},
		[]Relation{RelLt}, []Threshold{LiteralThreshold(1)}, Priority(0), act)
	assert.ErrorIs(t, err, network.ErrElementNotFound)

	_, err = NewMultiConditionalControl(m, "bad", refs,
		[]Relation{RelLt}, []Threshold{RefThreshold("tankB", "viscosity")}, Priority(0), act)
	assert.ErrorIs(t, err, network.ErrUnknownAttribute)
}

func TestMultiConditionalControl_RunAction(t *testing.T) {
	m := twoTankModel(t)
	act, err := NewAction(m, "pipe1", network.AttrStatus, float64(network.StatusClosed))
	require.NoError(t, err)

	ctrl, err := NewMultiConditionalControl(m, "gate",
		[]AttributeRef{{Element: "tankA", Attribute: network.AttrLevel}},
		[]Relation{RelLt},
		[]Threshold{LiteralThreshold(5.0)},
		Priority(1), act)
	require.NoError(t, err)

	change, err := ctrl.RunAction(m, Priority(3))
	require.NoError(t, err)
	assert.False(t, change.Changed)

	change, err = ctrl.RunAction(m, Priority(1))
	require.NoError(t, err)
	assert.True(t, change.Changed)
}
