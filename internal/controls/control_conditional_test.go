package controls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrosim/penstock/internal/network"
)

// tankNetModel builds a tank draining into a junction with the inflow
// needed for presolve head extrapolation prerecorded.
func tankNetModel(t *testing.T, elevation, initLevel, qNet float64) *network.Model {
	t.Helper()
	m := network.NewModel(0)
	tank := network.NewTank("tank1", elevation, 2.0, initLevel)
	tank.SetPrevDemand(qNet)
	require.NoError(t, m.AddNode(tank))
	require.NoError(t, m.AddNode(network.NewJunction("j1", 0, 0.1)))
	require.NoError(t, m.AddLink(network.NewPipe("pipe1", "tank1", "j1", 0.3, false)))
	return m
}

func TestConditionalControl_TankBacktrack(t *testing.T) {
	// Head 5.0 rising to a predicted 6.0 over one hour against a 5.5
	// threshold: the crossing sits exactly mid-step.
	const (
		head      = 5.0
		threshold = 5.5
		step      = 3600.0
	)
	// Solve 4*q*dt/(pi*d^2) = 1.0 for q with d=2, dt=3600.
	qNet := 1.0 * 3.14159265358979 * 4.0 / (4.0 * step)

	m := tankNetModel(t, 0, head, qNet)
	act := closePipeAction(t, m)
	ctrl, err := NewConditionalControl(m, "tank-high", "tank1", network.AttrHead, RelGt, threshold, act)
	require.NoError(t, err)

	advanceTo(t, m, step)
	req, err := ctrl.IsActionRequired(m, true)
	require.NoError(t, err)
	require.True(t, req.Required)
	require.True(t, req.BacktrackKnown)
	assert.Equal(t, 1800, req.Backtrack)
}

func TestConditionalControl_TankSkipWhenAlreadyPast(t *testing.T) {
	// Both the current and the predicted head satisfy the relation: the
	// crossing happened in some earlier step and must not re-fire.
	m := tankNetModel(t, 0, 6.0, 0.001)
	ctrl, err := NewConditionalControl(m, "tank-high", "tank1", network.AttrHead, RelGt, 5.5, closePipeAction(t, m))
	require.NoError(t, err)

	advanceTo(t, m, 3600)
	req, err := ctrl.IsActionRequired(m, true)
	require.NoError(t, err)
	assert.False(t, req.Required)
}

func TestConditionalControl_TankNoCrossingInStep(t *testing.T) {
	// Draining tank against a greater-than threshold: the predicted head
	// moves away from the boundary.
	m := tankNetModel(t, 0, 5.0, -0.001)
	ctrl, err := NewConditionalControl(m, "tank-high", "tank1", network.AttrHead, RelGt, 5.5, closePipeAction(t, m))
	require.NoError(t, err)

	advanceTo(t, m, 3600)
	req, err := ctrl.IsActionRequired(m, true)
	require.NoError(t, err)
	assert.False(t, req.Required)
}

func TestConditionalControl_TankPostsolveDirectCompare(t *testing.T) {
	m := tankNetModel(t, 0, 6.0, 0.001)
	ctrl, err := NewConditionalControl(m, "tank-high", "tank1", network.AttrHead, RelGt, 5.5, closePipeAction(t, m))
	require.NoError(t, err)

	advanceTo(t, m, 3600)
	req, err := ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	require.True(t, req.Required)
	assert.Zero(t, req.Backtrack)
}

func TestConditionalControl_TankAtTimeZero(t *testing.T) {
	// No prior step to extrapolate from: presolve compares directly.
	m := tankNetModel(t, 0, 6.0, 0.001)
	ctrl, err := NewConditionalControl(m, "tank-high", "tank1", network.AttrHead, RelGt, 5.5, closePipeAction(t, m))
	require.NoError(t, err)

	req, err := ctrl.IsActionRequired(m, true)
	require.NoError(t, err)
	assert.True(t, req.Required)

	req, err = ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.False(t, req.Required)
}

func TestConditionalControl_TankWithoutInflowSample(t *testing.T) {
	m := network.NewModel(0)
	require.NoError(t, m.AddNode(network.NewTank("tank1", 0, 2.0, 6.0)))
	require.NoError(t, m.AddNode(network.NewJunction("j1", 0, 0)))
	require.NoError(t, m.AddLink(network.NewPipe("pipe1", "tank1", "j1", 0.3, false)))

	ctrl, err := NewConditionalControl(m, "tank-high", "tank1", network.AttrHead, RelGt, 5.5, closePipeAction(t, m))
	require.NoError(t, err)

	advanceTo(t, m, 3600)
	req, err := ctrl.IsActionRequired(m, true)
	require.NoError(t, err)
	assert.False(t, req.Required, "no inflow sample means no extrapolation")
}

func TestConditionalControl_NonTankPostsolveOnly(t *testing.T) {
	m := tankModel(t)
	pipe, _ := m.Link("pipe1")
	pipe.SetFlow(0.8)

	ctrl, err := NewConditionalControl(m, "high-flow", "pipe1", network.AttrFlow, RelGt, 0.5, closePipeAction(t, m))
	require.NoError(t, err)

	advanceTo(t, m, 3600)
	req, err := ctrl.IsActionRequired(m, true)
	require.NoError(t, err)
	assert.False(t, req.Required)

	req, err = ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.True(t, req.Required)
}

func TestConditionalControl_RunActionFires(t *testing.T) {
	m := tankNetModel(t, 0, 6.0, 0.001)
	ctrl, err := NewConditionalControl(m, "tank-high", "tank1", network.AttrHead, RelGt, 5.5, closePipeAction(t, m))
	require.NoError(t, err)
	require.Equal(t, MaxPriority, ctrl.Priority())

	change, err := ctrl.RunAction(m, MinPriority)
	require.NoError(t, err)
	assert.False(t, change.Changed)

	change, err = ctrl.RunAction(m, MaxPriority)
	require.NoError(t, err)
	assert.True(t, change.Changed)

	pipe, _ := m.Link("pipe1")
	assert.Equal(t, network.StatusClosed, pipe.Status())
}

func TestConditionalControl_ConstructionErrors(t *testing.T) {
	m := tankModel(t)
	act := closePipeAction(t, m)

	_, err := NewConditionalControl(m, "bad", "ghost", network.AttrHead, RelGt, 1, act)
	assert.ErrorIs(t, err, network.ErrElementNotFound)

	_, err = NewConditionalControl(m, "bad", "tank1", "viscosity", RelGt, 1, act)
	assert.ErrorIs(t, err, network.ErrUnknownAttribute)
}
