package controls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrosim/penstock/internal/network"
)

func closePipeAction(t *testing.T, m *network.Model) *Action {
	t.Helper()
	act, err := NewAction(m, "pipe1", network.AttrStatus, float64(network.StatusClosed))
	require.NoError(t, err)
	return act
}

func openPipeAction(t *testing.T, m *network.Model) *Action {
	t.Helper()
	act, err := NewAction(m, "pipe1", network.AttrStatus, float64(network.StatusOpen))
	require.NoError(t, err)
	return act
}

func TestPriorityForAction(t *testing.T) {
	m := tankModel(t)

	// Closing a link runs last so it wins over reopeners.
	assert.Equal(t, MaxPriority, priorityForAction(m, closePipeAction(t, m)))
	assert.Equal(t, MinPriority, priorityForAction(m, openPipeAction(t, m)))

	// Non-status and non-link targets run first.
	flowAct, err := NewAction(m, "pipe1", network.AttrFlow, 0.5)
	require.NoError(t, err)
	assert.Equal(t, MinPriority, priorityForAction(m, flowAct))

	levelAct, err := NewAction(m, "tank1", network.AttrLevel, 2.0)
	require.NoError(t, err)
	assert.Equal(t, MinPriority, priorityForAction(m, levelAct))
}

func TestTimeControl_FiresOnStraddle(t *testing.T) {
	m := tankModel(t)
	ctrl, err := NewTimeControl(m, "close-at-1h", 3600, ClockSim, false, closePipeAction(t, m))
	require.NoError(t, err)
	assert.Equal(t, MaxPriority, ctrl.Priority())

	// Postsolve never requires action from a time control.
	advanceTo(t, m, 5400)
	req, err := ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.False(t, req.Required)

	req, err = ctrl.IsActionRequired(m, true)
	require.NoError(t, err)
	require.True(t, req.Required)
	require.True(t, req.BacktrackKnown)
	assert.Equal(t, 1800, req.Backtrack)

	change, err := ctrl.RunAction(m, MaxPriority)
	require.NoError(t, err)
	assert.True(t, change.Changed)

	pipe, _ := m.Link("pipe1")
	assert.Equal(t, network.StatusClosed, pipe.Status())
}

func TestTimeControl_PriorityMismatchNeverFires(t *testing.T) {
	m := tankModel(t)
	ctrl, err := NewTimeControl(m, "close-at-1h", 3600, ClockSim, false, closePipeAction(t, m))
	require.NoError(t, err)

	advanceTo(t, m, 5400)
	for p := MinPriority; p < MaxPriority; p++ {
		change, err := ctrl.RunAction(m, p)
		require.NoError(t, err)
		assert.False(t, change.Changed)
	}

	// The target was never touched.
	pipe, _ := m.Link("pipe1")
	assert.Equal(t, network.StatusOpen, pipe.Status())
}

func TestTimeControl_DailyReschedulesAfterFiring(t *testing.T) {
	m := tankModel(t)
	ctrl, err := NewTimeControl(m, "daily-close", 21600, ClockShifted, true, closePipeAction(t, m))
	require.NoError(t, err)

	advanceTo(t, m, 23400)
	req, err := ctrl.IsActionRequired(m, true)
	require.NoError(t, err)
	require.True(t, req.Required)

	_, err = ctrl.RunAction(m, ctrl.Priority())
	require.NoError(t, err)
	assert.Equal(t, float64(21600+secondsPerDay), ctrl.RunAtTime())

	// The same instant does not fire twice.
	req, err = ctrl.IsActionRequired(m, true)
	require.NoError(t, err)
	assert.False(t, req.Required)

	// Tomorrow's 06:00 does.
	advanceTo(t, m, secondsPerDay+23400)
	req, err = ctrl.IsActionRequired(m, true)
	require.NoError(t, err)
	assert.True(t, req.Required)
}

func TestTimeControl_ShiftedTriggerInPastRollsForward(t *testing.T) {
	// Simulation starts at noon; a 06:00 shifted trigger has already
	// passed today and moves to tomorrow morning.
	m := network.NewModel(12 * 3600)
	require.NoError(t, m.AddNode(network.NewJunction("a", 0, 0)))
	require.NoError(t, m.AddNode(network.NewJunction("b", 0, 0)))
	require.NoError(t, m.AddLink(network.NewPipe("pipe1", "a", "b", 0.3, false)))

	ctrl, err := NewTimeControl(m, "morning", 21600, ClockShifted, false, closePipeAction(t, m))
	require.NoError(t, err)
	assert.Equal(t, float64(21600+secondsPerDay), ctrl.RunAtTime())
}

func TestTimeControl_ConstructionErrors(t *testing.T) {
	m := tankModel(t)
	advanceTo(t, m, 7200)

	// One-shot sim-clock trigger in the past.
	_, err := NewTimeControl(m, "late", 3600, ClockSim, false, closePipeAction(t, m))
	assert.Error(t, err)

	// Daily trigger outside one day.
	_, err = NewTimeControl(m, "odd", secondsPerDay+1, ClockShifted, true, closePipeAction(t, m))
	assert.Error(t, err)
	_, err = NewTimeControl(m, "neg", -1, ClockShifted, true, closePipeAction(t, m))
	assert.Error(t, err)
}
