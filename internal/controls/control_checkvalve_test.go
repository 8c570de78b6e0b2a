package controls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrosim/penstock/internal/network"
)

const headTol = 0.0001

func cvPipeModel(t *testing.T) *network.Model {
	t.Helper()
	m := network.NewModel(0)
	require.NoError(t, m.AddNode(network.NewJunction("up", 0, 0)))
	require.NoError(t, m.AddNode(network.NewJunction("dn", 0, 0)))
	require.NoError(t, m.AddLink(network.NewPipe("cv1", "up", "dn", 0.3, true)))
	return m
}

func setHeads(t *testing.T, m *network.Model, up, dn float64) {
	t.Helper()
	upNode, _ := m.Node("up")
	dnNode, _ := m.Node("dn")
	require.NoError(t, upNode.SetAttribute(network.AttrHead, up))
	require.NoError(t, dnNode.SetAttribute(network.AttrHead, dn))
}

func TestCheckValveControl_PipeClosesOnReverseGradient(t *testing.T) {
	m := cvPipeModel(t)
	closeAct, err := NewAction(m, "cv1", network.AttrStatus, float64(network.StatusClosed))
	require.NoError(t, err)

	ctrl, err := NewCheckValveControl(m, "cv1-close", "cv1", RelLt, -headTol, closeAct)
	require.NoError(t, err)
	assert.Equal(t, MaxPriority, ctrl.Priority())

	// Adverse gradient: downstream head exceeds upstream.
	setHeads(t, m, 5.0, 8.0)
	req, err := ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.True(t, req.Required)

	// Favorable gradient.
	setHeads(t, m, 8.0, 5.0)
	req, err = ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.False(t, req.Required)

	// Presolve never requires action.
	setHeads(t, m, 5.0, 8.0)
	req, err = ctrl.IsActionRequired(m, true)
	require.NoError(t, err)
	assert.False(t, req.Required)
}

func TestCheckValveControl_UnsolvedHeadsNotRequired(t *testing.T) {
	m := cvPipeModel(t)
	closeAct, err := NewAction(m, "cv1", network.AttrStatus, float64(network.StatusClosed))
	require.NoError(t, err)

	ctrl, err := NewCheckValveControl(m, "cv1-close", "cv1", RelLt, -headTol, closeAct)
	require.NoError(t, err)

	req, err := ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.False(t, req.Required)
}

func TestCheckValveControl_HeadPumpUsesShutoffHead(t *testing.T) {
	m := network.NewModel(0)
	require.NoError(t, m.AddNode(network.NewJunction("suc", 0, 0)))
	require.NoError(t, m.AddNode(network.NewJunction("dis", 0, 0)))
	require.NoError(t, m.AddLink(network.NewHeadPump("pmp1", "suc", "dis", 40.0, 0.5, 2.0)))

	closeAct, err := NewAction(m, "pmp1", network.AttrStatus, float64(network.StatusClosed))
	require.NoError(t, err)
	ctrl, err := NewCheckValveControl(m, "pmp1-close", "pmp1", RelLt, -headTol, closeAct)
	require.NoError(t, err)

	// headloss = suction + shutoff - discharge = 10 + 40 - 60 < 0.
	setHeads := func(suc, dis float64) {
		s, _ := m.Node("suc")
		d, _ := m.Node("dis")
		require.NoError(t, s.SetAttribute(network.AttrHead, suc))
		require.NoError(t, d.SetAttribute(network.AttrHead, dis))
	}
	setHeads(10.0, 60.0)
	req, err := ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.True(t, req.Required)

	// 10 + 40 - 45 > 0: the pump can still push forward.
	setHeads(10.0, 45.0)
	req, err = ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.False(t, req.Required)
}

func TestCheckValveControl_PowerPumpUsesHeadRise(t *testing.T) {
	m := network.NewModel(0)
	require.NoError(t, m.AddNode(network.NewJunction("suc", 0, 0)))
	require.NoError(t, m.AddNode(network.NewJunction("dis", 0, 0)))
	require.NoError(t, m.AddLink(network.NewPowerPump("pmp1", "suc", "dis")))

	openAct, err := NewAction(m, "pmp1", network.AttrStatus, float64(network.StatusOpen))
	require.NoError(t, err)
	ctrl, err := NewCheckValveControl(m, "pmp1-open", "pmp1", RelGt, headTol, openAct)
	require.NoError(t, err)

	// headloss = discharge - suction.
	s, _ := m.Node("suc")
	d, _ := m.Node("dis")
	require.NoError(t, s.SetAttribute(network.AttrHead, 10.0))
	require.NoError(t, d.SetAttribute(network.AttrHead, 30.0))

	req, err := ctrl.IsActionRequired(m, false)
	require.NoError(t, err)
	assert.True(t, req.Required)
}

func TestCheckValveControl_ConstructionErrors(t *testing.T) {
	m := cvPipeModel(t)
	act, err := NewAction(m, "cv1", network.AttrStatus, 0)
	require.NoError(t, err)

	_, err = NewCheckValveControl(m, "bad", "ghost", RelLt, 0, act)
	assert.ErrorIs(t, err, network.ErrElementNotFound)
}

func TestCheckValveControl_RunAction(t *testing.T) {
	m := cvPipeModel(t)
	closeAct, err := NewAction(m, "cv1", network.AttrStatus, float64(network.StatusClosed))
	require.NoError(t, err)

	ctrl, err := NewCheckValveControl(m, "cv1-close", "cv1", RelLt, -headTol, closeAct)
	require.NoError(t, err)

	change, err := ctrl.RunAction(m, MinPriority)
	require.NoError(t, err)
	assert.False(t, change.Changed)

	change, err = ctrl.RunAction(m, MaxPriority)
	require.NoError(t, err)
	assert.True(t, change.Changed)

	cv, _ := m.Link("cv1")
	assert.Equal(t, network.StatusClosed, cv.Status())
}
