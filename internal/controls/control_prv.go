package controls

import (
	"fmt"
	"math"

	"github.com/hydrosim/penstock/internal/network"
)

// PRVControl is the three-state machine governing a pressure reducing valve.
// It owns three prebuilt actions, close, open and hold-at-setting, and
// selects at most one per step based on the valve's current status and the
// solved hydraulics. Which action a given head and flow pattern selects
// depends on the state the valve is in, so the three branches cannot be
// split into independent threshold controls.
//
// Htol and Qtol are chatter guards: transitions only fire once the head or
// flow clears the boundary by more than the tolerance.
type PRVControl struct {
	name       string
	valve      string
	hTol       float64
	qTol       float64
	resistance float64
	closeAct   *Action
	openAct    *Action
	activeAct  *Action
	selected   *Action
}

// NewPRVControl builds the state machine for the named valve. The quadratic
// frictional resistance of the fully open valve is derived once from its
// diameter.
func NewPRVControl(m *network.Model, name, valve string, hTol, qTol float64, closeAct, openAct, activeAct *Action) (*PRVControl, error) {
	l, ok := m.Link(valve)
	if !ok {
		return nil, fmt.Errorf("prv control %s: link %q: %w", name, valve, network.ErrElementNotFound)
	}
	v, ok := l.(*network.Valve)
	if !ok {
		return nil, fmt.Errorf("prv control %s: link %q is not a valve", name, valve)
	}
	d := v.Diameter()
	return &PRVControl{
		name:       name,
		valve:      valve,
		hTol:       hTol,
		qTol:       qTol,
		resistance: 0.0826 * 0.02 * math.Pow(d, -5) * d * 2.0,
		closeAct:   closeAct,
		openAct:    openAct,
		activeAct:  activeAct,
	}, nil
}

func (c *PRVControl) Name() string { return c.name }

func (c *PRVControl) Priority() Priority { return MaxPriority }

// IsActionRequired runs the state machine against solved state and latches
// the selected action for the following RunAction call. Presolve calls never
// require action.
func (c *PRVControl) IsActionRequired(m *network.Model, presolve bool) (ActionRequest, error) {
	if presolve {
		return notRequired, nil
	}
	c.selected = nil

	l, ok := m.Link(c.valve)
	if !ok {
		return notRequired, fmt.Errorf("control %s: link %q: %w", c.name, c.valve, network.ErrElementNotFound)
	}
	v, ok := l.(*network.Valve)
	if !ok {
		return notRequired, fmt.Errorf("control %s: link %q is not a valve", c.name, c.valve)
	}
	startHead, startSet, err := nodeHead(m, v.StartNode())
	if err != nil {
		return notRequired, fmt.Errorf("control %s: %w", c.name, err)
	}
	endHead, endSet, err := nodeHead(m, v.EndNode())
	if err != nil {
		return notRequired, fmt.Errorf("control %s: %w", c.name, err)
	}
	if !startSet || !endSet {
		return notRequired, nil
	}
	end, ok := m.Node(v.EndNode())
	if !ok {
		return notRequired, fmt.Errorf("control %s: node %q: %w", c.name, v.EndNode(), network.ErrElementNotFound)
	}
	headSetting := v.Setting() + nodeElevation(end)
	flow, _ := v.Flow()

	switch v.Status() {
	case network.StatusActive:
		if flow < -c.qTol {
			c.selected = c.closeAct
			return required(0), nil
		}
		loss := c.resistance * flow * flow
		if startHead < headSetting+loss-c.hTol {
			c.selected = c.openAct
			return required(0), nil
		}
		return notRequired, nil
	case network.StatusOpen:
		if flow < -c.qTol {
			c.selected = c.closeAct
			return required(0), nil
		}
		loss := c.resistance * flow * flow
		if startHead > headSetting+loss+c.hTol {
			c.selected = c.activeAct
			return required(0), nil
		}
		return notRequired, nil
	case network.StatusClosed:
		if startHead > endHead+c.hTol && startHead < headSetting-c.hTol {
			c.selected = c.openAct
			return required(0), nil
		}
		if startHead > endHead+c.hTol && endHead < headSetting-c.hTol {
			c.selected = c.activeAct
			return required(0), nil
		}
		return notRequired, nil
	default:
		return notRequired, fmt.Errorf("control %s: valve %q in unexpected status %v", c.name, c.valve, v.Status())
	}
}

func nodeElevation(n network.Node) float64 {
	elev, _, err := n.Attribute(network.AttrElevation)
	if err != nil {
		return 0
	}
	return elev
}

// RunAction fires the action selected by the most recent postsolve
// evaluation. With no selection latched it reports no change.
func (c *PRVControl) RunAction(m *network.Model, priority Priority) (Change, error) {
	if priority != MaxPriority || c.selected == nil {
		return Change{}, nil
	}
	act := c.selected
	c.selected = nil
	return act.Run(c.name)
}
