package controls

import (
	"fmt"
	"math"

	"github.com/hydrosim/penstock/internal/network"
)

// ConditionalControl fires its action when a single threshold relation on a
// live attribute holds. In the general case it is evaluated on the
// postsolve call only, against freshly solved state.
//
// Threshold conditions on tank head get a sharper treatment: tank head
// evolves continuously between solver steps while the solver only samples
// it at step boundaries, so the control also evaluates on the presolve call
// by extrapolating the head forward from the tank's last known net inflow.
// If the threshold lies inside the step, the control requests a backtrack
// that lands the step exactly on the crossing, computed from the linear
// head-versus-time interpolant.
type ConditionalControl struct {
	name      string
	priority  Priority
	source    string
	attribute string
	relation  Relation
	threshold float64
	action    *Action
}

// NewConditionalControl builds a single-threshold control. The source
// element must exist and expose the attribute.
func NewConditionalControl(m *network.Model, name, source, attribute string, relation Relation, threshold float64, action *Action) (*ConditionalControl, error) {
	el, err := m.Element(source)
	if err != nil {
		return nil, fmt.Errorf("conditional control %s: %w", name, err)
	}
	if !el.HasAttribute(attribute) {
		return nil, fmt.Errorf("conditional control %s: %s: attribute %q: %w",
			name, source, attribute, network.ErrUnknownAttribute)
	}
	if math.IsNaN(threshold) {
		return nil, fmt.Errorf("conditional control %s: threshold is NaN", name)
	}
	return &ConditionalControl{
		name:      name,
		priority:  priorityForAction(m, action),
		source:    source,
		attribute: attribute,
		relation:  relation,
		threshold: threshold,
		action:    action,
	}, nil
}

func (c *ConditionalControl) Name() string { return c.name }

func (c *ConditionalControl) Priority() Priority { return c.priority }

// IsActionRequired evaluates the threshold relation for the given phase.
func (c *ConditionalControl) IsActionRequired(m *network.Model, presolve bool) (ActionRequest, error) {
	el, err := m.Element(c.source)
	if err != nil {
		return notRequired, fmt.Errorf("control %s: %w", c.name, err)
	}

	if tank, ok := el.(*network.Tank); ok && c.attribute == network.AttrHead {
		return c.tankHeadRequired(m, tank, presolve)
	}

	if presolve {
		return notRequired, nil
	}
	val, set, err := el.Attribute(c.attribute)
	if err != nil {
		return notRequired, fmt.Errorf("control %s: %w", c.name, err)
	}
	if !set {
		return notRequired, nil
	}
	if c.relation.Compare(val, c.threshold) {
		return required(0), nil
	}
	return notRequired, nil
}

// tankHeadRequired implements the tank-head special case.
//
// Presolve, the head is extrapolated one step forward from the previous
// net inflow: predicted = head + 4*Q*dt/(pi*D^2). When both the current
// and the predicted head already satisfy the relation the crossing is in
// the past, and reporting it again every step would re-fire a control that
// has already had its say; skipping that case is load-bearing.
//
// At simulated time zero there is no prior inflow sample, so the presolve
// check degenerates to a direct comparison of the current head.
func (c *ConditionalControl) tankHeadRequired(m *network.Model, tank *network.Tank, presolve bool) (ActionRequest, error) {
	head, _ := tank.Head()

	if m.SimTime() == 0 {
		if presolve && c.relation.Compare(head, c.threshold) {
			return required(0), nil
		}
		return notRequired, nil
	}

	if !presolve {
		if c.relation.Compare(head, c.threshold) {
			return required(0), nil
		}
		return notRequired, nil
	}

	qNet, ok := tank.PrevDemand()
	if !ok {
		return notRequired, nil
	}
	dt := m.SimTime() - m.PrevSimTime()
	diameter := tank.Diameter()
	predicted := head + 4.0*qNet*dt/(math.Pi*diameter*diameter)

	if c.relation.Compare(predicted, c.threshold) && c.relation.Compare(head, c.threshold) {
		return notRequired, nil
	}
	if !c.relation.Compare(predicted, c.threshold) {
		return notRequired, nil
	}

	// The threshold is crossed strictly inside the step. Solve the linear
	// interpolant for the crossing time and rewind to it.
	slope := (predicted - head) / dt
	intercept := predicted - slope*m.SimTime()
	crossing := (c.threshold - intercept) / slope
	// The small offset keeps a crossing that lands on an integer second
	// from flooring to the second before it.
	backtrack := int(math.Floor(m.SimTime() - crossing + 1e-9))
	if backtrack < 0 {
		backtrack = 0
	}
	return required(backtrack), nil
}

// RunAction fires the action when the sweep priority matches.
func (c *ConditionalControl) RunAction(m *network.Model, priority Priority) (Change, error) {
	if priority != c.priority {
		return Change{}, nil
	}
	return c.action.Run(c.name)
}
