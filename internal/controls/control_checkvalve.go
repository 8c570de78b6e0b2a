package controls

import (
	"fmt"

	"github.com/hydrosim/penstock/internal/network"
)

// CheckValveControl enforces the no-reverse-flow rule on a link by watching
// the head difference across it. The headloss sign convention depends on the
// link kind:
//
//   - pump with a head curve: startHead + shutoffHead - endHead, where the
//     shutoff head is the curve's zero-flow coefficient
//   - any other pump: endHead - startHead
//   - passive link: startHead - endHead
//
// The valve's owner registers two of these per protected link, one that
// closes it when the headloss drops below a small negative tolerance and one
// that reopens it when the headloss recovers. Both run at the highest
// priority level, postsolve only.
type CheckValveControl struct {
	name      string
	link      string
	relation  Relation
	threshold float64
	pumpA     float64
	hasPumpA  bool
	isPump    bool
	action    *Action
}

// NewCheckValveControl builds a headloss-threshold control over the named
// link. The head-curve shutoff coefficient is resolved once, at construction.
func NewCheckValveControl(m *network.Model, name, link string, relation Relation, threshold float64, action *Action) (*CheckValveControl, error) {
	l, ok := m.Link(link)
	if !ok {
		return nil, fmt.Errorf("check valve control %s: link %q: %w", name, link, network.ErrElementNotFound)
	}
	c := &CheckValveControl{
		name:      name,
		link:      link,
		relation:  relation,
		threshold: threshold,
		action:    action,
	}
	if pump, ok := l.(*network.Pump); ok {
		c.isPump = true
		if pump.Type() == network.PumpTypeHead {
			a, _, _, err := pump.HeadCurveCoefficients()
			if err != nil {
				return nil, fmt.Errorf("check valve control %s: %w", name, err)
			}
			c.pumpA = a
			c.hasPumpA = true
		}
	}
	return c, nil
}

func (c *CheckValveControl) Name() string { return c.name }

func (c *CheckValveControl) Priority() Priority { return MaxPriority }

// IsActionRequired compares the solved headloss against the threshold.
// Presolve calls never require action; unsolved node heads do not either.
func (c *CheckValveControl) IsActionRequired(m *network.Model, presolve bool) (ActionRequest, error) {
	if presolve {
		return notRequired, nil
	}
	l, ok := m.Link(c.link)
	if !ok {
		return notRequired, fmt.Errorf("control %s: link %q: %w", c.name, c.link, network.ErrElementNotFound)
	}
	startHead, startSet, err := nodeHead(m, l.StartNode())
	if err != nil {
		return notRequired, fmt.Errorf("control %s: %w", c.name, err)
	}
	endHead, endSet, err := nodeHead(m, l.EndNode())
	if err != nil {
		return notRequired, fmt.Errorf("control %s: %w", c.name, err)
	}
	if !startSet || !endSet {
		return notRequired, nil
	}

	var headloss float64
	switch {
	case c.hasPumpA:
		headloss = startHead + c.pumpA - endHead
	case c.isPump:
		headloss = endHead - startHead
	default:
		headloss = startHead - endHead
	}
	if c.relation.Compare(headloss, c.threshold) {
		return required(0), nil
	}
	return notRequired, nil
}

func nodeHead(m *network.Model, name string) (float64, bool, error) {
	n, ok := m.Node(name)
	if !ok {
		return 0, false, fmt.Errorf("node %q: %w", name, network.ErrElementNotFound)
	}
	h, set := n.Head()
	return h, set, nil
}

// RunAction fires the action when the sweep priority matches.
func (c *CheckValveControl) RunAction(m *network.Model, priority Priority) (Change, error) {
	if priority != MaxPriority {
		return Change{}, nil
	}
	return c.action.Run(c.name)
}
