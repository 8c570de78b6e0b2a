package controls

import (
	"fmt"

	"github.com/hydrosim/penstock/internal/network"
)

// AttributeRef names one live attribute of one element.
type AttributeRef struct {
	Element   string
	Attribute string
}

// Threshold is the right-hand side of one clause of a MultiConditionalControl.
// Either a literal value or a reference to another live attribute.
type Threshold struct {
	Value float64
	Ref   *AttributeRef
}

// LiteralThreshold wraps a constant right-hand side.
func LiteralThreshold(v float64) Threshold { return Threshold{Value: v} }

// RefThreshold wraps an attribute-reference right-hand side.
func RefThreshold(element, attribute string) Threshold {
	return Threshold{Ref: &AttributeRef{Element: element, Attribute: attribute}}
}

// MultiConditionalControl fires its action when every clause in a list of
// parallel (source, relation, threshold) triples holds at once. Clauses are
// checked against solved state only, so the control never participates in
// presolve and never requests a backtrack.
type MultiConditionalControl struct {
	name       string
	priority   Priority
	sources    []AttributeRef
	relations  []Relation
	thresholds []Threshold
	action     *Action
}

// NewMultiConditionalControl builds an all-of control from parallel clause
// lists. The lists must be non-empty and of equal length, and every
// referenced element and attribute must exist.
func NewMultiConditionalControl(m *network.Model, name string, sources []AttributeRef, relations []Relation, thresholds []Threshold, priority Priority, action *Action) (*MultiConditionalControl, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("multi control %s: no clauses", name)
	}
	if len(relations) != len(sources) || len(thresholds) != len(sources) {
		return nil, fmt.Errorf("multi control %s: clause lists differ in length: %d sources, %d relations, %d thresholds",
			name, len(sources), len(relations), len(thresholds))
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("multi control %s: priority %d out of range", name, priority)
	}
	for _, ref := range sources {
		if err := checkAttrRef(m, ref); err != nil {
			return nil, fmt.Errorf("multi control %s: %w", name, err)
		}
	}
	for _, th := range thresholds {
		if th.Ref == nil {
			continue
		}
		if err := checkAttrRef(m, *th.Ref); err != nil {
			return nil, fmt.Errorf("multi control %s: %w", name, err)
		}
	}
	return &MultiConditionalControl{
		name:       name,
		priority:   priority,
		sources:    sources,
		relations:  relations,
		thresholds: thresholds,
		action:     action,
	}, nil
}

func checkAttrRef(m *network.Model, ref AttributeRef) error {
	el, err := m.Element(ref.Element)
	if err != nil {
		return err
	}
	if !el.HasAttribute(ref.Attribute) {
		return fmt.Errorf("%s: attribute %q: %w", ref.Element, ref.Attribute, network.ErrUnknownAttribute)
	}
	return nil
}

func (c *MultiConditionalControl) Name() string { return c.name }

func (c *MultiConditionalControl) Priority() Priority { return c.priority }

// IsActionRequired reports whether every clause holds. Presolve calls never
// require action. A clause whose left or right side is unset does not hold.
func (c *MultiConditionalControl) IsActionRequired(m *network.Model, presolve bool) (ActionRequest, error) {
	if presolve {
		return notRequired, nil
	}
	for i, ref := range c.sources {
		val, set, err := attrValue(m, ref)
		if err != nil {
			return notRequired, fmt.Errorf("control %s: %w", c.name, err)
		}
		if !set {
			return notRequired, nil
		}
		rhs := c.thresholds[i].Value
		if r := c.thresholds[i].Ref; r != nil {
			rhs, set, err = attrValue(m, *r)
			if err != nil {
				return notRequired, fmt.Errorf("control %s: %w", c.name, err)
			}
			if !set {
				return notRequired, nil
			}
		}
		if !c.relations[i].Compare(val, rhs) {
			return notRequired, nil
		}
	}
	return required(0), nil
}

func attrValue(m *network.Model, ref AttributeRef) (float64, bool, error) {
	el, err := m.Element(ref.Element)
	if err != nil {
		return 0, false, err
	}
	return el.Attribute(ref.Attribute)
}

// RunAction fires the action when the sweep priority matches.
func (c *MultiConditionalControl) RunAction(m *network.Model, priority Priority) (Change, error) {
	if priority != c.priority {
		return Change{}, nil
	}
	return c.action.Run(c.name)
}
