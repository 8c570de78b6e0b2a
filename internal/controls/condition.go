package controls

import (
	"fmt"
	"math"

	"github.com/hydrosim/penstock/internal/network"
)

// Condition is a boolean predicate over simulated time or live network
// state.
//
// Evaluate must set the backtrack hint before it returns, so a caller can
// read Backtrack immediately afterwards. Apart from that hint, evaluation
// reads but never mutates state, and may be repeated freely within a phase.
//
// Name is the condition's identity: two structurally identical conditions
// have equal names and are interchangeable wherever conditions are keyed.
type Condition interface {
	Name() string
	Evaluate() (bool, error)

	// Backtrack returns the sub-step correction, in seconds, computed by
	// the most recent Evaluate. known is false when no correction is
	// known for the current state.
	Backtrack() (seconds int, known bool)
}

// backtrackHint holds the correction computed by the latest evaluation.
// Embedded by the concrete conditions.
type backtrackHint struct {
	seconds int
	known   bool
}

func (b *backtrackHint) Backtrack() (int, bool) { return b.seconds, b.known }

func (b *backtrackHint) setBacktrack(seconds int) {
	b.seconds = seconds
	b.known = true
}

func (b *backtrackHint) clearBacktrack() {
	b.seconds = 0
	b.known = false
}

// ValueCondition compares a live element attribute against a fixed
// threshold.
//
// A NaN threshold is a defined input, not an error: the comparison is
// forced to "strictly greater than zero".
type ValueCondition struct {
	backtrackHint
	model     *network.Model
	element   string
	attribute string
	relation  Relation
	threshold float64
}

// NewValueCondition builds a value condition. The element must exist in the
// model and expose the attribute at construction time.
func NewValueCondition(m *network.Model, element, attribute string, relation Relation, threshold float64) (*ValueCondition, error) {
	el, err := m.Element(element)
	if err != nil {
		return nil, fmt.Errorf("value condition: %w", err)
	}
	if !el.HasAttribute(attribute) {
		return nil, fmt.Errorf("value condition: %s: attribute %q: %w",
			element, attribute, network.ErrUnknownAttribute)
	}
	return &ValueCondition{
		model:     m,
		element:   element,
		attribute: attribute,
		relation:  relation,
		threshold: threshold,
	}, nil
}

// Name identifies the condition by its parameters.
func (c *ValueCondition) Name() string {
	return fmt.Sprintf("%s:%s_%s_%v",
		canonicalName(c.element), c.attribute, c.relation, c.threshold)
}

// Evaluate compares the live attribute against the threshold. The backtrack
// is always zero: generic value thresholds get no sub-step correction.
func (c *ValueCondition) Evaluate() (bool, error) {
	c.setBacktrack(0)
	el, err := c.model.Element(c.element)
	if err != nil {
		return false, fmt.Errorf("condition %s: %w", c.Name(), err)
	}
	val, set, err := el.Attribute(c.attribute)
	if err != nil {
		return false, fmt.Errorf("condition %s: %w", c.Name(), err)
	}
	if !set {
		return false, nil
	}
	relation, threshold := c.relation, c.threshold
	if math.IsNaN(threshold) {
		relation, threshold = RelGt, 0.0
	}
	return relation.Compare(val, threshold), nil
}

// RelativeCondition compares live attributes of two different elements.
type RelativeCondition struct {
	backtrackHint
	model         *network.Model
	element       string
	attribute     string
	relation      Relation
	thresholdElem string
	thresholdAttr string
}

// NewRelativeCondition builds a cross-element comparison. Both elements
// must exist and expose their attributes at construction time.
func NewRelativeCondition(m *network.Model, element, attribute string, relation Relation, thresholdElem, thresholdAttr string) (*RelativeCondition, error) {
	for _, ref := range []struct{ el, attr string }{
		{element, attribute},
		{thresholdElem, thresholdAttr},
	} {
		el, err := m.Element(ref.el)
		if err != nil {
			return nil, fmt.Errorf("relative condition: %w", err)
		}
		if !el.HasAttribute(ref.attr) {
			return nil, fmt.Errorf("relative condition: %s: attribute %q: %w",
				ref.el, ref.attr, network.ErrUnknownAttribute)
		}
	}
	return &RelativeCondition{
		model:         m,
		element:       element,
		attribute:     attribute,
		relation:      relation,
		thresholdElem: thresholdElem,
		thresholdAttr: thresholdAttr,
	}, nil
}

// Name identifies the condition by its parameters.
func (c *RelativeCondition) Name() string {
	return fmt.Sprintf("%s:%s_%s_%s:%s",
		canonicalName(c.element), c.attribute, c.relation,
		canonicalName(c.thresholdElem), c.thresholdAttr)
}

// Evaluate compares the two live attributes. Either side being unset makes
// the condition false.
func (c *RelativeCondition) Evaluate() (bool, error) {
	c.setBacktrack(0)
	val, set, err := c.read(c.element, c.attribute)
	if err != nil {
		return false, err
	}
	if !set {
		return false, nil
	}
	threshold, thresholdSet, err := c.read(c.thresholdElem, c.thresholdAttr)
	if err != nil {
		return false, err
	}
	if !thresholdSet {
		return false, nil
	}
	return c.relation.Compare(val, threshold), nil
}

func (c *RelativeCondition) read(element, attr string) (float64, bool, error) {
	el, err := c.model.Element(element)
	if err != nil {
		return 0, false, fmt.Errorf("condition %s: %w", c.Name(), err)
	}
	val, set, err := el.Attribute(attr)
	if err != nil {
		return 0, false, fmt.Errorf("condition %s: %w", c.Name(), err)
	}
	return val, set, nil
}

// AndCondition is the conjunction of two conditions. Both children are
// always evaluated so their backtrack hints stay fresh.
type AndCondition struct {
	left, right Condition
}

// NewAndCondition combines two conditions with AND.
func NewAndCondition(left, right Condition) *AndCondition {
	return &AndCondition{left: left, right: right}
}

// Name identifies the combinator by its children.
func (c *AndCondition) Name() string {
	return fmt.Sprintf("(%s AND %s)", c.left.Name(), c.right.Name())
}

// Evaluate evaluates both children and returns their conjunction.
func (c *AndCondition) Evaluate() (bool, error) {
	l, err := c.left.Evaluate()
	if err != nil {
		return false, err
	}
	r, err := c.right.Evaluate()
	if err != nil {
		return false, err
	}
	return l && r, nil
}

// Backtrack is the maximum of the children's backtracks: a combinator must
// never request an earlier correction than its most conservative child.
func (c *AndCondition) Backtrack() (int, bool) {
	return combineBacktrack(c.left, c.right)
}

// OrCondition is the disjunction of two conditions. Both children are
// always evaluated so their backtrack hints stay fresh.
type OrCondition struct {
	left, right Condition
}

// NewOrCondition combines two conditions with OR.
func NewOrCondition(left, right Condition) *OrCondition {
	return &OrCondition{left: left, right: right}
}

// Name identifies the combinator by its children.
func (c *OrCondition) Name() string {
	return fmt.Sprintf("(%s OR %s)", c.left.Name(), c.right.Name())
}

// Evaluate evaluates both children and returns their disjunction.
func (c *OrCondition) Evaluate() (bool, error) {
	l, err := c.left.Evaluate()
	if err != nil {
		return false, err
	}
	r, err := c.right.Evaluate()
	if err != nil {
		return false, err
	}
	return l || r, nil
}

// Backtrack is the maximum of the children's backtracks.
func (c *OrCondition) Backtrack() (int, bool) {
	return combineBacktrack(c.left, c.right)
}

// combineBacktrack takes the maximum over the children with a known
// backtrack. Unknown only when both children are unknown.
func combineBacktrack(left, right Condition) (int, bool) {
	l, lok := left.Backtrack()
	r, rok := right.Backtrack()
	switch {
	case lok && rok:
		return max(l, r), true
	case lok:
		return l, true
	case rok:
		return r, true
	}
	return 0, false
}
