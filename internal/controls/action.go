package controls

import (
	"fmt"
	"math"

	"github.com/hydrosim/penstock/internal/network"
)

// floatTolerance is the absolute tolerance under which an attribute is
// considered already equal to an action's value.
const floatTolerance = 1e-10

// ElementRef names one attribute of one element.
type ElementRef struct {
	Element   string
	Attribute string
}

// Change reports the outcome of running an action: whether a mutation
// actually happened, what was touched, and the prior value so a caller can
// log or restore it.
type Change struct {
	Changed  bool
	Target   *ElementRef // nil when nothing changed
	Previous float64
	// PreviousKnown is false when the attribute had no value before the
	// write (e.g. a head written before the first solve).
	PreviousKnown bool
}

// Action is a single idempotent attribute mutation on a target element.
//
// Running an action whose attribute already equals the new value is a
// defined no-op, reported as an unchanged result. A target that has gone
// missing at run time is an error, never a silent skip: dropping a rule
// silently would silently change simulated outcomes.
type Action struct {
	model     *network.Model
	target    string
	attribute string
	value     float64
}

// NewAction builds an action. The target must exist in the model and
// expose the attribute; both are construction-time errors.
func NewAction(m *network.Model, target, attribute string, value float64) (*Action, error) {
	el, err := m.Element(target)
	if err != nil {
		return nil, fmt.Errorf("action: %w", err)
	}
	if !el.HasAttribute(attribute) {
		return nil, fmt.Errorf("action: %s: attribute %q: %w",
			target, attribute, network.ErrUnknownAttribute)
	}
	return &Action{model: m, target: target, attribute: attribute, value: value}, nil
}

// Target returns the target element name.
func (a *Action) Target() string { return a.target }

// Attribute returns the attribute the action writes.
func (a *Action) Attribute() string { return a.attribute }

// Value returns the value the action writes.
func (a *Action) Value() float64 { return a.value }

// String describes the mutation, for logs.
func (a *Action) String() string {
	return fmt.Sprintf("set %s.%s = %v", a.target, a.attribute, a.value)
}

// Run applies the mutation on behalf of the named control.
func (a *Action) Run(controlName string) (Change, error) {
	el, err := a.model.Element(a.target)
	if err != nil {
		return Change{}, fmt.Errorf("control %s: action target: %w", controlName, err)
	}
	prev, prevSet, err := el.Attribute(a.attribute)
	if err != nil {
		return Change{}, fmt.Errorf("control %s: %w", controlName, err)
	}
	if prevSet && math.Abs(prev-a.value) < floatTolerance {
		return Change{}, nil
	}
	if err := el.SetAttribute(a.attribute, a.value); err != nil {
		return Change{}, fmt.Errorf("control %s: %w", controlName, err)
	}
	return Change{
		Changed:       true,
		Target:        &ElementRef{Element: a.target, Attribute: a.attribute},
		Previous:      prev,
		PreviousKnown: prevSet,
	}, nil
}
