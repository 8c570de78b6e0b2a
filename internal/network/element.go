package network

import (
	"errors"
	"fmt"
	"math"
)

// Attribute names understood by the element bags. Conditions and actions
// reference attributes by these strings.
const (
	AttrStatus     = "status"
	AttrSetting    = "setting"
	AttrHead       = "head"
	AttrLevel      = "level"
	AttrFlow       = "flow"
	AttrElevation  = "elevation"
	AttrDiameter   = "diameter"
	AttrDemand     = "demand"
	AttrPrevDemand = "prev_demand"
)

// ErrUnknownAttribute reports a read or write of an attribute the element
// does not expose.
var ErrUnknownAttribute = errors.New("unknown attribute")

// ErrElementNotFound reports a lookup of an element the model does not hold.
var ErrElementNotFound = errors.New("element not found")

// Element is a named, mutable attribute bag.
//
// Attribute returns (value, set, error). The error is non-nil only when the
// element does not expose the named attribute at all; set is false when the
// attribute exists but has no value yet.
type Element interface {
	Name() string
	Attribute(attr string) (float64, bool, error)
	SetAttribute(attr string, value float64) error
	HasAttribute(attr string) bool
}

// Node is an element attached to the node side of the graph.
type Node interface {
	Element
	// Head returns the current hydraulic head, if set.
	Head() (float64, bool)
}

// Link is an element connecting two nodes.
type Link interface {
	Element
	StartNode() string
	EndNode() string
	Status() LinkStatus
	SetStatus(LinkStatus)
	Flow() (float64, bool)
	SetFlow(float64)
}

// LinkStatus is the operating state of a link. The numeric codes are stable
// and are what the status attribute reads and writes as a float.
type LinkStatus int

const (
	StatusClosed LinkStatus = iota
	StatusOpen
	StatusActive
)

// String returns the lower-case status name.
func (s LinkStatus) String() string {
	switch s {
	case StatusClosed:
		return "closed"
	case StatusOpen:
		return "open"
	case StatusActive:
		return "active"
	default:
		return fmt.Sprintf("LinkStatus(%d)", int(s))
	}
}

// ParseLinkStatus converts a status name to its code.
func ParseLinkStatus(s string) (LinkStatus, error) {
	switch s {
	case "closed":
		return StatusClosed, nil
	case "open", "opened":
		return StatusOpen, nil
	case "active":
		return StatusActive, nil
	default:
		return 0, fmt.Errorf("unknown link status %q", s)
	}
}

// statusFromFloat converts an attribute write back to a LinkStatus.
// Writes are produced by control actions, which always carry one of the
// defined codes; anything else is rejected.
func statusFromFloat(v float64) (LinkStatus, error) {
	code := int(math.Round(v))
	if code < int(StatusClosed) || code > int(StatusActive) || math.Abs(v-float64(code)) > 1e-9 {
		return 0, fmt.Errorf("invalid link status value %v", v)
	}
	return LinkStatus(code), nil
}

func unknownAttr(element, attr string) error {
	return fmt.Errorf("%s: attribute %q: %w", element, attr, ErrUnknownAttribute)
}
