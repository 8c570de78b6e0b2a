package controls

import (
	"fmt"
	"strings"
)

// Relation is a comparison between two scalars. It is a closed enumeration
// mapped to a pure two-argument comparison, never a reference into a math
// library.
type Relation int

const (
	RelEq Relation = iota
	RelNe
	RelLt
	RelGt
	RelLe
	RelGe
)

// ParseRelation converts a relation spelling to its tag. Both the operator
// forms ("=", "<>", "<", ">", "<=", ">=") and the rule-language words
// ("is", "not", "below", "above", "before", "after") are accepted.
func ParseRelation(s string) (Relation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "=", "is":
		return RelEq, nil
	case "<>", "not":
		return RelNe, nil
	case "<", "below", "before":
		return RelLt, nil
	case ">", "above", "after":
		return RelGt, nil
	case "<=":
		return RelLe, nil
	case ">=":
		return RelGe, nil
	}
	return 0, fmt.Errorf("unknown relation %q", s)
}

// Compare applies the relation to (a, b), i.e. "a REL b".
func (r Relation) Compare(a, b float64) bool {
	switch r {
	case RelEq:
		return a == b
	case RelNe:
		return a != b
	case RelLt:
		return a < b
	case RelGt:
		return a > b
	case RelLe:
		return a <= b
	case RelGe:
		return a >= b
	}
	return false
}

// String returns the operator form of the relation.
func (r Relation) String() string {
	switch r {
	case RelEq:
		return "="
	case RelNe:
		return "<>"
	case RelLt:
		return "<"
	case RelGt:
		return ">"
	case RelLe:
		return "<="
	case RelGe:
		return ">="
	}
	return fmt.Sprintf("Relation(%d)", int(r))
}

// TimeRelation is the restricted relation set for time conditions. The
// numeric codes form the tri-state {-1: before, 0: at, +1: after}.
type TimeRelation int

const (
	TimeBefore TimeRelation = -1
	TimeAt     TimeRelation = 0
	TimeAfter  TimeRelation = 1
)

// ParseTimeRelation converts a time-relation spelling to its tag. An empty
// string means "at".
func ParseTimeRelation(s string) (TimeRelation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "at", "=", "is":
		return TimeAt, nil
	case "before", "below", "<", "<=":
		return TimeBefore, nil
	case "after", "above", ">", ">=":
		return TimeAfter, nil
	}
	return 0, fmt.Errorf("unknown time relation %q", s)
}

// String returns the rule-language word for the relation.
func (r TimeRelation) String() string {
	switch r {
	case TimeAt:
		return "at"
	case TimeBefore:
		return "before"
	case TimeAfter:
		return "after"
	}
	return fmt.Sprintf("TimeRelation(%d)", int(r))
}

// Symbol returns the comparison operator used when the relation is
// rendered inside a control-rule clause.
func (r TimeRelation) Symbol() string {
	switch r {
	case TimeBefore:
		return "<="
	case TimeAfter:
		return ">="
	}
	return "="
}
