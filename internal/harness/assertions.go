package harness

import (
	"fmt"
	"math"

	"github.com/hydrosim/penstock/internal/sim"
)

const valueTolerance = 1e-9

// AssertionError reports the first scenario assertion that failed.
type AssertionError struct {
	Scenario  string
	Assertion string
	Detail    string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("scenario %s: assertion %s failed: %s", e.Scenario, e.Assertion, e.Detail)
}

// CheckAssertions evaluates every assertion in the scenario against the
// run result, returning the first failure.
func CheckAssertions(res *Result) error {
	for _, a := range res.Scenario.Assertions {
		var err error
		switch a.Type {
		case "firing_count":
			err = checkFiringCount(res, a)
		case "fired_at":
			err = checkFiredAt(res, a)
		case "firing_order":
			err = checkFiringOrder(res, a)
		case "final_value":
			err = checkFinalValue(res, a)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func fail(res *Result, a Assertion, format string, args ...any) error {
	return &AssertionError{
		Scenario:  res.Scenario.Name,
		Assertion: a.Type,
		Detail:    fmt.Sprintf(format, args...),
	}
}

func checkFiringCount(res *Result, a Assertion) error {
	count := 0
	for _, step := range res.Steps {
		for _, f := range step.Firings {
			if a.Control == "" || f.Control == a.Control {
				count++
			}
		}
	}
	if count != a.Count {
		return fail(res, a, "control %q fired %d times, want %d", a.Control, count, a.Count)
	}
	return nil
}

func checkFiredAt(res *Result, a Assertion) error {
	for _, step := range res.Steps {
		for _, f := range step.Firings {
			if f.Control != a.Control {
				continue
			}
			if math.Abs(step.EndTime-a.Time) <= valueTolerance {
				return nil
			}
			return fail(res, a, "control %q fired at %v, want %v", a.Control, step.EndTime, a.Time)
		}
	}
	return fail(res, a, "control %q never fired", a.Control)
}

// checkFiringOrder verifies the controls first fired in the listed
// order, comparing by (step, firing sequence).
func checkFiringOrder(res *Result, a Assertion) error {
	type pos struct {
		step, seq int
	}
	first := make(map[string]pos, len(a.Controls))
	for si, step := range res.Steps {
		for fi, f := range step.Firings {
			if _, seen := first[f.Control]; !seen {
				first[f.Control] = pos{step: si, seq: fi}
			}
		}
	}
	prev := pos{step: -1, seq: -1}
	for _, name := range a.Controls {
		p, ok := first[name]
		if !ok {
			return fail(res, a, "control %q never fired", name)
		}
		if p.step < prev.step || (p.step == prev.step && p.seq <= prev.seq) {
			return fail(res, a, "control %q fired out of order", name)
		}
		prev = p
	}
	return nil
}

func checkFinalValue(res *Result, a Assertion) error {
	el, err := res.Model.Element(a.Element)
	if err != nil {
		return fail(res, a, "%v", err)
	}
	v, set, err := el.Attribute(a.Attribute)
	if err != nil {
		return fail(res, a, "%v", err)
	}
	if !set {
		return fail(res, a, "%s.%s has no value", a.Element, a.Attribute)
	}
	if math.Abs(v-a.Value) > valueTolerance {
		return fail(res, a, "%s.%s = %v, want %v", a.Element, a.Attribute, v, a.Value)
	}
	return nil
}

// firingsOf collects every firing of one control across the run.
func firingsOf(steps []sim.StepResult, control string) []sim.Firing {
	var out []sim.Firing
	for _, step := range steps {
		for _, f := range step.Firings {
			if f.Control == control {
				out = append(out, f)
			}
		}
	}
	return out
}
