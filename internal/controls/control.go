package controls

import (
	"fmt"
	"math"

	"github.com/hydrosim/penstock/internal/network"
)

// Priority orders control firing within a step: 0 fires first, 3 fires
// last and therefore wins conflicts. See the package documentation for the
// conventional assignment.
type Priority int

// The priority range.
const (
	MinPriority Priority = 0
	MaxPriority Priority = 3
)

// Valid reports whether the priority lies in the defined range.
func (p Priority) Valid() bool {
	return p >= MinPriority && p <= MaxPriority
}

// ActionRequest is the answer to IsActionRequired: whether the control
// wants to fire this step, and how far the step should be rewound to land
// on the triggering instant. BacktrackKnown is false when no correction is
// known (the request carries no timing information).
type ActionRequest struct {
	Required       bool
	Backtrack      int
	BacktrackKnown bool
}

// notRequired is the zero answer shared by every control variant.
var notRequired = ActionRequest{}

func required(backtrack int) ActionRequest {
	return ActionRequest{Required: true, Backtrack: backtrack, BacktrackKnown: true}
}

// Control binds trigger logic to a priority and one or more actions under
// the two-phase protocol.
//
// IsActionRequired is queried once per phase and must be idempotent with
// respect to model state; only RunAction mutates. RunAction called with a
// priority other than the control's own is a normal no-op, not an error: a
// control that is action-required at a priority the sweep never matches
// simply does not fire that step.
type Control interface {
	Name() string
	Priority() Priority
	IsActionRequired(m *network.Model, presolve bool) (ActionRequest, error)
	RunAction(m *network.Model, priority Priority) (Change, error)
}

// priorityForAction derives a control's priority from what its action does:
// opening a link is urgent to do first (0), closing a link must win over
// anything that opened it earlier in the sweep (3), anything else runs
// first by default.
func priorityForAction(m *network.Model, a *Action) Priority {
	if _, ok := m.Link(a.Target()); !ok || a.Attribute() != network.AttrStatus {
		return MinPriority
	}
	switch {
	case math.Abs(a.Value()-float64(network.StatusOpen)) < floatTolerance:
		return MinPriority
	case math.Abs(a.Value()-float64(network.StatusClosed)) < floatTolerance:
		return MaxPriority
	}
	return MinPriority
}

// TimeClock selects which clock a time control reads.
type TimeClock int

const (
	// ClockSim is seconds since the start of the simulation.
	ClockSim TimeClock = iota
	// ClockShifted is seconds since midnight of the first simulated day,
	// regardless of when the simulation starts.
	ClockShifted
)

// String returns the clock name.
func (c TimeClock) String() string {
	switch c {
	case ClockSim:
		return "sim"
	case ClockShifted:
		return "shifted"
	}
	return fmt.Sprintf("TimeClock(%d)", int(c))
}

// TimeControl fires its action once the clock straddles run_at_time. It is
// evaluated on the presolve call only, so the step can be shortened to land
// exactly on the firing instant; the postsolve answer is unconditionally
// "not required".
type TimeControl struct {
	name     string
	priority Priority
	runAt    float64
	clock    TimeClock
	daily    bool
	action   *Action
}

// NewTimeControl builds a time control.
//
// Construction-time errors: a daily trigger outside [0, 24h], and a
// one-shot sim-clock trigger scheduled before the simulation's current
// time. A shifted-clock trigger already passed today is rolled forward to
// tomorrow instead.
func NewTimeControl(m *network.Model, name string, runAt float64, clock TimeClock, daily bool, action *Action) (*TimeControl, error) {
	if daily && (runAt < 0 || runAt > secondsPerDay) {
		return nil, fmt.Errorf("time control %s: daily trigger %v outside [0, 24h]", name, runAt)
	}
	switch clock {
	case ClockSim:
		if runAt < m.SimTime() {
			return nil, fmt.Errorf("time control %s: trigger at %v is already in the past (sim time %v)",
				name, runAt, m.SimTime())
		}
	case ClockShifted:
		if runAt < m.ShiftedTime() {
			runAt += secondsPerDay
		}
	default:
		return nil, fmt.Errorf("time control %s: unknown clock %v", name, clock)
	}
	return &TimeControl{
		name:     name,
		priority: priorityForAction(m, action),
		runAt:    runAt,
		clock:    clock,
		daily:    daily,
		action:   action,
	}, nil
}

func (c *TimeControl) Name() string { return c.name }

func (c *TimeControl) Priority() Priority { return c.priority }

// RunAtTime returns the next firing instant on the control's clock.
func (c *TimeControl) RunAtTime() float64 { return c.runAt }

// IsActionRequired checks the straddle on the presolve call.
func (c *TimeControl) IsActionRequired(m *network.Model, presolve bool) (ActionRequest, error) {
	if !presolve {
		return notRequired, nil
	}
	var prev, cur float64
	switch c.clock {
	case ClockSim:
		prev, cur = m.PrevSimTime(), m.SimTime()
	case ClockShifted:
		prev, cur = m.PrevShiftedTime(), m.ShiftedTime()
	}
	if prev < c.runAt && c.runAt <= cur {
		return required(int(math.Round(cur - c.runAt))), nil
	}
	return notRequired, nil
}

// RunAction fires the action when the sweep priority matches. A daily
// control reschedules itself 24h later immediately after firing.
func (c *TimeControl) RunAction(m *network.Model, priority Priority) (Change, error) {
	if priority != c.priority {
		return Change{}, nil
	}
	change, err := c.action.Run(c.name)
	if err != nil {
		return Change{}, err
	}
	if c.daily {
		c.runAt += secondsPerDay
	}
	return change, nil
}
