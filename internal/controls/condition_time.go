package controls

import (
	"fmt"
	"math"

	"github.com/hydrosim/penstock/internal/network"
)

const secondsPerDay = 24 * 3600

// SimTimeCondition triggers on absolute simulated time.
//
// The relation decides how the two time cursors of the step in progress are
// read against the threshold:
//
//   - at: true exactly on the step that straddles the threshold
//   - after: true from the threshold onward; the backtrack is the crossing
//     offset on the straddling step and zero afterwards
//   - before: true strictly until the threshold; on the step that crosses
//     it the condition turns false but still reports the crossing offset,
//     so the caller can land exactly on the boundary
//
// With a positive repeat the condition resets periodically: the cursors are
// reduced into the current period by one coherent shift of both values.
// Reducing each cursor independently would manufacture a straddle in the
// wrong direction on the wraparound step, so both are shifted by the same
// whole number of periods.
type SimTimeCondition struct {
	backtrackHint
	model     *network.Model
	relation  TimeRelation
	threshold float64
	repeat    float64 // 0 = one-shot
	firstTime float64
}

// NewSimTimeCondition builds a simulated-time condition. threshold and
// firstTime are seconds since run start; repeat of zero means one-shot,
// otherwise the condition resets every repeat seconds after firstTime and
// threshold must fall inside one period.
func NewSimTimeCondition(m *network.Model, relation TimeRelation, threshold, repeat, firstTime float64) (*SimTimeCondition, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("sim-time condition: negative threshold %v", threshold)
	}
	if repeat < 0 {
		return nil, fmt.Errorf("sim-time condition: negative repeat %v", repeat)
	}
	if repeat > 0 && threshold >= repeat {
		return nil, fmt.Errorf("sim-time condition: threshold %v outside period %v", threshold, repeat)
	}
	if firstTime < 0 {
		return nil, fmt.Errorf("sim-time condition: negative first time %v", firstTime)
	}
	return &SimTimeCondition{
		model:     m,
		relation:  relation,
		threshold: threshold,
		repeat:    repeat,
		firstTime: firstTime,
	}, nil
}

// Name identifies the condition by its parameters.
func (c *SimTimeCondition) Name() string {
	name := fmt.Sprintf("SimTime_%s_%v", c.relation, c.threshold)
	if c.repeat > 0 {
		name += fmt.Sprintf("_Every%vsec", c.repeat)
	}
	if c.firstTime > 0 {
		name += fmt.Sprintf("_Start@%vsec", c.firstTime)
	}
	return name
}

// Evaluate reads the simulated-time cursors and applies the straddle test.
func (c *SimTimeCondition) Evaluate() (bool, error) {
	cur := c.model.SimTime() - c.firstTime
	prev := c.model.PrevSimTime() - c.firstTime
	if cur < 0 {
		// The condition is not armed before its first time.
		c.clearBacktrack()
		return false, nil
	}
	if c.repeat > 0 {
		// One coherent shift of both cursors into the current period.
		shift := math.Floor(cur/c.repeat) * c.repeat
		cur -= shift
		prev -= shift
	}
	return c.straddle(prev, cur, c.threshold), nil
}

// straddle applies the relation to a (prev, cur] step against a threshold
// and sets the backtrack hint. Shared with the time-of-day condition.
func (c *SimTimeCondition) straddle(prev, cur, threshold float64) bool {
	return timeStraddle(&c.backtrackHint, c.relation, prev, cur, threshold)
}

// timeStraddle is the single implementation of the at/before/after
// bookkeeping over a (prev, cur] pair of cursors.
func timeStraddle(hint *backtrackHint, relation TimeRelation, prev, cur, threshold float64) bool {
	switch relation {
	case TimeAt:
		if prev < threshold && threshold <= cur {
			hint.setBacktrack(int(cur - threshold))
			return true
		}
		hint.clearBacktrack()
		return false
	case TimeAfter:
		if cur >= threshold {
			if prev < threshold {
				hint.setBacktrack(int(cur - threshold))
			} else {
				hint.setBacktrack(0)
			}
			return true
		}
		hint.clearBacktrack()
		return false
	case TimeBefore:
		if cur < threshold {
			hint.setBacktrack(0)
			return true
		}
		// Turned false this step or earlier. On the crossing step the
		// offset is still reported so the caller can land on the
		// boundary; further past it there is nothing to correct to.
		if prev < threshold {
			hint.setBacktrack(int(cur - threshold))
		} else {
			hint.clearBacktrack()
		}
		return false
	}
	hint.clearBacktrack()
	return false
}

// TimeOfDayCondition triggers on wall-clock time of day, read from the
// shifted clock. By default the condition resets every midnight; a one-shot
// condition is instead anchored to a specific simulated day.
//
// before/after are stable across the midnight rollover: a step whose
// cursors wrap from 86399 to 0 must not spuriously satisfy "after".
type TimeOfDayCondition struct {
	backtrackHint
	model     *network.Model
	relation  TimeRelation
	threshold float64
	daily     bool
	firstDay  int
}

// NewTimeOfDayCondition builds a clock-time condition. threshold is seconds
// since midnight and must lie inside one day. daily selects the repeating
// form; a one-shot fires on day firstDay only (day 0 is the first simulated
// day).
func NewTimeOfDayCondition(m *network.Model, relation TimeRelation, threshold float64, daily bool, firstDay int) (*TimeOfDayCondition, error) {
	if threshold < 0 || threshold >= secondsPerDay {
		return nil, fmt.Errorf("time-of-day condition: threshold %v outside [0, 24h)", threshold)
	}
	if firstDay < 0 {
		return nil, fmt.Errorf("time-of-day condition: negative first day %d", firstDay)
	}
	return &TimeOfDayCondition{
		model:     m,
		relation:  relation,
		threshold: threshold,
		daily:     daily,
		firstDay:  firstDay,
	}, nil
}

// Name identifies the condition by its parameters.
func (c *TimeOfDayCondition) Name() string {
	rep := "Daily"
	if !c.daily {
		rep = "Once"
	}
	name := fmt.Sprintf("ClockTime_%s_%s_%s", c.relation, secToHMS(c.threshold), rep)
	if c.firstDay > 0 {
		name += fmt.Sprintf("_Start@%dday", c.firstDay)
	}
	return name
}

// String renders the condition as a control-rule clause. The daily form
// reads as a clock-time rule; the one-shot form reduces to an absolute
// simulated-time rule on its anchor day.
func (c *TimeOfDayCondition) String() string {
	if !c.daily {
		threshold := c.threshold + float64(c.firstDay)*secondsPerDay - c.model.StartClockTime()
		if threshold <= 0 {
			threshold += secondsPerDay
		}
		return fmt.Sprintf("TIME %s %v", c.relation.Symbol(), threshold)
	}
	return fmt.Sprintf("CLOCKTIME %s %s", c.relation.Symbol(), secToClock(c.threshold))
}

// Evaluate reads the shifted-clock cursors and applies the straddle test
// within the current day.
func (c *TimeOfDayCondition) Evaluate() (bool, error) {
	cur := c.model.ShiftedTime()
	prev := c.model.PrevShiftedTime()
	if int(math.Floor(cur/secondsPerDay)) < c.firstDay {
		c.clearBacktrack()
		return false, nil
	}
	if !c.daily {
		// One-shot: an absolute instant on day firstDay.
		offset := float64(c.firstDay) * secondsPerDay
		return timeStraddle(&c.backtrackHint, c.relation, prev-offset, cur-offset, c.threshold), nil
	}

	switch c.relation {
	case TimeAt:
		if cur < c.threshold {
			c.clearBacktrack()
			return false, nil
		}
		// Latest firing instant at or before the current cursor.
		fire := c.threshold + secondsPerDay*math.Floor((cur-c.threshold)/secondsPerDay)
		if prev < fire {
			c.setBacktrack(int(cur - fire))
			return true, nil
		}
		c.clearBacktrack()
		return false, nil
	case TimeAfter, TimeBefore:
		dayStart := secondsPerDay * math.Floor(cur/secondsPerDay)
		timeOfDay := cur - dayStart
		fire := dayStart + c.threshold
		if c.relation == TimeAfter {
			if timeOfDay >= c.threshold {
				if prev < fire {
					c.setBacktrack(int(cur - fire))
				} else {
					c.setBacktrack(0)
				}
				return true, nil
			}
			c.clearBacktrack()
			return false, nil
		}
		// before
		if timeOfDay < c.threshold {
			c.setBacktrack(0)
			return true, nil
		}
		if prev < fire {
			c.setBacktrack(int(cur - fire))
		} else {
			c.clearBacktrack()
		}
		return false, nil
	}
	c.clearBacktrack()
	return false, nil
}
