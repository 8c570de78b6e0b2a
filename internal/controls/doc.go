// Package controls implements the priority-ordered control layer of the
// simulation: conditions over simulated time and live network state, actions
// that mutate element attributes, and the controls that bind them together
// under the two-phase is-action-required / run-action protocol.
//
// # Priorities
//
// Every control carries a priority between 0 (lowest) and 3 (highest). The
// orchestrator sweeps priorities in ascending order each step, so an action
// at priority 3 is the last word. The conventional assignment:
//
//	0: open links for time and conditional controls; open check valves and
//	   pumps when flow would run forward
//	1: close links attached to tanks when the level falls below the minimum
//	   (or rises above the maximum)
//	2: reopen tank links when the level is out of range but the flow
//	   direction would correct it; close them when it would make it worse
//	3: close links for time and conditional controls; close check valves and
//	   pumps on reverse flow; pressure-reducing-valve state changes
//
// Within one priority level, controls fire in registration order and the
// last write to an attribute wins.
//
// # Phases and backtracking
//
// IsActionRequired is called twice per step: once before the physical solve
// (presolve=true), so time triggers can shorten the step, and once after
// (presolve=false), so value triggers see freshly solved state. A control
// queried in the wrong phase simply reports that no action is required; the
// phase split keeps the orchestrator free of per-variant branching.
//
// A positive backtrack is a request to re-take the step shortened by that
// many seconds, landing exactly on the triggering instant.
package controls
