// Package sim owns the step orchestration protocol: the presolve sweep
// with backtrack convergence, the physical solve, and the postsolve
// priority sweep that fires controls in deterministic order.
//
// One step is one ordered sequence of calls on a single goroutine. The
// orchestrator never evaluates controls concurrently; determinism comes
// from registration order and the fixed priority protocol, not from
// locking.
package sim
