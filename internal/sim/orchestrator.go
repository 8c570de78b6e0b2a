package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hydrosim/penstock/internal/controls"
	"github.com/hydrosim/penstock/internal/network"
)

// Solver advances the physical state of the model over the step in
// progress. Implemented by the harness mass-balance solver (production
// scenarios) and by scripted solvers (tests).
type Solver interface {
	// Solve computes heads and flows for the step ending at the model's
	// current simulated time.
	Solve(ctx context.Context, m *network.Model) error

	// Rederive refreshes solver-dependent quantities after control
	// actions changed the network mid-sweep, so later priority levels
	// read state that reflects earlier levels.
	Rederive(ctx context.Context, m *network.Model) error
}

// Firing is one control action that actually changed the model.
type Firing struct {
	Control   string
	Priority  controls.Priority
	Element   string
	Attribute string
	Value     float64
	Previous  float64
	// PreviousKnown is false when the attribute had no value before
	// the control wrote it.
	PreviousKnown bool
}

// StepResult summarizes one completed step.
type StepResult struct {
	Index     int
	StartTime float64
	EndTime   float64
	// Rewinds is the number of presolve backtrack iterations applied
	// before the step converged on its event boundary.
	Rewinds int
	Firings []Firing
}

// TraceRecorder observes completed steps. Implemented by the trace store;
// a nil recorder disables tracing.
type TraceRecorder interface {
	RecordStep(ctx context.Context, result StepResult) error
}

// DefaultMaxRewinds bounds the presolve backtrack loop. A well-formed
// control set converges in a handful of iterations; hitting the bound
// means two controls keep requesting contradictory corrections.
const DefaultMaxRewinds = 100

// Orchestrator drives the two-phase control protocol over a model.
//
// The controls slice order never changes after construction: within a
// priority level, actions fire in registration order, and last write wins.
type Orchestrator struct {
	model    *network.Model
	solver   Solver
	controls []controls.Control
	log      *controls.ChangeLog
	recorder TraceRecorder
	logger   *slog.Logger

	maxRewinds int
	stepIndex  int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxRewinds overrides the presolve backtrack iteration bound.
func WithMaxRewinds(n int) Option {
	return func(o *Orchestrator) { o.maxRewinds = n }
}

// WithRecorder attaches a trace recorder.
func WithRecorder(r TraceRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator. The controls slice is copied so later
// mutation by the caller cannot break registration order.
func New(m *network.Model, solver Solver, ctrls []controls.Control, opts ...Option) *Orchestrator {
	copied := make([]controls.Control, len(ctrls))
	copy(copied, ctrls)

	o := &Orchestrator{
		model:      m,
		solver:     solver,
		controls:   copied,
		log:        controls.NewChangeLog(),
		logger:     slog.Default(),
		maxRewinds: DefaultMaxRewinds,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ChangeLog returns the per-interval change log. The caller owns resets.
func (o *Orchestrator) ChangeLog() *controls.ChangeLog { return o.log }

// Step advances the model by up to duration seconds and runs the full
// control protocol: presolve sweep with backtrack convergence, physical
// solve, postsolve priority sweep. The step ends earlier than requested
// when a control lands it on an event boundary.
func (o *Orchestrator) Step(ctx context.Context, duration float64) (StepResult, error) {
	if err := o.model.AdvanceClock(duration); err != nil {
		return StepResult{}, fmt.Errorf("step %d: %w", o.stepIndex, err)
	}
	result := StepResult{
		Index:     o.stepIndex,
		StartTime: o.model.PrevSimTime(),
	}
	o.stepIndex++

	presolveRequired, err := o.presolve(&result)
	if err != nil {
		return StepResult{}, err
	}

	if err := o.solver.Solve(ctx, o.model); err != nil {
		return StepResult{}, fmt.Errorf("step %d: solve: %w", result.Index, err)
	}

	if err := o.sweep(ctx, presolveRequired, &result); err != nil {
		return StepResult{}, err
	}

	result.EndTime = o.model.SimTime()
	o.logger.Debug("step complete",
		"step", result.Index,
		"start", result.StartTime,
		"end", result.EndTime,
		"rewinds", result.Rewinds,
		"firings", len(result.Firings))

	if o.recorder != nil {
		if err := o.recorder.RecordStep(ctx, result); err != nil {
			return StepResult{}, fmt.Errorf("step %d: record: %w", result.Index, err)
		}
	}
	return result, nil
}

// presolve evaluates every control before the solve and applies the
// smallest positive backtrack until none remain, so the step lands on the
// earliest event inside it. Returns which controls are action-required at
// the final (converged) step boundary.
func (o *Orchestrator) presolve(result *StepResult) ([]bool, error) {
	required := make([]bool, len(o.controls))

	for iter := 0; ; iter++ {
		if iter > o.maxRewinds {
			return nil, fmt.Errorf("step %d: no backtrack convergence after %d rewinds",
				result.Index, o.maxRewinds)
		}

		minBacktrack := 0
		for i, c := range o.controls {
			req, err := c.IsActionRequired(o.model, true)
			if err != nil {
				return nil, fmt.Errorf("step %d: presolve %s: %w", result.Index, c.Name(), err)
			}
			required[i] = req.Required
			if !req.Required || !req.BacktrackKnown || req.Backtrack <= 0 {
				continue
			}
			if minBacktrack == 0 || req.Backtrack < minBacktrack {
				minBacktrack = req.Backtrack
			}
		}
		if minBacktrack == 0 {
			return required, nil
		}

		if err := o.model.Rewind(minBacktrack); err != nil {
			return nil, fmt.Errorf("step %d: %w", result.Index, err)
		}
		result.Rewinds++
		o.logger.Debug("step rewound",
			"step", result.Index,
			"backtrack", minBacktrack,
			"end", o.model.SimTime())
	}
}

// sweep runs the postsolve priority protocol: levels 0 through 3, each
// control in registration order. A control fires at a level when it is
// action-required (from either phase) and its own priority matches;
// solver-dependent quantities are re-derived between levels whenever a
// level changed the model.
func (o *Orchestrator) sweep(ctx context.Context, presolveRequired []bool, result *StepResult) error {
	for p := controls.MinPriority; p <= controls.MaxPriority; p++ {
		levelChanged := false
		for i, c := range o.controls {
			req := presolveRequired[i]
			if !req {
				// Postsolve eligibility is re-read at every level so
				// the decision reflects actions from lower levels.
				r, err := c.IsActionRequired(o.model, false)
				if err != nil {
					return fmt.Errorf("step %d: postsolve %s: %w", result.Index, c.Name(), err)
				}
				req = r.Required
			}
			if !req {
				continue
			}
			change, err := c.RunAction(o.model, p)
			if err != nil {
				return fmt.Errorf("step %d: %s: %w", result.Index, c.Name(), err)
			}
			if !change.Changed {
				continue
			}
			levelChanged = true
			o.log.Record(change.Target.Element, change.Target.Attribute)
			result.Firings = append(result.Firings, Firing{
				Control:       c.Name(),
				Priority:      p,
				Element:       change.Target.Element,
				Attribute:     change.Target.Attribute,
				Value:         o.targetValue(change.Target),
				Previous:      change.Previous,
				PreviousKnown: change.PreviousKnown,
			})
			o.logger.Info("control fired",
				"step", result.Index,
				"control", c.Name(),
				"priority", int(p),
				"element", change.Target.Element,
				"attribute", change.Target.Attribute)
		}
		if levelChanged && p < controls.MaxPriority {
			if err := o.solver.Rederive(ctx, o.model); err != nil {
				return fmt.Errorf("step %d: rederive after priority %d: %w", result.Index, int(p), err)
			}
		}
	}
	return nil
}

// targetValue reads back what the firing wrote, for the trace.
func (o *Orchestrator) targetValue(ref *controls.ElementRef) float64 {
	el, err := o.model.Element(ref.Element)
	if err != nil {
		return 0
	}
	v, _, err := el.Attribute(ref.Attribute)
	if err != nil {
		return 0
	}
	return v
}

// Run advances the model to endTime in steps of at most stepSize,
// clipping the final step. Results are returned in step order.
func (o *Orchestrator) Run(ctx context.Context, endTime, stepSize float64) ([]StepResult, error) {
	if stepSize <= 0 {
		return nil, fmt.Errorf("step size must be positive, got %v", stepSize)
	}
	var results []StepResult
	for o.model.SimTime() < endTime {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		d := stepSize
		if remaining := endTime - o.model.SimTime(); remaining < d {
			d = remaining
		}
		result, err := o.Step(ctx, d)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
