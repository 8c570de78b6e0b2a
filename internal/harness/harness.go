package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hydrosim/penstock/internal/controls"
	"github.com/hydrosim/penstock/internal/network"
	"github.com/hydrosim/penstock/internal/sim"
)

// Result carries everything a scenario run produced: the step trace,
// the change log, and the final model state for assertions.
type Result struct {
	Scenario *Scenario
	Model    *network.Model
	Steps    []sim.StepResult
	Log      *controls.ChangeLog
}

// RunOption adjusts how a scenario runs.
type RunOption func(*runConfig)

type runConfig struct {
	recorder sim.TraceRecorder
	logger   *slog.Logger
}

// WithTraceRecorder streams step results to a trace sink during the run.
func WithTraceRecorder(rec sim.TraceRecorder) RunOption {
	return func(c *runConfig) { c.recorder = rec }
}

// WithLogger routes run logging through the given logger.
func WithLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) { c.logger = l }
}

// RunScenario builds the scenario's model and controls, runs the
// orchestrator over the declared window, and checks the scenario's
// assertions against the result.
func RunScenario(ctx context.Context, sc *Scenario, opts ...RunOption) (*Result, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	m, err := BuildModel(sc)
	if err != nil {
		return nil, err
	}
	ctrls, err := BuildControls(m, sc)
	if err != nil {
		return nil, err
	}
	flows := make(map[string]float64, len(sc.Network.Links))
	for _, l := range sc.Network.Links {
		flows[l.Name] = l.Flow
	}
	solver := NewMassBalanceSolver(flows)

	var simOpts []sim.Option
	if cfg.recorder != nil {
		simOpts = append(simOpts, sim.WithRecorder(cfg.recorder))
	}
	if cfg.logger != nil {
		simOpts = append(simOpts, sim.WithLogger(cfg.logger))
	}
	orch := sim.New(m, solver, ctrls, simOpts...)

	steps, err := orch.Run(ctx, sc.Run.EndTime, sc.Run.StepSize)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	res := &Result{Scenario: sc, Model: m, Steps: steps, Log: orch.ChangeLog()}
	if err := CheckAssertions(res); err != nil {
		return nil, err
	}
	return res, nil
}

// BuildModel constructs the network model a scenario declares.
func BuildModel(sc *Scenario) (*network.Model, error) {
	m := network.NewModel(sc.StartClockTime)
	for _, n := range sc.Network.Nodes {
		var node network.Node
		switch n.Kind {
		case "reservoir":
			node = network.NewReservoir(n.Name, n.Head)
		case "tank":
			node = network.NewTank(n.Name, n.Elevation, n.Diameter, n.InitLevel)
		case "junction":
			node = network.NewJunction(n.Name, n.Elevation, n.Demand)
		default:
			return nil, fmt.Errorf("scenario %s: node %s: unknown kind %q", sc.Name, n.Name, n.Kind)
		}
		if err := m.AddNode(node); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
	}
	for _, l := range sc.Network.Links {
		var link network.Link
		switch l.Kind {
		case "pipe":
			link = network.NewPipe(l.Name, l.Start, l.End, l.Diameter, l.CheckValve)
		case "pump":
			if len(l.PumpCurve) == 3 {
				link = network.NewHeadPump(l.Name, l.Start, l.End, l.PumpCurve[0], l.PumpCurve[1], l.PumpCurve[2])
			} else {
				link = network.NewPowerPump(l.Name, l.Start, l.End)
			}
		case "valve":
			link = network.NewValve(l.Name, l.Start, l.End, l.Diameter, l.Setting)
		default:
			return nil, fmt.Errorf("scenario %s: link %s: unknown kind %q", sc.Name, l.Name, l.Kind)
		}
		if err := m.AddLink(link); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
	}
	return m, nil
}

// BuildControls constructs the scenario's controls against the model,
// preserving declaration order so firing order stays deterministic.
func BuildControls(m *network.Model, sc *Scenario) ([]controls.Control, error) {
	built := make([]controls.Control, 0, len(sc.Controls))
	for _, cs := range sc.Controls {
		c, err := buildControl(m, cs)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: control %s: %w", sc.Name, cs.Name, err)
		}
		built = append(built, c)
	}
	return built, nil
}

func buildControl(m *network.Model, cs ControlSpec) (controls.Control, error) {
	action, err := controls.NewAction(m, cs.Action.Target, cs.Action.Attribute, cs.Action.Value)
	if err != nil {
		return nil, err
	}
	switch cs.Kind {
	case "time":
		clock := controls.ClockSim
		switch cs.Clock {
		case "", "sim":
		case "shifted":
			clock = controls.ClockShifted
		default:
			return nil, fmt.Errorf("unknown clock %q", cs.Clock)
		}
		return controls.NewTimeControl(m, cs.Name, cs.RunAt, clock, cs.Daily, action)
	case "conditional":
		rel, err := controls.ParseRelation(cs.Relation)
		if err != nil {
			return nil, err
		}
		return controls.NewConditionalControl(m, cs.Name, cs.Source, cs.Attribute, rel, cs.Threshold, action)
	case "multi":
		sources := make([]controls.AttributeRef, 0, len(cs.Clauses))
		relations := make([]controls.Relation, 0, len(cs.Clauses))
		thresholds := make([]controls.Threshold, 0, len(cs.Clauses))
		for _, cl := range cs.Clauses {
			rel, err := controls.ParseRelation(cl.Relation)
			if err != nil {
				return nil, err
			}
			sources = append(sources, controls.AttributeRef{Element: cl.Element, Attribute: cl.Attribute})
			relations = append(relations, rel)
			if cl.ThresholdElement != "" {
				thresholds = append(thresholds, controls.RefThreshold(cl.ThresholdElement, cl.ThresholdAttribute))
			} else {
				thresholds = append(thresholds, controls.LiteralThreshold(cl.Threshold))
			}
		}
		return controls.NewMultiConditionalControl(m, cs.Name, sources, relations, thresholds, controls.Priority(cs.Priority), action)
	}
	return nil, fmt.Errorf("unknown control kind %q", cs.Kind)
}
