package harness

import (
	"context"
	"fmt"
	"math"

	"github.com/hydrosim/penstock/internal/network"
)

// MassBalanceSolver is the scenario hydraulic stand-in. It assigns each
// open link its declared flow (closed links carry zero), sets junction
// heads to their elevations, and integrates tank heads from the net
// inflow over the step. That is enough physics for controls to observe
// flows, heads, and levels without a real solver in the loop.
type MassBalanceSolver struct {
	flows map[string]float64
}

// NewMassBalanceSolver builds a solver over the given per-link flow
// assignments, keyed by link name.
func NewMassBalanceSolver(flows map[string]float64) *MassBalanceSolver {
	f := make(map[string]float64, len(flows))
	for name, q := range flows {
		f[name] = q
	}
	return &MassBalanceSolver{flows: f}
}

// Solve assigns flows, sets junction heads, and advances tank heads by
// one step of net-inflow integration.
func (s *MassBalanceSolver) Solve(ctx context.Context, m *network.Model) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.assignFlows(m)
	for _, n := range m.Nodes() {
		switch node := n.(type) {
		case *network.Junction:
			elev, _, err := node.Attribute(network.AttrElevation)
			if err != nil {
				return fmt.Errorf("solve %s: %w", node.Name(), err)
			}
			node.SetHead(elev)
		case *network.Tank:
			if err := s.integrateTank(m, node); err != nil {
				return err
			}
		}
	}
	return nil
}

// Rederive reassigns link flows so closed links stop carrying flow, but
// leaves heads alone. Tank integration happens once per step, in Solve.
func (s *MassBalanceSolver) Rederive(ctx context.Context, m *network.Model) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.assignFlows(m)
	return nil
}

func (s *MassBalanceSolver) assignFlows(m *network.Model) {
	for _, l := range m.Links() {
		q := s.flows[l.Name()]
		if l.Status() == network.StatusClosed {
			q = 0
		}
		l.SetFlow(q)
	}
}

// integrateTank advances the tank head by the level change a constant
// net inflow produces over the step and records the inflow sample the
// presolve extrapolation reads.
func (s *MassBalanceSolver) integrateTank(m *network.Model, t *network.Tank) error {
	qnet := 0.0
	for _, l := range m.Links() {
		if l.Status() == network.StatusClosed {
			continue
		}
		q := s.flows[l.Name()]
		if l.EndNode() == t.Name() {
			qnet += q
		}
		if l.StartNode() == t.Name() {
			qnet -= q
		}
	}
	dt := m.StepDuration()
	if dt > 0 {
		head, _ := t.Head()
		area := math.Pi * t.Diameter() * t.Diameter() / 4.0
		t.SetHead(head + qnet*dt/area)
	}
	t.SetPrevDemand(qnet)
	return nil
}
