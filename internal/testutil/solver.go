// Package testutil provides deterministic stand-ins for the solver and
// run-token collaborators, so control and orchestration tests are exact
// and repeatable.
package testutil

import (
	"context"

	"github.com/hydrosim/penstock/internal/network"
)

// ScriptedSolver runs caller-supplied hooks in place of a hydraulic
// solve. A nil hook is a no-op, so tests only script the phases they
// care about.
//
// Satisfies sim.Solver structurally; no import of the sim package is
// needed here.
type ScriptedSolver struct {
	OnSolve    func(ctx context.Context, m *network.Model) error
	OnRederive func(ctx context.Context, m *network.Model) error

	// Call counters, readable after the run.
	Solves    int
	Rederives int
}

func (s *ScriptedSolver) Solve(ctx context.Context, m *network.Model) error {
	s.Solves++
	if s.OnSolve == nil {
		return nil
	}
	return s.OnSolve(ctx, m)
}

func (s *ScriptedSolver) Rederive(ctx context.Context, m *network.Model) error {
	s.Rederives++
	if s.OnRederive == nil {
		return nil
	}
	return s.OnRederive(ctx, m)
}

// FixedTokenGenerator always returns the same run token, so traces from
// the same scenario are byte-identical across runs.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a generator for the given token. An
// empty token defaults to "test-run-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed run token.
func (g *FixedTokenGenerator) Generate() string { return g.token }
