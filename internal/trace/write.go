package trace

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hydrosim/penstock/internal/sim"
)

// Run is a single simulation run being recorded. It implements
// sim.TraceRecorder; hand it to the orchestrator via sim.WithRecorder.
type Run struct {
	store *Store
	token string
}

// Token returns the run token.
func (r *Run) Token() string { return r.token }

// BeginRun registers a new run over the named scenario and returns its
// recorder.
func (s *Store) BeginRun(ctx context.Context, scenario string, gen TokenGenerator) (*Run, error) {
	token := gen.Generate()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (token, scenario) VALUES (?, ?)
	`, token, scenario)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return &Run{store: s, token: token}, nil
}

// RecordStep persists one step and its firings in one transaction.
// ON CONFLICT DO NOTHING makes re-recording a step idempotent, so a
// retried step never duplicates trace rows.
func (r *Run) RecordStep(ctx context.Context, result sim.StepResult) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO steps (run_token, step_index, start_time, end_time, rewinds)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, r.token, result.Index, result.StartTime, result.EndTime, result.Rewinds)
	if err != nil {
		return fmt.Errorf("record step %d: %w", result.Index, err)
	}

	for seq, firing := range result.Firings {
		previous := sql.NullFloat64{Float64: firing.Previous, Valid: firing.PreviousKnown}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO firings
			(run_token, step_index, seq, control, priority, element, attribute, value, previous)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, r.token, result.Index, seq, firing.Control, int(firing.Priority),
			firing.Element, firing.Attribute, firing.Value, previous)
		if err != nil {
			return fmt.Errorf("record firing %d/%d: %w", result.Index, seq, err)
		}
	}
	return tx.Commit()
}
