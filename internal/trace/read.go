package trace

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// RunRecord is one row of the runs table.
type RunRecord struct {
	Token     string
	Scenario  string
	StartedAt string
}

// StepRecord is one recorded step boundary.
type StepRecord struct {
	Index     int
	StartTime float64
	EndTime   float64
	Rewinds   int
}

// FiringRecord is one recorded control firing.
type FiringRecord struct {
	StepIndex int
	Seq       int
	Control   string
	Priority  int
	Element   string
	Attribute string
	Value     float64
	// Previous is invalid when the attribute had no value before the
	// firing wrote it.
	Previous sql.NullFloat64
}

// FiringFilter narrows a firing query. The zero value matches every
// firing; set ByPriority to filter on Priority, since level 0 is a
// legitimate priority.
type FiringFilter struct {
	Control    string
	Element    string
	Priority   int
	ByPriority bool
}

// Runs lists recorded runs, newest token first. UUIDv7 tokens sort by
// start time, so token order is start order.
func (s *Store) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, scenario, started_at FROM runs ORDER BY token DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.Token, &r.Scenario, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Steps returns the steps of a run in step order.
func (s *Store) Steps(ctx context.Context, runToken string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step_index, start_time, end_time, rewinds
		FROM steps WHERE run_token = ? ORDER BY step_index
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var st StepRecord
		if err := rows.Scan(&st.Index, &st.StartTime, &st.EndTime, &st.Rewinds); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// Firings returns the firings of a run matching the filter, ordered by
// step then firing sequence. All filter values are parameterized, never
// interpolated.
func (s *Store) Firings(ctx context.Context, runToken string, filter FiringFilter) ([]FiringRecord, error) {
	query, params := compileFiringQuery(runToken, filter)

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list firings: %w", err)
	}
	defer rows.Close()

	var firings []FiringRecord
	for rows.Next() {
		var f FiringRecord
		if err := rows.Scan(&f.StepIndex, &f.Seq, &f.Control, &f.Priority,
			&f.Element, &f.Attribute, &f.Value, &f.Previous); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		firings = append(firings, f)
	}
	return firings, rows.Err()
}

// compileFiringQuery builds the parameterized firing select. The ORDER BY
// is unconditional so results are deterministic.
func compileFiringQuery(runToken string, filter FiringFilter) (string, []any) {
	where := []string{"run_token = ?"}
	params := []any{runToken}

	if filter.Control != "" {
		where = append(where, "control = ?")
		params = append(params, filter.Control)
	}
	if filter.Element != "" {
		where = append(where, "element = ?")
		params = append(params, filter.Element)
	}
	if filter.ByPriority {
		where = append(where, "priority = ?")
		params = append(params, filter.Priority)
	}

	query := fmt.Sprintf(`
		SELECT step_index, seq, control, priority, element, attribute, value, previous
		FROM firings WHERE %s ORDER BY step_index, seq
	`, strings.Join(where, " AND "))
	return query, params
}
