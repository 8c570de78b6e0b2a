package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/hydrosim/penstock/internal/sim"
)

// TraceSnapshot is the JSON shape written to golden files: one entry
// per step, firings in sweep order. Struct field order keeps the
// serialization deterministic.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	RunToken     string         `json:"run_token,omitempty"`
	Steps        []StepSnapshot `json:"steps"`
}

// StepSnapshot is one orchestrator step in the golden trace.
type StepSnapshot struct {
	Index     int              `json:"index"`
	StartTime float64          `json:"start_time"`
	EndTime   float64          `json:"end_time"`
	Rewinds   int              `json:"rewinds"`
	Firings   []FiringSnapshot `json:"firings,omitempty"`
}

// FiringSnapshot is one control firing in the golden trace. Previous is
// omitted when the attribute had no value before the write.
type FiringSnapshot struct {
	Control   string   `json:"control"`
	Priority  int      `json:"priority"`
	Element   string   `json:"element"`
	Attribute string   `json:"attribute"`
	Value     float64  `json:"value"`
	Previous  *float64 `json:"previous,omitempty"`
}

// Snapshot converts step results into the golden trace shape.
func Snapshot(sc *Scenario, steps []sim.StepResult) TraceSnapshot {
	snap := TraceSnapshot{
		ScenarioName: sc.Name,
		RunToken:     sc.RunToken,
		Steps:        make([]StepSnapshot, 0, len(steps)),
	}
	for _, step := range steps {
		ss := StepSnapshot{
			Index:     step.Index,
			StartTime: step.StartTime,
			EndTime:   step.EndTime,
			Rewinds:   step.Rewinds,
		}
		for _, f := range step.Firings {
			fs := FiringSnapshot{
				Control:   f.Control,
				Priority:  int(f.Priority),
				Element:   f.Element,
				Attribute: f.Attribute,
				Value:     f.Value,
			}
			if f.PreviousKnown {
				prev := f.Previous
				fs.Previous = &prev
			}
			ss.Firings = append(ss.Firings, fs)
		}
		snap.Steps = append(snap.Steps, ss)
	}
	return snap
}

// RunWithGolden runs a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) (*Result, error) {
	t.Helper()

	res, err := RunScenario(context.Background(), sc)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, sc, res.Steps); err != nil {
		return nil, err
	}
	return res, nil
}

// AssertGolden compares an already-computed step trace against the
// scenario's golden file.
func AssertGolden(t *testing.T, sc *Scenario, steps []sim.StepResult) error {
	t.Helper()

	data, err := json.MarshalIndent(Snapshot(sc, steps), "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
	return nil
}
