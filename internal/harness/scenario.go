package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a network, its controls, a
// run window, and assertions over the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario pins down.
	Description string `yaml:"description,omitempty"`

	// StartClockTime is the wall-clock time of day, in seconds since
	// midnight, at which the simulation begins.
	StartClockTime float64 `yaml:"start_clock_time,omitempty"`

	// RunToken is the fixed trace token for deterministic golden
	// comparison. Empty defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`

	Network  NetworkSpec   `yaml:"network"`
	Controls []ControlSpec `yaml:"controls,omitempty"`
	Run      RunSpec       `yaml:"run"`

	// Assertions validate the trace and final state. Supported types:
	// firing_count, fired_at, firing_order, final_value.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// NetworkSpec declares the nodes and links of the scenario network.
type NetworkSpec struct {
	Nodes []NodeSpec `yaml:"nodes"`
	Links []LinkSpec `yaml:"links,omitempty"`
}

// NodeSpec declares one node. Kind selects which fields apply:
// reservoir (head), tank (elevation, diameter, init_level), junction
// (elevation, demand).
type NodeSpec struct {
	Name      string  `yaml:"name"`
	Kind      string  `yaml:"kind"`
	Head      float64 `yaml:"head,omitempty"`
	Elevation float64 `yaml:"elevation,omitempty"`
	Diameter  float64 `yaml:"diameter,omitempty"`
	InitLevel float64 `yaml:"init_level,omitempty"`
	Demand    float64 `yaml:"demand,omitempty"`
}

// LinkSpec declares one link. Flow is the rate the mass-balance solver
// assigns while the link is open; a closed link carries zero.
type LinkSpec struct {
	Name       string  `yaml:"name"`
	Kind       string  `yaml:"kind"` // pipe, pump, valve
	Start      string  `yaml:"start"`
	End        string  `yaml:"end"`
	Diameter   float64 `yaml:"diameter,omitempty"`
	CheckValve bool    `yaml:"check_valve,omitempty"`
	Setting    float64 `yaml:"setting,omitempty"`
	Flow       float64 `yaml:"flow,omitempty"`

	// PumpCurve holds the head-curve coefficients (A, B, C). Empty
	// means a constant-power pump.
	PumpCurve []float64 `yaml:"pump_curve,omitempty"`
}

// ActionSpec declares the attribute write a control performs.
type ActionSpec struct {
	Target    string  `yaml:"target"`
	Attribute string  `yaml:"attribute"`
	Value     float64 `yaml:"value"`
}

// ClauseSpec is one term of a multi-conditional control. Exactly one of
// Threshold or ThresholdElement/ThresholdAttribute applies.
type ClauseSpec struct {
	Element            string  `yaml:"element"`
	Attribute          string  `yaml:"attribute"`
	Relation           string  `yaml:"relation"`
	Threshold          float64 `yaml:"threshold,omitempty"`
	ThresholdElement   string  `yaml:"threshold_element,omitempty"`
	ThresholdAttribute string  `yaml:"threshold_attribute,omitempty"`
}

// ControlSpec declares one control. Kind selects the variant and which
// fields apply: time (run_at, clock, daily), conditional (source,
// attribute, relation, threshold), multi (clauses, priority).
type ControlSpec struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`

	RunAt float64 `yaml:"run_at,omitempty"`
	Clock string  `yaml:"clock,omitempty"` // sim (default) or shifted
	Daily bool    `yaml:"daily,omitempty"`

	Source    string  `yaml:"source,omitempty"`
	Attribute string  `yaml:"attribute,omitempty"`
	Relation  string  `yaml:"relation,omitempty"`
	Threshold float64 `yaml:"threshold,omitempty"`

	Clauses  []ClauseSpec `yaml:"clauses,omitempty"`
	Priority int          `yaml:"priority,omitempty"`

	Action ActionSpec `yaml:"action"`
}

// RunSpec declares the run window.
type RunSpec struct {
	EndTime  float64 `yaml:"end_time"`
	StepSize float64 `yaml:"step_size"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	Type string `yaml:"type"`

	Control  string   `yaml:"control,omitempty"`
	Count    int      `yaml:"count,omitempty"`
	Time     float64  `yaml:"time,omitempty"`
	Controls []string `yaml:"controls,omitempty"`

	Element   string  `yaml:"element,omitempty"`
	Attribute string  `yaml:"attribute,omitempty"`
	Value     float64 `yaml:"value,omitempty"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks the scenario's structural invariants before any model
// building happens, so errors name the scenario field at fault.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Network.Nodes) == 0 {
		return fmt.Errorf("network needs at least one node")
	}
	for _, n := range s.Network.Nodes {
		switch n.Kind {
		case "reservoir", "tank", "junction":
		default:
			return fmt.Errorf("node %s: unknown kind %q", n.Name, n.Kind)
		}
	}
	for _, l := range s.Network.Links {
		switch l.Kind {
		case "pipe", "pump", "valve":
		default:
			return fmt.Errorf("link %s: unknown kind %q", l.Name, l.Kind)
		}
	}
	for _, c := range s.Controls {
		switch c.Kind {
		case "time", "conditional", "multi":
		default:
			return fmt.Errorf("control %s: unknown kind %q", c.Name, c.Kind)
		}
		if c.Name == "" {
			return fmt.Errorf("control of kind %q has no name", c.Kind)
		}
	}
	if s.Run.EndTime <= 0 {
		return fmt.Errorf("run.end_time must be positive")
	}
	if s.Run.StepSize <= 0 {
		return fmt.Errorf("run.step_size must be positive")
	}
	for _, a := range s.Assertions {
		switch a.Type {
		case "firing_count", "fired_at", "firing_order", "final_value":
		default:
			return fmt.Errorf("unknown assertion type %q", a.Type)
		}
	}
	return nil
}
