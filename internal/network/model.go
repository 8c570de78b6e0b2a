package network

import "fmt"

// Model holds the network elements and the simulation time cursors.
//
// Time is tracked as two cursors per clock: the current simulated time and
// the previous one, i.e. the boundaries of the step in progress. The shifted
// clock is the simulated clock offset by the start-of-day clock time, so
// time-of-day conditions see wall-clock seconds.
//
// The Model is not safe for concurrent use: one simulation step is one
// ordered sequence of calls (see internal/sim).
type Model struct {
	nodes     map[string]Node
	links     map[string]Link
	nodeOrder []string
	linkOrder []string

	startClockTime float64
	simTime        float64
	prevSimTime    float64
}

// NewModel creates an empty model. startClockTime is the wall-clock time of
// day, in seconds since midnight, at which the simulation begins.
func NewModel(startClockTime float64) *Model {
	return &Model{
		nodes:          make(map[string]Node),
		links:          make(map[string]Link),
		startClockTime: startClockTime,
	}
}

// AddNode registers a node. Node and link names share one namespace so the
// control layer can address any element by name alone.
func (m *Model) AddNode(n Node) error {
	if err := m.checkName(n.Name()); err != nil {
		return err
	}
	m.nodes[n.Name()] = n
	m.nodeOrder = append(m.nodeOrder, n.Name())
	return nil
}

// AddLink registers a link. Both end nodes must already exist.
func (m *Model) AddLink(l Link) error {
	if err := m.checkName(l.Name()); err != nil {
		return err
	}
	if _, ok := m.nodes[l.StartNode()]; !ok {
		return fmt.Errorf("link %s: start node %q: %w", l.Name(), l.StartNode(), ErrElementNotFound)
	}
	if _, ok := m.nodes[l.EndNode()]; !ok {
		return fmt.Errorf("link %s: end node %q: %w", l.Name(), l.EndNode(), ErrElementNotFound)
	}
	m.links[l.Name()] = l
	m.linkOrder = append(m.linkOrder, l.Name())
	return nil
}

func (m *Model) checkName(name string) error {
	if name == "" {
		return fmt.Errorf("element name must not be empty")
	}
	if _, ok := m.nodes[name]; ok {
		return fmt.Errorf("duplicate element name %q", name)
	}
	if _, ok := m.links[name]; ok {
		return fmt.Errorf("duplicate element name %q", name)
	}
	return nil
}

// Node looks up a node by name.
func (m *Model) Node(name string) (Node, bool) {
	n, ok := m.nodes[name]
	return n, ok
}

// Link looks up a link by name.
func (m *Model) Link(name string) (Link, bool) {
	l, ok := m.links[name]
	return l, ok
}

// Element looks up any element by name, nodes first.
func (m *Model) Element(name string) (Element, error) {
	if n, ok := m.nodes[name]; ok {
		return n, nil
	}
	if l, ok := m.links[name]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrElementNotFound)
}

// Nodes returns the nodes in registration order.
func (m *Model) Nodes() []Node {
	out := make([]Node, 0, len(m.nodeOrder))
	for _, name := range m.nodeOrder {
		out = append(out, m.nodes[name])
	}
	return out
}

// Links returns the links in registration order.
func (m *Model) Links() []Link {
	out := make([]Link, 0, len(m.linkOrder))
	for _, name := range m.linkOrder {
		out = append(out, m.links[name])
	}
	return out
}

// SimTime is the current simulated time in seconds since run start.
func (m *Model) SimTime() float64 { return m.simTime }

// PrevSimTime is the simulated time at the start of the step in progress.
func (m *Model) PrevSimTime() float64 { return m.prevSimTime }

// ShiftedTime is SimTime offset by the start-of-day clock time.
func (m *Model) ShiftedTime() float64 { return m.simTime + m.startClockTime }

// PrevShiftedTime is PrevSimTime offset by the start-of-day clock time.
func (m *Model) PrevShiftedTime() float64 { return m.prevSimTime + m.startClockTime }

// StartClockTime returns the configured start-of-day offset.
func (m *Model) StartClockTime() float64 { return m.startClockTime }

// StepDuration is the length of the step in progress.
func (m *Model) StepDuration() float64 { return m.simTime - m.prevSimTime }

// AdvanceClock opens a new step of the given duration: the current time
// becomes the previous time and the cursor moves forward.
func (m *Model) AdvanceClock(duration float64) error {
	if duration <= 0 {
		return fmt.Errorf("step duration must be positive, got %v", duration)
	}
	m.prevSimTime = m.simTime
	m.simTime += duration
	return nil
}

// Rewind shortens the step in progress by the given number of seconds, so
// the step lands exactly on an event boundary. The shortened step must keep
// a positive duration.
func (m *Model) Rewind(seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("rewind must be positive, got %d", seconds)
	}
	shortened := m.simTime - float64(seconds)
	if shortened <= m.prevSimTime {
		return fmt.Errorf("rewind of %ds would erase the step (%v -> %v)",
			seconds, m.prevSimTime, m.simTime)
	}
	m.simTime = shortened
	return nil
}
