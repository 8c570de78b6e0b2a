package network

import "fmt"

// link carries the state shared by every link kind.
type link struct {
	name    string
	start   string
	end     string
	status  LinkStatus
	flow    float64
	flowSet bool
}

func (l *link) Name() string           { return l.name }
func (l *link) StartNode() string      { return l.start }
func (l *link) EndNode() string        { return l.end }
func (l *link) Status() LinkStatus     { return l.status }
func (l *link) SetStatus(s LinkStatus) { l.status = s }

// Flow returns the solved flow rate, if the solver has produced one.
// Positive flow runs from the start node to the end node.
func (l *link) Flow() (float64, bool) { return l.flow, l.flowSet }

// SetFlow records a solved flow rate.
func (l *link) SetFlow(q float64) {
	l.flow = q
	l.flowSet = true
}

// Pipe is a passive link. A pipe constructed with a check valve forbids
// reverse flow; the enforcement lives in the controls layer.
type Pipe struct {
	link
	diameter   float64
	checkValve bool
}

// NewPipe creates an open pipe between two nodes.
func NewPipe(name, start, end string, diameter float64, checkValve bool) *Pipe {
	return &Pipe{
		link:       link{name: name, start: start, end: end, status: StatusOpen},
		diameter:   diameter,
		checkValve: checkValve,
	}
}

// CheckValve reports whether the pipe forbids reverse flow.
func (p *Pipe) CheckValve() bool { return p.checkValve }

// Diameter returns the pipe diameter.
func (p *Pipe) Diameter() float64 { return p.diameter }

func (p *Pipe) HasAttribute(attr string) bool {
	switch attr {
	case AttrStatus, AttrFlow, AttrDiameter:
		return true
	}
	return false
}

func (p *Pipe) Attribute(attr string) (float64, bool, error) {
	switch attr {
	case AttrStatus:
		return float64(p.status), true, nil
	case AttrFlow:
		return p.flow, p.flowSet, nil
	case AttrDiameter:
		return p.diameter, true, nil
	}
	return 0, false, unknownAttr(p.name, attr)
}

func (p *Pipe) SetAttribute(attr string, v float64) error {
	switch attr {
	case AttrStatus:
		s, err := statusFromFloat(v)
		if err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
		p.status = s
	case AttrFlow:
		p.SetFlow(v)
	case AttrDiameter:
		p.diameter = v
	default:
		return unknownAttr(p.name, attr)
	}
	return nil
}

// PumpType distinguishes how a pump's behavior is specified.
type PumpType int

const (
	// PumpTypeHead uses a head curve h = A - B*q^C.
	PumpTypeHead PumpType = iota
	// PumpTypePower uses a constant power rating.
	PumpTypePower
)

// Pump is an active link that adds head in the direction of flow.
type Pump struct {
	link
	pumpType PumpType
	setting  float64

	// Head curve coefficients, valid only for PumpTypeHead.
	curveA, curveB, curveC float64
}

// NewHeadPump creates a pump described by the head curve h = A - B*q^C.
func NewHeadPump(name, start, end string, a, b, c float64) *Pump {
	return &Pump{
		link:     link{name: name, start: start, end: end, status: StatusOpen},
		pumpType: PumpTypeHead,
		setting:  1.0,
		curveA:   a,
		curveB:   b,
		curveC:   c,
	}
}

// NewPowerPump creates a constant-power pump.
func NewPowerPump(name, start, end string) *Pump {
	return &Pump{
		link:     link{name: name, start: start, end: end, status: StatusOpen},
		pumpType: PumpTypePower,
		setting:  1.0,
	}
}

// Type returns the pump specification kind.
func (p *Pump) Type() PumpType { return p.pumpType }

// HeadCurveCoefficients returns (A, B, C) of the head curve. It is an error
// to ask a power pump for a head curve.
func (p *Pump) HeadCurveCoefficients() (a, b, c float64, err error) {
	if p.pumpType != PumpTypeHead {
		return 0, 0, 0, fmt.Errorf("%s: pump has no head curve", p.name)
	}
	return p.curveA, p.curveB, p.curveC, nil
}

func (p *Pump) HasAttribute(attr string) bool {
	switch attr {
	case AttrStatus, AttrFlow, AttrSetting:
		return true
	}
	return false
}

func (p *Pump) Attribute(attr string) (float64, bool, error) {
	switch attr {
	case AttrStatus:
		return float64(p.status), true, nil
	case AttrFlow:
		return p.flow, p.flowSet, nil
	case AttrSetting:
		return p.setting, true, nil
	}
	return 0, false, unknownAttr(p.name, attr)
}

func (p *Pump) SetAttribute(attr string, v float64) error {
	switch attr {
	case AttrStatus:
		s, err := statusFromFloat(v)
		if err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
		p.status = s
	case AttrFlow:
		p.SetFlow(v)
	case AttrSetting:
		p.setting = v
	default:
		return unknownAttr(p.name, attr)
	}
	return nil
}

// Valve is a pressure-reducing valve. Setting is the pressure head it
// maintains at its downstream node while active.
type Valve struct {
	link
	diameter float64
	setting  float64
}

// NewValve creates a PRV in the active state.
func NewValve(name, start, end string, diameter, setting float64) *Valve {
	return &Valve{
		link:     link{name: name, start: start, end: end, status: StatusActive},
		diameter: diameter,
		setting:  setting,
	}
}

// Diameter returns the valve diameter.
func (v *Valve) Diameter() float64 { return v.diameter }

// Setting returns the pressure setting.
func (v *Valve) Setting() float64 { return v.setting }

func (v *Valve) HasAttribute(attr string) bool {
	switch attr {
	case AttrStatus, AttrFlow, AttrSetting, AttrDiameter:
		return true
	}
	return false
}

func (v *Valve) Attribute(attr string) (float64, bool, error) {
	switch attr {
	case AttrStatus:
		return float64(v.status), true, nil
	case AttrFlow:
		return v.flow, v.flowSet, nil
	case AttrSetting:
		return v.setting, true, nil
	case AttrDiameter:
		return v.diameter, true, nil
	}
	return 0, false, unknownAttr(v.name, attr)
}

func (v *Valve) SetAttribute(attr string, val float64) error {
	switch attr {
	case AttrStatus:
		s, err := statusFromFloat(val)
		if err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
		v.status = s
	case AttrFlow:
		v.SetFlow(val)
	case AttrSetting:
		v.setting = val
	case AttrDiameter:
		v.diameter = val
	default:
		return unknownAttr(v.name, attr)
	}
	return nil
}
