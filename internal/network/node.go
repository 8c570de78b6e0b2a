package network

// Junction is a demand node.
type Junction struct {
	name      string
	elevation float64
	demand    float64
	head      float64
	headSet   bool
}

// NewJunction creates a junction at the given elevation with a base demand.
func NewJunction(name string, elevation, demand float64) *Junction {
	return &Junction{name: name, elevation: elevation, demand: demand}
}

func (j *Junction) Name() string { return j.name }

// Head returns the solved hydraulic head, if the solver has produced one.
func (j *Junction) Head() (float64, bool) { return j.head, j.headSet }

// SetHead records a solved head.
func (j *Junction) SetHead(h float64) {
	j.head = h
	j.headSet = true
}

func (j *Junction) HasAttribute(attr string) bool {
	switch attr {
	case AttrHead, AttrElevation, AttrDemand:
		return true
	}
	return false
}

func (j *Junction) Attribute(attr string) (float64, bool, error) {
	switch attr {
	case AttrHead:
		return j.head, j.headSet, nil
	case AttrElevation:
		return j.elevation, true, nil
	case AttrDemand:
		return j.demand, true, nil
	}
	return 0, false, unknownAttr(j.name, attr)
}

func (j *Junction) SetAttribute(attr string, v float64) error {
	switch attr {
	case AttrHead:
		j.SetHead(v)
	case AttrElevation:
		j.elevation = v
	case AttrDemand:
		j.demand = v
	default:
		return unknownAttr(j.name, attr)
	}
	return nil
}

// Reservoir is a fixed-head source node.
type Reservoir struct {
	name string
	head float64
}

// NewReservoir creates a reservoir with a fixed head.
func NewReservoir(name string, head float64) *Reservoir {
	return &Reservoir{name: name, head: head}
}

func (r *Reservoir) Name() string { return r.name }

func (r *Reservoir) Head() (float64, bool) { return r.head, true }

func (r *Reservoir) HasAttribute(attr string) bool {
	return attr == AttrHead
}

func (r *Reservoir) Attribute(attr string) (float64, bool, error) {
	if attr == AttrHead {
		return r.head, true, nil
	}
	return 0, false, unknownAttr(r.name, attr)
}

func (r *Reservoir) SetAttribute(attr string, v float64) error {
	if attr != AttrHead {
		return unknownAttr(r.name, attr)
	}
	r.head = v
	return nil
}

// Tank is a cylindrical storage node. Level is derived from head and
// elevation; writing either keeps the other consistent.
type Tank struct {
	name      string
	elevation float64
	diameter  float64
	head      float64

	prevDemand    float64
	prevDemandSet bool
}

// NewTank creates a tank with the given base elevation, diameter and
// initial water level above the base.
func NewTank(name string, elevation, diameter, initLevel float64) *Tank {
	return &Tank{
		name:      name,
		elevation: elevation,
		diameter:  diameter,
		head:      elevation + initLevel,
	}
}

func (t *Tank) Name() string { return t.name }

func (t *Tank) Head() (float64, bool) { return t.head, true }

// SetHead sets the water surface head directly.
func (t *Tank) SetHead(h float64) { t.head = h }

// Level is the water depth above the tank base.
func (t *Tank) Level() float64 { return t.head - t.elevation }

// Diameter returns the tank diameter.
func (t *Tank) Diameter() float64 { return t.diameter }

// Elevation returns the tank base elevation.
func (t *Tank) Elevation() float64 { return t.elevation }

// PrevDemand is the net inflow of the previous step, used by presolve
// tank-level extrapolation. It is unset until the first solve completes.
func (t *Tank) PrevDemand() (float64, bool) { return t.prevDemand, t.prevDemandSet }

// SetPrevDemand records the net inflow of the step that just completed.
func (t *Tank) SetPrevDemand(q float64) {
	t.prevDemand = q
	t.prevDemandSet = true
}

func (t *Tank) HasAttribute(attr string) bool {
	switch attr {
	case AttrHead, AttrLevel, AttrElevation, AttrDiameter, AttrPrevDemand:
		return true
	}
	return false
}

func (t *Tank) Attribute(attr string) (float64, bool, error) {
	switch attr {
	case AttrHead:
		return t.head, true, nil
	case AttrLevel:
		return t.Level(), true, nil
	case AttrElevation:
		return t.elevation, true, nil
	case AttrDiameter:
		return t.diameter, true, nil
	case AttrPrevDemand:
		return t.prevDemand, t.prevDemandSet, nil
	}
	return 0, false, unknownAttr(t.name, attr)
}

func (t *Tank) SetAttribute(attr string, v float64) error {
	switch attr {
	case AttrHead:
		t.head = v
	case AttrLevel:
		t.head = t.elevation + v
	case AttrElevation:
		t.elevation = v
	case AttrDiameter:
		t.diameter = v
	case AttrPrevDemand:
		t.SetPrevDemand(v)
	default:
		return unknownAttr(t.name, attr)
	}
	return nil
}
