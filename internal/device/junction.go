package device

import (
	"fmt"
	"math"
)

// Region is the conduction region of a junction.
type Region int

const (
	Subgap Region = iota
	Transition
	Normal
)

func (r Region) String() string {
	switch r {
	case Subgap:
		return "subgap"
	case Transition:
		return "transition"
	case Normal:
		return "normal"
	}
	return fmt.Sprintf("Region(%d)", int(r))
}

const (
	DefaultGuessLimit = 1.0
	DefaultPhaseLimit = 1e12
	derivativeWarmup  = 3
)

// Junction is a resistively and capacitively shunted Josephson junction.
// It owns two branches: the quantity dual to the node unknowns (phase in
// voltage mode, voltage in phase mode) and the quasi-particle plus
// capacitive current. The super-current is injected into the node rows
// from the phase predicted at the previous step.
type Junction struct {
	base
	Model Model
	Area  float64

	// GuessLimit bounds the predicted junction voltage, PhaseLimit the
	// predicted phase.
	GuessLimit float64
	PhaseLimit float64

	p, n    int
	v, phi  history
	lowerB  float64
	upperB  float64
	gTrans  float64
	region  Region
	reff    float64
	iT      float64
	is      float64
	entries []Entry
	dual    int // entry index of the dual-variable coefficient
	dyn     int // entry index of the region-dependent coefficient
}

func NewJunction(label string, p, n int, model Model, area float64, mode Mode, h float64) (*Junction, error) {
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	m := model.Scaled(area, 0)
	d := &Junction{
		base:       base{label: label, mode: mode, h: h},
		Model:      m,
		Area:       area,
		GuessLimit: DefaultGuessLimit,
		PhaseLimit: DefaultPhaseLimit,
		p:          p,
		n:          n,
		lowerB:     m.VG - 0.5*m.DELV,
		upperB:     m.VG + 0.5*m.DELV,
		gTrans:     m.IC / (m.ICFact * m.DELV),
	}
	d.phi = history{n1: m.PHI, n2: m.PHI}
	d.region = Subgap
	if m.RType == 0 {
		d.region = Normal
	}
	g, _ := d.conductance(d.region, 0)
	d.reff = d.effective(g)
	d.is = m.SuperCurrent(m.PHI)
	if err := checkCoefficient(label, d.reff); err != nil {
		return nil, err
	}
	if err := checkCoefficient(label, d.dualCoefficient()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Junction) Kind() Kind    { return KindJunction }
func (d *Junction) Branches() int { return 2 }

func (d *Junction) Rows() []RowKind {
	if d.mode == Phase {
		return []RowKind{RowJunctionVoltage, RowJunctionCurrent}
	}
	return []RowKind{RowJunctionPhase, RowJunctionCurrent}
}

func (d *Junction) Terminals() (int, int) { return d.p, d.n }

// Injection returns the super-current computed at the end of the
// previous step.
func (d *Junction) Injection(step int) float64 { return d.is }

// Region returns the region selected at the last update.
func (d *Junction) Region() Region { return d.region }

// Conductance returns the stamped effective conductance 1/Reff.
func (d *Junction) Conductance() float64 { return 1 / d.reff }

func (d *Junction) dualCoefficient() float64 {
	if d.mode == Phase {
		return -2 * d.h / (3 * Sigma)
	}
	return -3 * Sigma / (2 * d.h)
}

func (d *Junction) effective(g float64) float64 {
	return 1 / (g + 3*d.Model.C/(2*d.h))
}

// Classify returns the region for a bias voltage.
func (d *Junction) Classify(v float64) Region {
	if d.Model.RType == 0 {
		return Normal
	}
	a := math.Abs(v)
	switch {
	case a < d.lowerB:
		return Subgap
	case a < d.upperB:
		return Transition
	default:
		return Normal
	}
}

// conductance returns the region's conductance and bias-current offset.
func (d *Junction) conductance(r Region, v float64) (float64, float64) {
	m := d.Model
	sign := 1.0
	if v < 0 {
		sign = -1
	}
	if m.RType == 0 {
		return 1 / m.RN, 0
	}
	switch r {
	case Transition:
		return d.gTrans, sign * d.lowerB * (1/m.R0 - d.gTrans)
	case Normal:
		return 1 / m.RN, sign * (m.IC/m.ICFact + m.VG/m.R0 - d.lowerB/m.RN)
	default:
		return 1 / m.R0, 0
	}
}

func (d *Junction) Bind(first int) {
	d.first = first
	b0, b1 := first, first+1
	e := make([]Entry, 0, 8)
	e = terminalEntries(e, d.p, d.n, b1, 1)
	e = branchEntries(e, b0, d.p, d.n, 1)
	e = append(e, Entry{Row: b0, Col: b0, Value: d.dualCoefficient()})
	d.dual = len(e) - 1
	if d.mode == Phase {
		e = append(e, Entry{Row: b1, Col: b0, Value: 1})
	} else {
		e = branchEntries(e, b1, d.p, d.n, 1)
	}
	e = append(e, Entry{Row: b1, Col: b1, Value: -d.reff})
	d.dyn = len(e) - 1
	d.entries = e
}

func (d *Junction) Stamp() []Entry { return d.entries }

func (d *Junction) RHS(step int, out []float64) {
	if d.mode == Phase {
		out[0] = d.phi.bdf2()
	} else {
		out[0] = -(3 * Sigma / (2 * d.h)) * d.phi.bdf2()
	}
	c := d.Model.C / (2 * d.h)
	out[1] = -d.reff * (d.iT - c*(4*d.v.n1-d.v.n2))
}

// Values returns the junction voltage and phase held in a solution vector.
func (d *Junction) Values(x []float64) (float64, float64) {
	if d.mode == Phase {
		return x[d.first], diff(x, d.p, d.n)
	}
	return diff(x, d.p, d.n), x[d.first]
}

// Update predicts the next junction voltage, selects the conduction
// region for it and evaluates the super-current at the predicted phase.
func (d *Junction) Update(step int, x []float64) (bool, error) {
	v, phi := d.Values(x)

	var dv float64
	if step > derivativeWarmup {
		dv = (3*v - 4*d.v.n1 + d.v.n2) / (2 * d.h)
	}
	v0 := v + d.h*dv
	if math.IsNaN(v0) || math.IsInf(v0, 0) || math.Abs(v0) > d.GuessLimit {
		return false, fmt.Errorf("%s: predicted voltage %g at step %d: %w", d.label, v0, step, ErrGuessTooLarge)
	}

	region := d.Classify(v0)
	g, iT := d.conductance(region, v0)
	reff := d.effective(g)
	changed := reff != d.reff
	if changed {
		d.reff = reff
		d.entries[d.dyn].Value = -reff
	}
	d.region = region
	d.iT = iT

	phi0 := (4*phi-d.phi.n1)/3 + (2*d.h/(3*Sigma))*v0
	if math.IsNaN(phi0) || math.IsInf(phi0, 0) || math.Abs(phi0) > d.PhaseLimit {
		return changed, fmt.Errorf("%s: predicted phase %g at step %d: %w", d.label, phi0, step, ErrGuessTooLarge)
	}
	d.is = d.Model.SuperCurrent(phi0)
	return changed, nil
}

// SetRegion forces a conduction region, rewriting the stamped coefficient.
func (d *Junction) SetRegion(r Region) {
	d.region = r
	g, iT := d.conductance(r, 1)
	d.iT = iT
	d.reff = d.effective(g)
	if d.entries != nil {
		d.entries[d.dyn].Value = -d.reff
	}
}

func (d *Junction) UpdateTimestep(factor float64) {
	d.h *= factor
	g, _ := d.conductance(d.region, 1)
	d.reff = d.effective(g)
	d.entries[d.dual].Value = d.dualCoefficient()
	d.entries[d.dyn].Value = -d.reff
}

func (d *Junction) StepBack(x []float64) {
	v, phi := d.Values(x)
	d.v.push(v)
	d.phi.push(phi)
}

// Voltage and Phase return the last committed values.
func (d *Junction) Voltage() float64 { return d.v.n1 }
func (d *Junction) Phase() float64   { return d.phi.n1 }
