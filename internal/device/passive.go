package device

import (
	"fmt"
	"math"
)

// twoTerminal is the shared stamp of R, C, L: ±1 in the node rows, ±1 on
// the terminal columns of the branch row, and one value-dependent
// coefficient on the branch diagonal, which is always the last entry.
func twoTerminal(p, n, b int, coef float64) []Entry {
	e := make([]Entry, 0, 5)
	e = terminalEntries(e, p, n, b, 1)
	e = branchEntries(e, b, p, n, 1)
	return append(e, Entry{Row: b, Col: b, Value: coef})
}

// Resistor is a linear resistor with one branch current unknown.
type Resistor struct {
	base
	port
	R       float64
	entries []Entry
}

func NewResistor(label string, p, n int, r float64, mode Mode, h float64) (*Resistor, error) {
	if err := checkValue(label, "resistance", r); err != nil {
		return nil, err
	}
	d := &Resistor{base: base{label: label, mode: mode, h: h}, port: port{p: p, n: n}, R: r}
	if err := checkCoefficient(label, d.coefficient()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Resistor) coefficient() float64 { return -d.R * d.mode.Scale(d.h) }

func (d *Resistor) Kind() Kind           { return KindResistor }
func (d *Resistor) Branches() int        { return 1 }
func (d *Resistor) Rows() []RowKind      { return []RowKind{RowResistor} }
func (d *Resistor) StepBack(x []float64) { d.commit(x, d.mode, d.h) }

func (d *Resistor) Bind(first int) {
	d.first = first
	d.entries = twoTerminal(d.p, d.n, first, d.coefficient())
}

func (d *Resistor) Stamp() []Entry { return d.entries }

func (d *Resistor) RHS(step int, out []float64) {
	out[0] = d.resistiveRHS(d.mode, d.h, 0)
}

func (d *Resistor) UpdateTimestep(factor float64) {
	d.h *= factor
	d.entries[len(d.entries)-1].Value = d.coefficient()
}

// Capacitor is a linear capacitor with one branch current unknown.
type Capacitor struct {
	base
	port
	C       float64
	entries []Entry
}

func NewCapacitor(label string, p, n int, c float64, mode Mode, h float64) (*Capacitor, error) {
	if err := checkValue(label, "capacitance", c); err != nil {
		return nil, err
	}
	d := &Capacitor{base: base{label: label, mode: mode, h: h}, port: port{p: p, n: n}, C: c}
	if err := checkCoefficient(label, d.coefficient()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Capacitor) coefficient() float64 {
	return -(2 * d.h / 3) / d.C * d.mode.Scale(d.h)
}

func (d *Capacitor) Kind() Kind           { return KindCapacitor }
func (d *Capacitor) Branches() int        { return 1 }
func (d *Capacitor) Rows() []RowKind      { return []RowKind{RowCapacitor} }
func (d *Capacitor) Stamp() []Entry       { return d.entries }
func (d *Capacitor) StepBack(x []float64) { d.commit(x, d.mode, d.h) }

func (d *Capacitor) Bind(first int) {
	d.first = first
	d.entries = twoTerminal(d.p, d.n, first, d.coefficient())
}

func (d *Capacitor) RHS(step int, out []float64) {
	out[0] = d.resistiveRHS(d.mode, d.h, d.v.bdf2())
}

func (d *Capacitor) UpdateTimestep(factor float64) {
	d.h *= factor
	d.entries[len(d.entries)-1].Value = d.coefficient()
}

type coupling struct {
	other *Inductor
	m     float64
}

// Inductor is a linear inductor with one branch current unknown. Mutual
// couplings add history terms of the coupled inductors to its RHS.
type Inductor struct {
	base
	port
	L         float64
	i         history
	couplings []coupling
	entries   []Entry
}

func NewInductor(label string, p, n int, l float64, mode Mode, h float64) (*Inductor, error) {
	if err := checkValue(label, "inductance", l); err != nil {
		return nil, err
	}
	d := &Inductor{base: base{label: label, mode: mode, h: h}, port: port{p: p, n: n}, L: l}
	if err := checkCoefficient(label, d.coefficient()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Inductor) coefficient() float64 {
	return -(3 * d.L) / (2 * d.h) * d.mode.Scale(d.h)
}

func (d *Inductor) Kind() Kind      { return KindInductor }
func (d *Inductor) Branches() int   { return 1 }
func (d *Inductor) Rows() []RowKind { return []RowKind{RowInductor} }
func (d *Inductor) Stamp() []Entry  { return d.entries }

func (d *Inductor) Bind(first int) {
	d.first = first
	d.entries = twoTerminal(d.p, d.n, first, d.coefficient())
}

func (d *Inductor) RHS(step int, out []float64) {
	v := -(d.L / (2 * d.h)) * (4*d.i.n1 - d.i.n2)
	for _, c := range d.couplings {
		v -= (c.m / (2 * d.h)) * (4*c.other.i.n1 - c.other.i.n2)
	}
	out[0] = d.resistiveRHS(d.mode, d.h, v)
}

func (d *Inductor) UpdateTimestep(factor float64) {
	d.h *= factor
	d.entries[len(d.entries)-1].Value = d.coefficient()
}

func (d *Inductor) StepBack(x []float64) {
	d.commit(x, d.mode, d.h)
	d.i.push(x[d.first])
}

// Mutual couples two inductors with M = K·√(L1·L2). It owns no unknown;
// it contributes the off-diagonal terms between the two branch rows.
type Mutual struct {
	base
	K      float64
	M      float64
	l1, l2 *Inductor
}

func NewMutual(label string, l1, l2 *Inductor, k float64, mode Mode, h float64) (*Mutual, error) {
	if err := checkValue(label, "coupling", k); err != nil {
		return nil, err
	}
	if math.Abs(k) > 1 {
		return nil, fmt.Errorf("%s: coupling %g outside [-1, 1]: %w", label, k, ErrSanity)
	}
	d := &Mutual{base: base{label: label, mode: mode, h: h}, K: k, M: k * math.Sqrt(l1.L*l2.L), l1: l1, l2: l2}
	if err := checkCoefficient(label, d.coefficient()); err != nil {
		return nil, err
	}
	l1.couplings = append(l1.couplings, coupling{other: l2, m: d.M})
	l2.couplings = append(l2.couplings, coupling{other: l1, m: d.M})
	return d, nil
}

func (d *Mutual) coefficient() float64 {
	return -(3 * d.M) / (2 * d.h) * d.mode.Scale(d.h)
}

func (d *Mutual) Kind() Kind                  { return KindMutual }
func (d *Mutual) Branches() int               { return 0 }
func (d *Mutual) Rows() []RowKind             { return nil }
func (d *Mutual) RHS(step int, out []float64) {}
func (d *Mutual) StepBack(x []float64)        {}

func (d *Mutual) Stamp() []Entry {
	c := d.coefficient()
	return []Entry{
		{Row: d.l1.first, Col: d.l2.first, Value: c},
		{Row: d.l2.first, Col: d.l1.first, Value: c},
	}
}

func (d *Mutual) UpdateTimestep(factor float64) { d.h *= factor }

// Inductors returns the coupled pair.
func (d *Mutual) Inductors() (*Inductor, *Inductor) { return d.l1, d.l2 }
