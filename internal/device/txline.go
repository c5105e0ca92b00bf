package device

import (
	"fmt"
	"math"
)

// delayLine holds the last k samples of a quantity.
type delayLine struct {
	buf   []float64
	count int
}

func newDelayLine(k int) *delayLine { return &delayLine{buf: make([]float64, k)} }

func (d *delayLine) push(v float64) {
	d.buf[d.count%len(d.buf)] = v
	d.count++
}

// delayed returns the sample pushed k pushes ago, and false while fewer
// than k samples exist.
func (d *delayLine) delayed() (float64, bool) {
	if d.count < len(d.buf) {
		return 0, false
	}
	return d.buf[d.count%len(d.buf)], true
}

// TxLine is a lossless two-port transmission line. Each port is a
// resistive branch of impedance Z0 whose RHS carries the wave arriving
// from the other port, launched K steps earlier.
type TxLine struct {
	base
	port1, port2 port
	Z0           float64
	TD           float64
	K            int

	v1, i1, v2, i2 *delayLine
	entries        []Entry
	c1, c2         int
}

func NewTxLine(label string, p1, n1, p2, n2 int, z0, td float64, mode Mode, h float64) (*TxLine, error) {
	if err := checkValue(label, "impedance", z0); err != nil {
		return nil, err
	}
	if err := checkValue(label, "delay", td); err != nil {
		return nil, err
	}
	k := int(math.Round(td / h))
	if k < 1 {
		return nil, fmt.Errorf("%s: delay %g shorter than half a step: %w", label, td, ErrSanity)
	}
	d := &TxLine{
		base:  base{label: label, mode: mode, h: h},
		port1: port{p: p1, n: n1},
		port2: port{p: p2, n: n2},
		Z0:    z0,
		TD:    td,
		K:     k,
		v1:    newDelayLine(k),
		i1:    newDelayLine(k),
		v2:    newDelayLine(k),
		i2:    newDelayLine(k),
	}
	if err := checkCoefficient(label, d.coefficient()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *TxLine) coefficient() float64 { return -d.Z0 * d.mode.Scale(d.h) }

func (d *TxLine) Kind() Kind      { return KindTxLine }
func (d *TxLine) Branches() int   { return 2 }
func (d *TxLine) Rows() []RowKind { return []RowKind{RowTxLine, RowTxLine} }
func (d *TxLine) Stamp() []Entry  { return d.entries }

func (d *TxLine) Bind(first int) {
	d.first = first
	b1, b2 := first, first+1
	e := make([]Entry, 0, 10)
	e = terminalEntries(e, d.port1.p, d.port1.n, b1, 1)
	e = branchEntries(e, b1, d.port1.p, d.port1.n, 1)
	e = append(e, Entry{Row: b1, Col: b1, Value: d.coefficient()})
	d.c1 = len(e) - 1
	e = terminalEntries(e, d.port2.p, d.port2.n, b2, 1)
	e = branchEntries(e, b2, d.port2.p, d.port2.n, 1)
	e = append(e, Entry{Row: b2, Col: b2, Value: d.coefficient()})
	d.c2 = len(e) - 1
	d.entries = e
}

// Reflected returns the voltage-mode wave terms entering port 1 and port 2
// at the current step: V(i−K) + Z0·I(i−K) of the opposite port, or zero
// before K steps have been committed.
func (d *TxLine) Reflected() (float64, float64) {
	var r1, r2 float64
	if v, ok := d.v2.delayed(); ok {
		i, _ := d.i2.delayed()
		r1 = v + d.Z0*i
	}
	if v, ok := d.v1.delayed(); ok {
		i, _ := d.i1.delayed()
		r2 = v + d.Z0*i
	}
	return r1, r2
}

func (d *TxLine) RHS(step int, out []float64) {
	r1, r2 := d.Reflected()
	out[0] = d.port1.resistiveRHS(d.mode, d.h, r1)
	out[1] = d.port2.resistiveRHS(d.mode, d.h, r2)
}

func (d *TxLine) UpdateTimestep(factor float64) {
	d.h *= factor
	d.entries[d.c1].Value = d.coefficient()
	d.entries[d.c2].Value = d.coefficient()
}

func (d *TxLine) StepBack(x []float64) {
	d.port1.commit(x, d.mode, d.h)
	d.port2.commit(x, d.mode, d.h)
	d.v1.push(d.port1.v.n1)
	d.i1.push(x[d.first])
	d.v2.push(d.port2.v.n1)
	d.i2.push(x[d.first+1])
}

// Ports returns p1, n1, p2, n2.
func (d *TxLine) Ports() [4]int {
	return [4]int{d.port1.p, d.port1.n, d.port2.p, d.port2.n}
}
