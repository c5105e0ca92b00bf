package device

import (
	"errors"
	"fmt"
	"math"
)

// Ground is the terminal index of the reference node.
const Ground = -1

// Mode selects the formulation of node unknowns.
type Mode int

const (
	Voltage Mode = iota
	Phase
)

func (m Mode) String() string {
	switch m {
	case Voltage:
		return "voltage"
	case Phase:
		return "phase"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "voltage"/"v" and "phase"/"p".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "voltage", "v", "V", "":
		return Voltage, nil
	case "phase", "p", "P":
		return Phase, nil
	}
	return Voltage, fmt.Errorf("unknown analysis mode %q", s)
}

// Scale is the factor applied to a voltage-mode resistive coefficient and
// its RHS to obtain the phase-mode row: 1 in voltage mode, 2h/(3σ) in phase
// mode.
func (m Mode) Scale(h float64) float64 {
	if m == Phase {
		return 2 * h / (3 * Sigma)
	}
	return 1
}

// Kind tags the closed set of element kinds.
type Kind int

const (
	KindResistor Kind = iota
	KindCapacitor
	KindInductor
	KindMutual
	KindJunction
	KindVoltageSource
	KindCurrentSource
	KindPhaseSource
	KindCCCS
	KindCCVS
	KindVCCS
	KindVCVS
	KindTxLine
)

var kindNames = map[Kind]string{
	KindResistor:      "resistor",
	KindCapacitor:     "capacitor",
	KindInductor:      "inductor",
	KindMutual:        "mutual",
	KindJunction:      "jj",
	KindVoltageSource: "vsource",
	KindCurrentSource: "isource",
	KindPhaseSource:   "psource",
	KindCCCS:          "cccs",
	KindCCVS:          "ccvs",
	KindVCCS:          "vccs",
	KindVCVS:          "vcvs",
	KindTxLine:        "tline",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a kind name to its tag.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown element kind %q", s)
}

// RowKind describes what a companion row computes.
type RowKind int

const (
	RowNode RowKind = iota
	RowResistor
	RowCapacitor
	RowInductor
	RowVoltageSource
	RowPhaseSource
	RowJunctionPhase
	RowJunctionVoltage
	RowJunctionCurrent
	RowControl
	RowCCVS
	RowVCCS
	RowVCVS
	RowTxLine
)

// Entry is one matrix contribution.
type Entry struct {
	Row   int
	Col   int
	Value float64
}

// Device is the stamping contract shared by every element.
type Device interface {
	Label() string
	Kind() Kind
	// Branches is the number of branch unknowns, and companion rows, owned.
	Branches() int
	// Bind assigns the index of the first owned branch unknown.
	Bind(first int)
	// Stamp returns the contributions at the current timestep. The number
	// and positions of entries never change after Bind.
	Stamp() []Entry
	Rows() []RowKind
	// RHS writes one value per owned row for the given step.
	RHS(step int, out []float64)
	UpdateTimestep(factor float64)
	// StepBack commits the solved unknowns of the finished step and
	// rotates history by one sample.
	StepBack(x []float64)
}

// Injector is implemented by devices that drive current into node rows
// instead of owning a branch: independent current sources, junction
// super-currents and resistor noise. The current flows from p to n
// through the device.
type Injector interface {
	Device
	Terminals() (p, n int)
	Injection(step int) float64
}

// Nonlinear is implemented by devices whose stamped values depend on the
// solution. Update runs after each solve, before StepBack, and reports
// whether any stamped value changed.
type Nonlinear interface {
	Device
	Update(step int, x []float64) (bool, error)
}

var (
	// ErrSanity indicates a non-finite or zero value-dependent coefficient.
	ErrSanity = errors.New("non-finite or zero coefficient")

	// ErrGuessTooLarge indicates a junction prediction outside the sanity bound.
	ErrGuessTooLarge = errors.New("phase/voltage guess too large")
)

func checkCoefficient(label string, v float64) error {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s: coefficient %g: %w", label, v, ErrSanity)
	}
	return nil
}

func checkValue(label, name string, v float64) error {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s: %s = %g: %w", label, name, v, ErrSanity)
	}
	return nil
}

// history keeps the two previous samples of a quantity.
type history struct {
	n1, n2 float64
}

func (h *history) push(v float64) {
	h.n2 = h.n1
	h.n1 = v
}

// bdf2 returns (4/3)x1 − (1/3)x2.
func (h history) bdf2() float64 {
	return (4*h.n1 - h.n2) / 3
}

// at returns x[i], or 0 for ground.
func at(x []float64, i int) float64 {
	if i == Ground {
		return 0
	}
	return x[i]
}

func diff(x []float64, p, n int) float64 {
	return at(x, p) - at(x, n)
}

// terminalEntries appends the node-row and branch-row ±1 pattern of a
// branch between p and n.
func terminalEntries(dst []Entry, p, n, branch int, sign float64) []Entry {
	if p != Ground {
		dst = append(dst, Entry{Row: p, Col: branch, Value: sign})
	}
	if n != Ground {
		dst = append(dst, Entry{Row: n, Col: branch, Value: -sign})
	}
	return dst
}

func branchEntries(dst []Entry, row, p, n int, gain float64) []Entry {
	if p != Ground {
		dst = append(dst, Entry{Row: row, Col: p, Value: gain})
	}
	if n != Ground {
		dst = append(dst, Entry{Row: row, Col: n, Value: -gain})
	}
	return dst
}

type base struct {
	label string
	mode  Mode
	h     float64
	first int
}

func (b *base) Label() string  { return b.label }
func (b *base) Bind(first int) { b.first = first }

// First returns the index of the first owned branch.
func (b *base) First() int { return b.first }

// Mode returns the formulation the device was built for.
func (b *base) Mode() Mode { return b.mode }

// port tracks the voltage and phase history across a terminal pair. In
// voltage mode the voltage comes from the solution and the phase is not
// needed; in phase mode the voltage is derived from the phase by BDF2.
type port struct {
	p, n int
	v    history
	phi  history
}

func (pt *port) commit(x []float64, mode Mode, h float64) {
	val := diff(x, pt.p, pt.n)
	if mode == Voltage {
		pt.v.push(val)
		return
	}
	pt.v.push(Sigma * (3*val - 4*pt.phi.n1 + pt.phi.n2) / (2 * h))
	pt.phi.push(val)
}

// resistiveRHS converts a voltage-mode RHS value of a resistive row into
// the row's value in the given mode.
func (pt *port) resistiveRHS(mode Mode, h, vrhs float64) float64 {
	if mode == Phase {
		return pt.phi.bdf2() + mode.Scale(h)*vrhs
	}
	return vrhs
}

// Terminals returns the two node indices of a two-terminal device.
func (pt *port) Terminals() (int, int) { return pt.p, pt.n }
