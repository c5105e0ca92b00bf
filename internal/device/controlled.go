package device

// Controlled sources take four terminals: output o+ o-, control c+ c-.
// Current-controlled kinds sense the control current through a zero-volt
// branch between the control terminals.

// CCCS drives G·Ic from o+ to o-.
type CCCS struct {
	base
	out, ctrl port
	G         float64
	entries   []Entry
}

func NewCCCS(label string, op, on, cp, cn int, g float64, mode Mode, h float64) (*CCCS, error) {
	if err := checkValue(label, "gain", g); err != nil {
		return nil, err
	}
	return &CCCS{
		base: base{label: label, mode: mode, h: h},
		out:  port{p: op, n: on},
		ctrl: port{p: cp, n: cn},
		G:    g,
	}, nil
}

func (d *CCCS) Kind() Kind                    { return KindCCCS }
func (d *CCCS) Branches() int                 { return 1 }
func (d *CCCS) Rows() []RowKind               { return []RowKind{RowControl} }
func (d *CCCS) Stamp() []Entry                { return d.entries }
func (d *CCCS) UpdateTimestep(factor float64) { d.h *= factor }

func (d *CCCS) Bind(first int) {
	d.first = first
	e := make([]Entry, 0, 6)
	e = terminalEntries(e, d.ctrl.p, d.ctrl.n, first, 1)
	e = branchEntries(e, first, d.ctrl.p, d.ctrl.n, 1)
	d.entries = terminalEntries(e, d.out.p, d.out.n, first, d.G)
}

func (d *CCCS) RHS(step int, out []float64) {
	out[0] = d.ctrl.resistiveRHS(d.mode, d.h, 0)
}

func (d *CCCS) StepBack(x []float64) {
	d.ctrl.commit(x, d.mode, d.h)
}

// CCVS forces G·Ic across o+ o-. It owns the control branch and the
// output branch, in that order.
type CCVS struct {
	base
	out, ctrl port
	G         float64
	entries   []Entry
}

func NewCCVS(label string, op, on, cp, cn int, g float64, mode Mode, h float64) (*CCVS, error) {
	if err := checkValue(label, "transresistance", g); err != nil {
		return nil, err
	}
	return &CCVS{
		base: base{label: label, mode: mode, h: h},
		out:  port{p: op, n: on},
		ctrl: port{p: cp, n: cn},
		G:    g,
	}, nil
}

func (d *CCVS) coefficient() float64 { return -d.G * d.mode.Scale(d.h) }

func (d *CCVS) Kind() Kind      { return KindCCVS }
func (d *CCVS) Branches() int   { return 2 }
func (d *CCVS) Rows() []RowKind { return []RowKind{RowControl, RowCCVS} }
func (d *CCVS) Stamp() []Entry  { return d.entries }

func (d *CCVS) Bind(first int) {
	d.first = first
	bc, bo := first, first+1
	e := make([]Entry, 0, 9)
	e = terminalEntries(e, d.ctrl.p, d.ctrl.n, bc, 1)
	e = branchEntries(e, bc, d.ctrl.p, d.ctrl.n, 1)
	e = terminalEntries(e, d.out.p, d.out.n, bo, 1)
	e = branchEntries(e, bo, d.out.p, d.out.n, 1)
	d.entries = append(e, Entry{Row: bo, Col: bc, Value: d.coefficient()})
}

func (d *CCVS) RHS(step int, out []float64) {
	out[0] = d.ctrl.resistiveRHS(d.mode, d.h, 0)
	out[1] = d.out.resistiveRHS(d.mode, d.h, 0)
}

func (d *CCVS) UpdateTimestep(factor float64) {
	d.h *= factor
	d.entries[len(d.entries)-1].Value = d.coefficient()
}

func (d *CCVS) StepBack(x []float64) {
	d.ctrl.commit(x, d.mode, d.h)
	d.out.commit(x, d.mode, d.h)
}

// VCCS drives G·Vc from o+ to o-. Its branch row reads Vc − Io/G = 0.
type VCCS struct {
	base
	out, ctrl port
	G         float64
	entries   []Entry
}

func NewVCCS(label string, op, on, cp, cn int, g float64, mode Mode, h float64) (*VCCS, error) {
	if err := checkValue(label, "transconductance", g); err != nil {
		return nil, err
	}
	return &VCCS{
		base: base{label: label, mode: mode, h: h},
		out:  port{p: op, n: on},
		ctrl: port{p: cp, n: cn},
		G:    g,
	}, nil
}

func (d *VCCS) coefficient() float64 { return -d.mode.Scale(d.h) / d.G }

func (d *VCCS) Kind() Kind      { return KindVCCS }
func (d *VCCS) Branches() int   { return 1 }
func (d *VCCS) Rows() []RowKind { return []RowKind{RowVCCS} }
func (d *VCCS) Stamp() []Entry  { return d.entries }

func (d *VCCS) Bind(first int) {
	d.first = first
	e := make([]Entry, 0, 5)
	e = terminalEntries(e, d.out.p, d.out.n, first, 1)
	e = branchEntries(e, first, d.ctrl.p, d.ctrl.n, 1)
	d.entries = append(e, Entry{Row: first, Col: first, Value: d.coefficient()})
}

func (d *VCCS) RHS(step int, out []float64) {
	out[0] = d.ctrl.resistiveRHS(d.mode, d.h, 0)
}

func (d *VCCS) UpdateTimestep(factor float64) {
	d.h *= factor
	d.entries[len(d.entries)-1].Value = d.coefficient()
}

func (d *VCCS) StepBack(x []float64) {
	d.ctrl.commit(x, d.mode, d.h)
}

// VCVS forces G·Vc across o+ o-. The relation is algebraic, so the row is
// the same in both modes.
type VCVS struct {
	base
	out, ctrl port
	G         float64
	entries   []Entry
}

func NewVCVS(label string, op, on, cp, cn int, g float64, mode Mode, h float64) (*VCVS, error) {
	if err := checkValue(label, "gain", g); err != nil {
		return nil, err
	}
	return &VCVS{
		base: base{label: label, mode: mode, h: h},
		out:  port{p: op, n: on},
		ctrl: port{p: cp, n: cn},
		G:    g,
	}, nil
}

func (d *VCVS) Kind() Kind                    { return KindVCVS }
func (d *VCVS) Branches() int                 { return 1 }
func (d *VCVS) Rows() []RowKind               { return []RowKind{RowVCVS} }
func (d *VCVS) Stamp() []Entry                { return d.entries }
func (d *VCVS) RHS(step int, out []float64)   { out[0] = 0 }
func (d *VCVS) UpdateTimestep(factor float64) { d.h *= factor }
func (d *VCVS) StepBack(x []float64)          {}

func (d *VCVS) Bind(first int) {
	d.first = first
	e := make([]Entry, 0, 6)
	e = terminalEntries(e, d.out.p, d.out.n, first, 1)
	e = branchEntries(e, first, d.out.p, d.out.n, 1)
	d.entries = branchEntries(e, first, d.ctrl.p, d.ctrl.n, -d.G)
}

// Ports returns the output and control terminal pairs of a controlled source.
func ports(out, ctrl port) [4]int { return [4]int{out.p, out.n, ctrl.p, ctrl.n} }

func (d *CCCS) Ports() [4]int { return ports(d.out, d.ctrl) }
func (d *CCVS) Ports() [4]int { return ports(d.out, d.ctrl) }
func (d *VCCS) Ports() [4]int { return ports(d.out, d.ctrl) }
func (d *VCVS) Ports() [4]int { return ports(d.out, d.ctrl) }
