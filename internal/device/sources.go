package device

// Waveform is a precomputed per-step sample sequence. Steps past the end
// hold the last sample; an empty waveform is zero.
type Waveform []float64

func (w Waveform) At(step int) float64 {
	if len(w) == 0 || step < 0 {
		return 0
	}
	if step >= len(w) {
		return w[len(w)-1]
	}
	return w[step]
}

// VoltageSource forces the voltage across its terminals. Its branch
// column carries the source current.
type VoltageSource struct {
	base
	port
	Samples Waveform
	entries []Entry
}

func NewVoltageSource(label string, p, n int, samples Waveform, mode Mode, h float64) *VoltageSource {
	return &VoltageSource{base: base{label: label, mode: mode, h: h}, port: port{p: p, n: n}, Samples: samples}
}

func (d *VoltageSource) Kind() Kind                    { return KindVoltageSource }
func (d *VoltageSource) Branches() int                 { return 1 }
func (d *VoltageSource) Rows() []RowKind               { return []RowKind{RowVoltageSource} }
func (d *VoltageSource) Stamp() []Entry                { return d.entries }
func (d *VoltageSource) UpdateTimestep(factor float64) { d.h *= factor }
func (d *VoltageSource) StepBack(x []float64)          { d.commit(x, d.mode, d.h) }

func (d *VoltageSource) Bind(first int) {
	d.first = first
	e := make([]Entry, 0, 4)
	e = terminalEntries(e, d.p, d.n, first, 1)
	d.entries = branchEntries(e, first, d.p, d.n, 1)
}

func (d *VoltageSource) RHS(step int, out []float64) {
	out[0] = d.resistiveRHS(d.mode, d.h, d.Samples.At(step))
}

// PhaseSource forces the phase across its terminals. In voltage mode the
// forced voltage is the BDF2 derivative of the phase samples.
type PhaseSource struct {
	base
	port
	Samples Waveform
	entries []Entry
}

func NewPhaseSource(label string, p, n int, samples Waveform, mode Mode, h float64) *PhaseSource {
	return &PhaseSource{base: base{label: label, mode: mode, h: h}, port: port{p: p, n: n}, Samples: samples}
}

func (d *PhaseSource) Kind() Kind                    { return KindPhaseSource }
func (d *PhaseSource) Branches() int                 { return 1 }
func (d *PhaseSource) Rows() []RowKind               { return []RowKind{RowPhaseSource} }
func (d *PhaseSource) Stamp() []Entry                { return d.entries }
func (d *PhaseSource) UpdateTimestep(factor float64) { d.h *= factor }
func (d *PhaseSource) StepBack(x []float64)          { d.commit(x, d.mode, d.h) }

func (d *PhaseSource) Bind(first int) {
	d.first = first
	e := make([]Entry, 0, 4)
	e = terminalEntries(e, d.p, d.n, first, 1)
	d.entries = branchEntries(e, first, d.p, d.n, 1)
}

func (d *PhaseSource) RHS(step int, out []float64) {
	if d.mode == Phase {
		out[0] = d.Samples.At(step)
		return
	}
	phi := d.Samples.At(step)
	var phi1, phi2 float64
	if step >= 1 {
		phi1 = d.Samples.At(step - 1)
	}
	if step >= 2 {
		phi2 = d.Samples.At(step - 2)
	}
	out[0] = Sigma * (3*phi - 4*phi1 + phi2) / (2 * d.h)
}

// CurrentSource drives its sample current from p to n. It owns no row.
type CurrentSource struct {
	base
	port
	Samples Waveform
}

func NewCurrentSource(label string, p, n int, samples Waveform, mode Mode, h float64) *CurrentSource {
	return &CurrentSource{base: base{label: label, mode: mode, h: h}, port: port{p: p, n: n}, Samples: samples}
}

func (d *CurrentSource) Kind() Kind                    { return KindCurrentSource }
func (d *CurrentSource) Branches() int                 { return 0 }
func (d *CurrentSource) Rows() []RowKind               { return nil }
func (d *CurrentSource) Stamp() []Entry                { return nil }
func (d *CurrentSource) RHS(step int, out []float64)   {}
func (d *CurrentSource) UpdateTimestep(factor float64) { d.h *= factor }
func (d *CurrentSource) StepBack(x []float64)          {}
func (d *CurrentSource) Injection(step int) float64    { return d.Samples.At(step) }
