package metrics

import (
	"math"

	"github.com/san-kum/jjsim/internal/device"
	"github.com/san-kum/jjsim/internal/sim"
)

// junctionRef resolves a junction label once per run.
type junctionRef struct {
	label  string
	j      *device.Junction
	missed bool
}

func (r *junctionRef) get(s sim.Sample) *device.Junction {
	if r.j != nil || r.missed {
		return r.j
	}
	if h, ok := s.Assembly.Lookup(r.label); ok {
		r.j, _ = s.Assembly.Device(h).(*device.Junction)
	}
	r.missed = r.j == nil
	return r.j
}

func (r *junctionRef) reset() { r.j, r.missed = nil, false }

// PhaseSlips counts 2π slips of a junction phase.
type PhaseSlips struct {
	ref     junctionRef
	started bool
	last    float64
	slips   int
}

func NewPhaseSlips(label string) *PhaseSlips {
	return &PhaseSlips{ref: junctionRef{label: label}}
}

func (p *PhaseSlips) Name() string { return "phase_slips(" + p.ref.label + ")" }

func (p *PhaseSlips) Observe(s sim.Sample) {
	j := p.ref.get(s)
	if j == nil {
		return
	}
	_, phi := j.Values(s.X)
	n := math.Floor((phi + math.Pi) / (2 * math.Pi))
	if !p.started {
		p.started = true
		p.last = n
		return
	}
	p.slips += int(math.Abs(n - p.last))
	p.last = n
}

func (p *PhaseSlips) Value() float64 { return float64(p.slips) }

func (p *PhaseSlips) Reset() {
	p.ref.reset()
	p.started, p.last, p.slips = false, 0, 0
}

// MeanVoltage is the time-averaged junction voltage.
type MeanVoltage struct {
	ref     junctionRef
	sum     float64
	samples int
}

func NewMeanVoltage(label string) *MeanVoltage {
	return &MeanVoltage{ref: junctionRef{label: label}}
}

func (m *MeanVoltage) Name() string { return "mean_voltage(" + m.ref.label + ")" }

func (m *MeanVoltage) Observe(s sim.Sample) {
	if j := m.ref.get(s); j != nil {
		v, _ := j.Values(s.X)
		m.sum += v
		m.samples++
	}
}

func (m *MeanVoltage) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanVoltage) Reset() {
	m.ref.reset()
	m.sum, m.samples = 0, 0
}

// PeakVoltage is the largest junction voltage magnitude.
type PeakVoltage struct {
	ref  junctionRef
	peak float64
}

func NewPeakVoltage(label string) *PeakVoltage {
	return &PeakVoltage{ref: junctionRef{label: label}}
}

func (p *PeakVoltage) Name() string { return "peak_voltage(" + p.ref.label + ")" }

func (p *PeakVoltage) Observe(s sim.Sample) {
	if j := p.ref.get(s); j != nil {
		v, _ := j.Values(s.X)
		p.peak = math.Max(p.peak, math.Abs(v))
	}
}

func (p *PeakVoltage) Value() float64 { return p.peak }

func (p *PeakVoltage) Reset() {
	p.ref.reset()
	p.peak = 0
}

// SwitchTime is the first time a junction leaves the subgap region, or
// -1 if it never does.
type SwitchTime struct {
	ref junctionRef
	at  float64
	hit bool
}

func NewSwitchTime(label string) *SwitchTime {
	return &SwitchTime{ref: junctionRef{label: label}, at: -1}
}

func (w *SwitchTime) Name() string { return "switch_time(" + w.ref.label + ")" }

func (w *SwitchTime) Observe(s sim.Sample) {
	if w.hit {
		return
	}
	if j := w.ref.get(s); j != nil && j.Region() != device.Subgap {
		w.at, w.hit = s.Time, true
	}
}

func (w *SwitchTime) Value() float64 { return w.at }

func (w *SwitchTime) Reset() {
	w.ref.reset()
	w.at, w.hit = -1, false
}
