package metrics

import (
	"github.com/san-kum/jjsim/internal/device"
	"github.com/san-kum/jjsim/internal/sim"
)

// Stability is the fraction of steps in which every junction stayed in
// the subgap region.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(smp sim.Sample) {
	s.samples++
	for _, h := range smp.Assembly.Junctions() {
		if smp.Assembly.Device(h).(*device.Junction).Region() != device.Subgap {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Standard returns the default metric set: the circuit-wide ones plus
// per-junction ones for every listed label.
func Standard(junctions []string) []sim.Metric {
	ms := []sim.Metric{NewStability(), NewJosephsonEnergy()}
	for _, l := range junctions {
		ms = append(ms, NewPhaseSlips(l), NewMeanVoltage(l), NewPeakVoltage(l), NewSwitchTime(l))
	}
	return ms
}
