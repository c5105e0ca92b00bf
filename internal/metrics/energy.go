package metrics

import (
	"math"

	"github.com/san-kum/jjsim/internal/device"
	"github.com/san-kum/jjsim/internal/sim"
)

// JosephsonEnergy is the time-averaged coupling energy
// (Φ0·IC/2π)(1 − cos φ) summed over all junctions.
type JosephsonEnergy struct {
	name        string
	totalEnergy float64
	samples     int
}

func NewJosephsonEnergy() *JosephsonEnergy {
	return &JosephsonEnergy{name: "josephson_energy"}
}

func (e *JosephsonEnergy) Name() string { return e.name }

func (e *JosephsonEnergy) Observe(s sim.Sample) {
	var sum float64
	for _, h := range s.Assembly.Junctions() {
		j := s.Assembly.Device(h).(*device.Junction)
		_, phi := j.Values(s.X)
		sum += device.PhiZero * j.Model.IC / (2 * math.Pi) * (1 - math.Cos(phi))
	}
	e.totalEnergy += sum
	e.samples++
}

func (e *JosephsonEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *JosephsonEnergy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}
