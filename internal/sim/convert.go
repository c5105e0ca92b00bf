package sim

import (
	"github.com/san-kum/jjsim/internal/circuit"
	"github.com/san-kum/jjsim/internal/device"
)

// convert applies the BDF2 phase/voltage conversion in place. History
// before the first sample is zero.
func convert(v []float64, c circuit.Conversion, h float64) {
	var p1, p2 float64
	switch c {
	case circuit.Differentiate:
		for i, phi := range v {
			v[i] = device.Sigma * (3*phi - 4*p1 + p2) / (2 * h)
			p2, p1 = p1, phi
		}
	case circuit.Integrate:
		k := 2 * h / (3 * device.Sigma)
		for i, volt := range v {
			phi := (4*p1-p2)/3 + k*volt
			v[i] = phi
			p2, p1 = p1, phi
		}
	}
}
