package device

import "math"

// Physical constants in SI units.
const (
	PhiZero   = 2.067833831170082e-15
	Boltzmann = 1.38064852e-23
	EV        = 1.6021766208e-19
	Hbar      = 1.0545718001391127e-34

	// Sigma relates voltage and superconducting phase, V = Sigma·dφ/dt.
	Sigma = PhiZero / (2 * math.Pi)
)
