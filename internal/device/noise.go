package device

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Noise injects the Johnson current of a resistor at temperature T across
// the resistor's terminals, one independent normal sample per step.
type Noise struct {
	base
	port
	Resistor  string
	Amplitude float64
	dist      distuv.Normal
	sample    float64
}

// NewNoise builds the noise injector for a resistance r at temperature
// temp over bandwidth bw. The sequence is reproducible for a seed.
func NewNoise(label string, p, n int, r, temp, bw float64, seed uint64, mode Mode, h float64) (*Noise, error) {
	if temp <= 0 || bw <= 0 || r <= 0 {
		return nil, fmt.Errorf("%s: noise needs positive resistance, temperature and bandwidth: %w", label, ErrSanity)
	}
	amp := math.Sqrt(4 * Boltzmann * temp * bw / r)
	d := &Noise{
		base:      base{label: label, mode: mode, h: h},
		port:      port{p: p, n: n},
		Amplitude: amp,
		dist: distuv.Normal{
			Mu:    0,
			Sigma: amp,
			Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		},
	}
	d.sample = d.dist.Rand()
	return d, nil
}

func (d *Noise) Kind() Kind                    { return KindCurrentSource }
func (d *Noise) Branches() int                 { return 0 }
func (d *Noise) Rows() []RowKind               { return nil }
func (d *Noise) Stamp() []Entry                { return nil }
func (d *Noise) RHS(step int, out []float64)   {}
func (d *Noise) UpdateTimestep(factor float64) { d.h *= factor }
func (d *Noise) Injection(step int) float64    { return d.sample }

// StepBack draws the sample used by the next step.
func (d *Noise) StepBack(x []float64) { d.sample = d.dist.Rand() }
