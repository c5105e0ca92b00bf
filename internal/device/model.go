package device

import (
	"fmt"
	"math"
)

// Model holds the parameters of a junction model card.
type Model struct {
	Name   string  `yaml:"name" json:"name"`
	RType  int     `yaml:"rtype" json:"rtype"`
	VG     float64 `yaml:"vg" json:"vg"`
	IC     float64 `yaml:"ic" json:"ic"`
	RN     float64 `yaml:"rn" json:"rn"`
	R0     float64 `yaml:"r0" json:"r0"`
	C      float64 `yaml:"c" json:"c"`
	T      float64 `yaml:"t" json:"t"`
	TC     float64 `yaml:"tc" json:"tc"`
	DELV   float64 `yaml:"delv" json:"delv"`
	D      float64 `yaml:"d" json:"d"`
	ICFact float64 `yaml:"icfct" json:"icfct"`
	PHI    float64 `yaml:"phi" json:"phi"`
}

// DefaultModel returns the niobium-like defaults used when a card omits a
// parameter.
func DefaultModel() Model {
	return Model{
		Name:   "default",
		RType:  1,
		VG:     2.8e-3,
		IC:     1e-3,
		RN:     5,
		R0:     30,
		C:      2.5e-12,
		T:      4.2,
		TC:     9.1,
		DELV:   0.1e-3,
		D:      0,
		ICFact: math.Pi / 4,
		PHI:    0,
	}
}

// Validate checks the parameters a junction stamp depends on.
func (m Model) Validate() error {
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"vg", m.VG}, {"ic", m.IC}, {"rn", m.RN}, {"r0", m.R0},
		{"c", m.C}, {"tc", m.TC}, {"delv", m.DELV}, {"icfct", m.ICFact},
	} {
		if p.v <= 0 || math.IsInf(p.v, 0) || math.IsNaN(p.v) {
			return fmt.Errorf("model %s: %s = %g: %w", m.Name, p.name, p.v, ErrSanity)
		}
	}
	if m.T < 0 || m.T >= m.TC {
		return fmt.Errorf("model %s: temperature %g not below critical temperature %g: %w", m.Name, m.T, m.TC, ErrSanity)
	}
	if m.D < 0 || m.D >= 1 {
		return fmt.Errorf("model %s: transparency %g outside [0, 1): %w", m.Name, m.D, ErrSanity)
	}
	if m.DELV >= 2*m.VG {
		return fmt.Errorf("model %s: delv %g exceeds twice the gap voltage: %w", m.Name, m.DELV, ErrSanity)
	}
	return nil
}

// Scaled applies the junction area. A positive ic overrides the area with
// ic/IC.
func (m Model) Scaled(area, ic float64) Model {
	if ic > 0 {
		area = ic / m.IC
	}
	if area <= 0 {
		area = 1
	}
	m.C *= area
	m.IC *= area
	m.RN /= area
	m.R0 /= area
	return m
}

// Gap returns the temperature-dependent gap energy Δ(T).
func (m Model) Gap() float64 {
	del0 := 1.76 * Boltzmann * m.TC
	r := m.T / m.TC
	return del0 * math.Sqrt(math.Cos((math.Pi/2)*r*r))
}

// CalculatedRN is the normal resistance implied by IC and Δ(T).
func (m Model) CalculatedRN() float64 {
	del := m.Gap()
	return (math.Pi * del) / (2 * EV * m.IC) * math.Tanh(del/(2*Boltzmann*m.T))
}

// SuperCurrent evaluates the tunnelling super-current at phase phi. With
// D = 0 it reduces to IC·sin(phi).
func (m Model) SuperCurrent(phi float64) float64 {
	del := m.Gap()
	rn := m.CalculatedRN()
	s := math.Sin(phi / 2)
	root := math.Sqrt(1 - m.D*s*s)
	return (math.Pi * del) / (2 * EV * rn) * (math.Sin(phi) / root) *
		math.Tanh(del/(2*Boltzmann*m.T)*root)
}
