package config

import (
	"fmt"
	"math"

	"github.com/san-kum/jjsim/internal/device"
)

// SourceConfig describes an independent source waveform.
//
//	dc:    value
//	pwl:   points = [t0 v0 t1 v1 ...], linear between points, held after the last
//	pulse: peak, delay, rise, width, fall, period (0 = single pulse)
//	sin:   offset, amplitude, frequency, delay, damping; zero before delay
type SourceConfig struct {
	Type      string    `yaml:"type"`
	Value     float64   `yaml:"value,omitempty"`
	Points    []float64 `yaml:"points,flow,omitempty"`
	Peak      float64   `yaml:"peak,omitempty"`
	Delay     float64   `yaml:"delay,omitempty"`
	Rise      float64   `yaml:"rise,omitempty"`
	Width     float64   `yaml:"width,omitempty"`
	Fall      float64   `yaml:"fall,omitempty"`
	Period    float64   `yaml:"period,omitempty"`
	Offset    float64   `yaml:"offset,omitempty"`
	Amplitude float64   `yaml:"amplitude,omitempty"`
	Frequency float64   `yaml:"frequency,omitempty"`
	Damping   float64   `yaml:"damping,omitempty"`
}

func DC(v float64) *SourceConfig { return &SourceConfig{Type: "dc", Value: v} }

func PWL(points ...float64) *SourceConfig { return &SourceConfig{Type: "pwl", Points: points} }

func (s *SourceConfig) validate() error {
	switch s.Type {
	case "dc":
	case "pwl":
		if len(s.Points) < 2 || len(s.Points)%2 != 0 {
			return fmt.Errorf("pwl needs time/value pairs, got %d numbers", len(s.Points))
		}
		for i := 2; i < len(s.Points); i += 2 {
			if s.Points[i] < s.Points[i-2] {
				return fmt.Errorf("pwl times must not decrease: %g after %g", s.Points[i], s.Points[i-2])
			}
		}
	case "pulse":
		if s.Rise < 0 || s.Fall < 0 || s.Width < 0 || s.Period < 0 {
			return fmt.Errorf("pulse timing must not be negative")
		}
		if s.Period > 0 && s.Period < s.Rise+s.Width+s.Fall {
			return fmt.Errorf("pulse period %g shorter than the pulse", s.Period)
		}
	case "sin":
		if s.Frequency < 0 {
			return fmt.Errorf("negative frequency %g", s.Frequency)
		}
	default:
		return fmt.Errorf("unknown source type %q", s.Type)
	}
	return nil
}

// At evaluates the waveform at time t.
func (s *SourceConfig) At(t float64) float64 {
	switch s.Type {
	case "pwl":
		return s.pwl(t)
	case "pulse":
		return s.pulse(t)
	case "sin":
		if t < s.Delay {
			return 0
		}
		dt := t - s.Delay
		return s.Offset + s.Amplitude*math.Sin(2*math.Pi*s.Frequency*dt)*math.Exp(-s.Damping*dt)
	default:
		return s.Value
	}
}

func (s *SourceConfig) pwl(t float64) float64 {
	p := s.Points
	if t <= p[0] {
		if t < p[0] {
			return 0
		}
		return p[1]
	}
	for i := 2; i < len(p); i += 2 {
		t0, v0, t1, v1 := p[i-2], p[i-1], p[i], p[i+1]
		if t <= t1 {
			if t1 == t0 {
				return v1
			}
			return v0 + (v1-v0)*(t-t0)/(t1-t0)
		}
	}
	return p[len(p)-1]
}

func (s *SourceConfig) pulse(t float64) float64 {
	if t < s.Delay {
		return 0
	}
	dt := t - s.Delay
	if s.Period > 0 {
		dt = math.Mod(dt, s.Period)
	}
	switch {
	case dt < s.Rise:
		return s.Peak * dt / s.Rise
	case dt <= s.Rise+s.Width:
		return s.Peak
	case dt < s.Rise+s.Width+s.Fall:
		return s.Peak * (1 - (dt-s.Rise-s.Width)/s.Fall)
	}
	return 0
}

// Sample evaluates the waveform on t = start + i·h for i in [0, n).
func (s *SourceConfig) Sample(start, h float64, n int) device.Waveform {
	if s.Type == "dc" {
		return device.Waveform{s.Value}
	}
	w := make(device.Waveform, n)
	for i := range w {
		w[i] = s.At(start + float64(i)*h)
	}
	return w
}
