package sim

import (
	"time"

	"github.com/san-kum/jjsim/internal/circuit"
)

// Sample is what metrics see after each step: the solved unknowns and the
// assembly whose devices have already been updated for the next step.
type Sample struct {
	Step     int
	Time     float64
	X        []float64
	Assembly *circuit.Assembly
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Progress is a coarse progress report.
type Progress struct {
	Step  int
	Total int
	Time  float64
}

type Observer interface {
	OnStep(p Progress)
}

// Recorder receives run counters. internal/telemetry implements it with
// Prometheus collectors.
type Recorder interface {
	RunStarted(mode string)
	StepsDone(n int)
	Refactored()
	RunFinished(d time.Duration, err error)
}

type Config struct {
	Start float64
	Stop  float64

	// Parallel is the worker count for RHS assembly and junction updates.
	// Values below 2 run serially.
	Parallel int

	// Requests selects the output traces. Empty means every node and device.
	Requests []circuit.Request

	// ProgressEvery is the observer cadence in steps. Zero reports about a
	// hundred times per run.
	ProgressEvery int
}

// Series is one named time series.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

type Result struct {
	Mode          string             `json:"mode"`
	Step          float64            `json:"step"`
	Times         []float64          `json:"times"`
	Traces        []Series           `json:"traces"`
	SuperCurrents []Series           `json:"super_currents,omitempty"`
	Warnings      []circuit.Warning  `json:"warnings,omitempty"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
	Steps         int                `json:"steps"`
	Refactors     int                `json:"refactors"`
	Duration      time.Duration      `json:"duration"`
}

// Trace returns the series with the given name.
func (r *Result) Trace(name string) ([]float64, bool) {
	for _, s := range r.Traces {
		if s.Name == name {
			return s.Values, true
		}
	}
	for _, s := range r.SuperCurrents {
		if s.Name == name {
			return s.Values, true
		}
	}
	return nil, false
}

// Names lists the trace names in output order.
func (r *Result) Names() []string {
	out := make([]string, len(r.Traces))
	for i, s := range r.Traces {
		out[i] = s.Name
	}
	return out
}
