package config

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/jjsim/internal/device"
	"github.com/san-kum/jjsim/internal/sim"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != "jj-bias" {
		t.Errorf("expected deck jj-bias, got %s", cfg.Name)
	}
	if cfg.Simulation.Step <= 0 {
		t.Error("step should be positive")
	}
	if cfg.Simulation.Stop <= cfg.Simulation.Start {
		t.Error("stop should be after start")
	}
}

func TestPresetsAssembleAndRun(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			if cfg == nil {
				t.Fatal("expected preset, got nil")
			}
			cfg.Simulation.Stop = cfg.Simulation.Start + 40*cfg.Simulation.Step
			asm, err := cfg.Assemble(nil, 0)
			if err != nil {
				t.Fatalf("assemble failed: %v", err)
			}
			reqs, _ := cfg.Requests()
			result, err := sim.New(asm, nil).Run(context.Background(), sim.Config{
				Start:    cfg.Simulation.Start,
				Stop:     cfg.Simulation.Stop,
				Requests: reqs,
			})
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if len(result.Warnings) != 0 {
				t.Errorf("unexpected warnings: %v", result.Warnings)
			}
			if len(result.Traces) != len(cfg.Outputs) {
				t.Errorf("expected %d traces, got %d", len(cfg.Outputs), len(result.Traces))
			}
		})
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetIsolated(t *testing.T) {
	a := GetPreset("rc")
	a.Elements[1].Value = 1
	if b := GetPreset("rc"); b.Elements[1].Value != 50 {
		t.Errorf("preset mutated through a previous copy: %v", b.Elements[1].Value)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.yaml")
	orig := GetPreset("jtl")
	if err := Save(path, orig); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Name != orig.Name || len(got.Elements) != len(orig.Elements) {
		t.Fatalf("round trip lost elements: %+v", got)
	}
	if got.Models[0] != orig.Models[0] {
		t.Errorf("model changed: %+v != %+v", got.Models[0], orig.Models[0])
	}
	if got.Elements[2].Source.Peak != 0.6e-3 {
		t.Errorf("pulse peak lost: %+v", got.Elements[2].Source)
	}
	if got.Elements[0].Nodes[0] != "0" {
		t.Errorf("ground node lost: %v", got.Elements[0].Nodes)
	}
}

func TestModelDefaults(t *testing.T) {
	deck := `
simulation: {step: 1e-12, stop: 1e-10}
models:
  - name: small
    ic: 50e-6
elements:
  - {kind: jj, label: B1, model: small, nodes: [a, 0]}
  - {kind: isource, label: I1, nodes: [0, a], source: {type: dc, value: 1e-5}}
`
	cfg, err := Parse([]byte(deck))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	m := cfg.ModelMap()["small"]
	def := device.DefaultModel()
	if m.IC != 50e-6 {
		t.Errorf("expected ic 50e-6, got %g", m.IC)
	}
	if m.RN != def.RN || m.VG != def.VG || m.TC != def.TC {
		t.Errorf("defaults not applied: %+v", m)
	}
	if cfg.Simulation.Mode != "voltage" {
		t.Errorf("expected default mode, got %q", cfg.Simulation.Mode)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := map[string]string{
		"bad mode":     "simulation: {mode: banana}\nelements: [{kind: resistor, label: R1, value: 1, nodes: [a, 0]}]",
		"stop":         "simulation: {start: 1e-9, stop: 1e-10}\nelements: [{kind: resistor, label: R1, value: 1, nodes: [a, 0]}]",
		"no elements":  "simulation: {stop: 1e-10}",
		"bad kind":     "elements: [{kind: diode, label: D1, nodes: [a, 0]}]",
		"bad source":   "elements: [{kind: isource, label: I1, nodes: [0, a], source: {type: pwl, points: [0]}}]",
		"bad output":   "outputs: [Q(a)]\nelements: [{kind: resistor, label: R1, value: 1, nodes: [a, 0]}]",
		"unnamed card": "models: [{ic: 1e-4}]\nelements: [{kind: resistor, label: R1, value: 1, nodes: [a, 0]}]",
	}
	for name, deck := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(deck))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestSourceWaveforms(t *testing.T) {
	pwl := PWL(0, 0, 10, 1, 20, 1, 30, 0)
	cases := []struct {
		t, want float64
	}{{-1, 0}, {0, 0}, {5, 0.5}, {15, 1}, {25, 0.5}, {40, 0}}
	for _, c := range cases {
		if got := pwl.At(c.t); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("pwl(%g) = %g, want %g", c.t, got, c.want)
		}
	}

	pulse := &SourceConfig{Type: "pulse", Peak: 2, Delay: 10, Rise: 2, Width: 4, Fall: 2, Period: 20}
	for _, c := range []struct{ t, want float64 }{{5, 0}, {11, 1}, {14, 2}, {17, 1}, {19, 0}, {34, 2}} {
		if got := pulse.At(c.t); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("pulse(%g) = %g, want %g", c.t, got, c.want)
		}
	}

	sin := &SourceConfig{Type: "sin", Offset: 1, Amplitude: 2, Frequency: 0.25, Delay: 1}
	if got := sin.At(0); got != 0 {
		t.Errorf("sin before delay = %g", got)
	}
	if got := sin.At(2); math.Abs(got-3) > 1e-12 {
		t.Errorf("sin(2) = %g, want 3", got)
	}

	w := pwl.Sample(0, 5, 8)
	if len(w) != 8 || w[1] != 0.5 || w[7] != 0 {
		t.Errorf("unexpected samples %v", w)
	}
	if dc := DC(3).Sample(0, 1, 100); len(dc) != 1 || dc.At(50) != 3 {
		t.Errorf("dc should hold one sample, got %v", dc)
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := GetPreset("noisy-jj")
	b := a.Clone()
	b.Simulation.Noise.Temperature = 0
	b.Elements[0].Nodes[0] = "zz"
	b.Elements[0].Source.Value = 5
	b.Outputs[0] = "V(a)"

	if a.Simulation.Noise.Temperature != 4.2 {
		t.Error("noise shared")
	}
	if a.Elements[0].Nodes[0] != "0" || a.Elements[0].Source.Value != 0.9e-3 {
		t.Error("element shared")
	}
	if a.Outputs[0] != "V(B1)" {
		t.Error("outputs shared")
	}
}

func TestSetParam(t *testing.T) {
	cfg := GetPreset("jj-bias")
	bias := cfg.Elements[0].Label

	if err := cfg.SetParam(bias, 2e-4); err != nil {
		t.Fatal(err)
	}
	if v, err := cfg.Param(bias); err != nil || v != 2e-4 {
		t.Errorf("source param = %v, %v", v, err)
	}
	if err := cfg.SetParam("B1", 1.5); err != nil {
		t.Fatal(err)
	}
	if v, _ := cfg.Param("B1"); v != 1.5 {
		t.Errorf("area = %v", v)
	}
	if err := cfg.SetParam("nope", 1); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("deck invalid after SetParam: %v", err)
	}
}
