package experiment

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/jjsim/internal/config"
	"github.com/san-kum/jjsim/internal/sim"
)

func TestExperimentRunsPreset(t *testing.T) {
	deck := config.GetPreset("rc")
	exp := New(deck, 0, nil)

	if _, err := exp.Run(context.Background()); err == nil {
		t.Fatal("expected error before setup")
	}

	reg := NewRegistry()
	if err := exp.Setup(reg.DefaultMetrics(deck.Junctions())); err != nil {
		t.Fatalf("setup: %v", err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Steps != deck.Steps() {
		t.Errorf("expected %d steps, got %d", deck.Steps(), res.Steps)
	}
	if _, ok := res.Metrics["stability"]; !ok {
		t.Errorf("missing stability metric in %v", res.Metrics)
	}
	if exp.Simulator() == nil || exp.Deck() != deck {
		t.Error("accessors not wired")
	}
}

func TestRegistryMetrics(t *testing.T) {
	reg := NewRegistry()

	ms, err := reg.Metrics([]string{"stability", "phase_slips"}, []string{"B1", "B2"})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if len(ms) != 3 {
		t.Fatalf("expected 3 metrics, got %d", len(ms))
	}
	if ms[2].Name() != "phase_slips(B2)" {
		t.Errorf("unexpected name %s", ms[2].Name())
	}

	if _, err := reg.Metrics([]string{"bogus"}, nil); err == nil {
		t.Error("expected unknown metric error")
	}
	if got := len(reg.ListMetrics()); got != 6 {
		t.Errorf("expected 6 metric names, got %d", got)
	}
}

func TestSweep(t *testing.T) {
	if _, err := Sweep(context.Background(), config.GetPreset("rc"), 2, 2, nil); err == nil {
		t.Error("expected error for noiseless deck")
	}

	deck := config.GetPreset("noisy-jj")
	deck.Simulation.Stop = deck.Simulation.Start + 40*deck.Simulation.Step
	reg := NewRegistry()
	results, err := Sweep(context.Background(), deck, 3, 2, func() []sim.Metric {
		return reg.DefaultMetrics(deck.Junctions())
	})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if len(r.Times) != 40 {
			t.Errorf("expected 40 samples, got %d", len(r.Times))
		}
		for _, s := range r.Traces {
			for _, v := range s.Values {
				if math.IsNaN(v) {
					t.Fatalf("NaN in %s", s.Name)
				}
			}
		}
	}
}
