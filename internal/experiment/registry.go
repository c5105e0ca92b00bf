package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/jjsim/internal/metrics"
	"github.com/san-kum/jjsim/internal/sim"
)

// Registry maps metric names to constructors. Per-junction metrics take
// the junction label.
type Registry struct {
	global   map[string]func() sim.Metric
	junction map[string]func(label string) sim.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		global:   make(map[string]func() sim.Metric),
		junction: make(map[string]func(string) sim.Metric),
	}

	r.global["stability"] = func() sim.Metric { return metrics.NewStability() }
	r.global["josephson_energy"] = func() sim.Metric { return metrics.NewJosephsonEnergy() }

	r.junction["phase_slips"] = func(l string) sim.Metric { return metrics.NewPhaseSlips(l) }
	r.junction["mean_voltage"] = func(l string) sim.Metric { return metrics.NewMeanVoltage(l) }
	r.junction["peak_voltage"] = func(l string) sim.Metric { return metrics.NewPeakVoltage(l) }
	r.junction["switch_time"] = func(l string) sim.Metric { return metrics.NewSwitchTime(l) }

	return r
}

// Metrics builds the named metrics; per-junction ones are instantiated once
// per junction label.
func (r *Registry) Metrics(names []string, junctions []string) ([]sim.Metric, error) {
	var out []sim.Metric
	for _, name := range names {
		if fn, ok := r.global[name]; ok {
			out = append(out, fn())
			continue
		}
		fn, ok := r.junction[name]
		if !ok {
			return nil, fmt.Errorf("unknown metric: %s", name)
		}
		for _, l := range junctions {
			out = append(out, fn(l))
		}
	}
	return out, nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.global)+len(r.junction))
	for name := range r.global {
		names = append(names, name)
	}
	for name := range r.junction {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(junctions []string) []sim.Metric {
	return metrics.Standard(junctions)
}
