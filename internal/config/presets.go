package config

import "sort"

func el(kind, label string, value float64, nodes ...string) ElementConfig {
	return ElementConfig{Kind: kind, Label: label, Value: value, Nodes: nodes}
}

func src(kind, label string, s *SourceConfig, nodes ...string) ElementConfig {
	return ElementConfig{Kind: kind, Label: label, Nodes: nodes, Source: s}
}

func jj(label, model string, area float64, nodes ...string) ElementConfig {
	return ElementConfig{Kind: "jj", Label: label, Model: model, Area: area, Nodes: nodes}
}

func jjModel() ModelCard {
	return ModelCard{
		Name: "jj1", RType: 1, VG: 2.8e-3, IC: 0.1e-3, RN: 16, R0: 160,
		C: 0.07e-12, T: 4.2, TC: 9.1, DELV: 0.1e-3, ICFact: 0.7854,
	}
}

// Presets are built-in decks, rebuilt on every lookup so callers may
// modify what they get.
var Presets = map[string]func() *Config{
	"rc": func() *Config {
		return &Config{
			Name:       "rc",
			Simulation: SimulationConfig{Mode: "voltage", Step: 1e-12, Stop: 500e-12},
			Elements: []ElementConfig{
				src("isource", "I1", DC(1e-3), "0", "a"),
				el("resistor", "R1", 50, "a", "0"),
				el("capacitor", "C1", 1e-12, "a", "0"),
			},
			Outputs: []string{"V(a)", "I(C1)"},
		}
	},
	"rl": func() *Config {
		return &Config{
			Name:       "rl",
			Simulation: SimulationConfig{Mode: "phase", Step: 1e-12, Stop: 200e-12},
			Elements: []ElementConfig{
				src("vsource", "V1", PWL(0, 0, 10e-12, 1e-3), "a", "0"),
				el("resistor", "R1", 10, "a", "b"),
				el("inductor", "L1", 100e-12, "b", "0"),
			},
			Outputs: []string{"V(b)", "I(L1)", "P(b)"},
		}
	},
	"jj-bias": func() *Config {
		return &Config{
			Name:       "jj-bias",
			Simulation: SimulationConfig{Mode: "voltage", Step: 0.25e-12, Stop: 300e-12},
			Elements: []ElementConfig{
				src("isource", "I1", PWL(0, 0, 100e-12, 2e-3), "0", "a"),
				el("resistor", "RS", 2, "a", "0"),
				jj("B1", "", 0, "a", "0"),
			},
			Outputs: []string{"V(B1)", "P(B1)", "I(B1)"},
		}
	},
	"jtl": func() *Config {
		return &Config{
			Name:       "jtl",
			Simulation: SimulationConfig{Mode: "phase", Step: 0.1e-12, Stop: 150e-12},
			Models:     []ModelCard{jjModel()},
			Elements: []ElementConfig{
				src("isource", "IB1", PWL(0, 0, 10e-12, 0.07e-3), "0", "1"),
				src("isource", "IB2", PWL(0, 0, 10e-12, 0.07e-3), "0", "2"),
				src("isource", "IIN", &SourceConfig{Type: "pulse", Peak: 0.6e-3, Delay: 50e-12, Rise: 1e-12, Width: 1e-12, Fall: 1e-12}, "0", "in"),
				el("inductor", "L0", 2e-12, "in", "1"),
				jj("B1", "jj1", 1, "1", "0"),
				el("resistor", "RS1", 7, "1", "0"),
				el("inductor", "L1", 4e-12, "1", "2"),
				jj("B2", "jj1", 1, "2", "0"),
				el("resistor", "RS2", 7, "2", "0"),
				el("inductor", "L2", 2e-12, "2", "out"),
				el("resistor", "RL", 2, "out", "0"),
			},
			Outputs: []string{"P(B1)", "P(B2)", "V(out)"},
		}
	},
	"tline": func() *Config {
		return &Config{
			Name:       "tline",
			Simulation: SimulationConfig{Mode: "voltage", Step: 0.5e-12, Stop: 100e-12},
			Elements: []ElementConfig{
				src("vsource", "V1", &SourceConfig{Type: "pulse", Peak: 1e-3, Delay: 5e-12, Rise: 2e-12, Width: 5e-12, Fall: 2e-12}, "in", "0"),
				el("resistor", "RG", 50, "in", "a"),
				{Kind: "tline", Label: "T1", Value: 50, Delay: 20e-12, Nodes: []string{"a", "0", "b", "0"}},
				el("resistor", "RL", 50, "b", "0"),
			},
			Outputs: []string{"V(a)", "V(b)"},
		}
	},
	"rf-squid": func() *Config {
		return &Config{
			Name:       "rf-squid",
			Simulation: SimulationConfig{Mode: "voltage", Step: 0.25e-12, Stop: 400e-12},
			Elements: []ElementConfig{
				src("isource", "IX", &SourceConfig{Type: "sin", Amplitude: 2e-3, Frequency: 10e9}, "0", "x"),
				el("inductor", "LX", 20e-12, "x", "0"),
				el("inductor", "LS", 10e-12, "s", "0"),
				{Kind: "mutual", Label: "K1", Value: 0.5, Couples: []string{"LX", "LS"}},
				jj("B1", "", 0.2, "s", "0"),
				el("resistor", "RS", 5, "s", "0"),
			},
			Outputs: []string{"I(LS)", "P(B1)", "V(B1)"},
		}
	},
	"noisy-jj": func() *Config {
		return &Config{
			Name: "noisy-jj",
			Simulation: SimulationConfig{
				Mode: "voltage", Step: 0.25e-12, Stop: 200e-12, Seed: 1,
				Noise: &NoiseConfig{Temperature: 4.2, Bandwidth: 1e12},
			},
			Elements: []ElementConfig{
				src("isource", "I1", DC(0.9e-3), "0", "a"),
				el("resistor", "RS", 2, "a", "0"),
				jj("B1", "", 0, "a", "0"),
			},
			Outputs: []string{"V(B1)", "P(B1)"},
		}
	},
}

// GetPreset returns a fresh validated copy of a built-in deck, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := build()
	if err := cfg.Validate(); err != nil {
		panic("config: invalid preset " + name + ": " + err.Error())
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
