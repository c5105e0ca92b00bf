package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/jjsim/internal/circuit"
	"github.com/san-kum/jjsim/internal/device"
)

const (
	DefaultStep       = 0.25e-12
	DefaultStop       = 100e-12
	DefaultGuessLimit = device.DefaultGuessLimit
	DefaultBandwidth  = 1e12
)

var ErrInvalid = errors.New("invalid circuit deck")

// Config is one circuit deck.
type Config struct {
	Name       string           `yaml:"name,omitempty"`
	Simulation SimulationConfig `yaml:"simulation"`
	Models     []ModelCard      `yaml:"models,omitempty"`
	Elements   []ElementConfig  `yaml:"elements"`
	Outputs    []string         `yaml:"outputs,omitempty"`
}

type SimulationConfig struct {
	Mode       string       `yaml:"mode"`
	Step       float64      `yaml:"step"`
	Start      float64      `yaml:"start"`
	Stop       float64      `yaml:"stop"`
	GuessLimit float64      `yaml:"guess_limit,omitempty"`
	Parallel   int          `yaml:"parallel,omitempty"`
	Seed       uint64       `yaml:"seed,omitempty"`
	Noise      *NoiseConfig `yaml:"noise,omitempty"`
}

type NoiseConfig struct {
	Temperature float64 `yaml:"temperature"`
	Bandwidth   float64 `yaml:"bandwidth,omitempty"`
}

// ModelCard is a junction model. Parameters missing from the deck keep
// their default values.
type ModelCard device.Model

func (m *ModelCard) UnmarshalYAML(n *yaml.Node) error {
	type plain device.Model
	p := plain(device.DefaultModel())
	p.Name = ""
	if err := n.Decode(&p); err != nil {
		return err
	}
	*m = ModelCard(p)
	return nil
}

type ElementConfig struct {
	Kind        string        `yaml:"kind"`
	Label       string        `yaml:"label"`
	Nodes       []string      `yaml:"nodes,flow,omitempty"`
	Value       float64       `yaml:"value,omitempty"`
	Delay       float64       `yaml:"delay,omitempty"`
	Model       string        `yaml:"model,omitempty"`
	Area        float64       `yaml:"area,omitempty"`
	IC          float64       `yaml:"ic,omitempty"`
	Temperature float64       `yaml:"temperature,omitempty"`
	Couples     []string      `yaml:"couples,flow,omitempty"`
	Source      *SourceConfig `yaml:"source,omitempty"`
}

func DefaultConfig() *Config {
	return GetPreset("jj-bias")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a deck.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode deck: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate fills defaults and checks everything that does not need the
// assembled circuit.
func (c *Config) Validate() error {
	s := &c.Simulation
	if s.Step == 0 {
		s.Step = DefaultStep
	}
	if s.Stop == 0 {
		s.Stop = s.Start + DefaultStop
	}
	if s.Mode == "" {
		s.Mode = device.Voltage.String()
	}
	if _, err := device.ParseMode(s.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if s.Step < 0 || math.IsNaN(s.Step) || math.IsInf(s.Step, 0) {
		return fmt.Errorf("%w: step %g", ErrInvalid, s.Step)
	}
	if s.Stop <= s.Start {
		return fmt.Errorf("%w: stop %g not after start %g", ErrInvalid, s.Stop, s.Start)
	}
	if s.GuessLimit < 0 || s.Parallel < 0 {
		return fmt.Errorf("%w: negative guess_limit or parallel", ErrInvalid)
	}
	if s.Noise != nil && s.Noise.Bandwidth == 0 {
		s.Noise.Bandwidth = DefaultBandwidth
	}
	if len(c.Elements) == 0 {
		return fmt.Errorf("%w: no elements", ErrInvalid)
	}

	models := make(map[string]bool)
	for _, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("%w: model without a name", ErrInvalid)
		}
		if models[m.Name] {
			return fmt.Errorf("%w: model %s defined twice", ErrInvalid, m.Name)
		}
		models[m.Name] = true
	}
	for i, el := range c.Elements {
		if _, err := device.ParseKind(el.Kind); err != nil {
			return fmt.Errorf("%w: element %d: %v", ErrInvalid, i, err)
		}
		if el.Source != nil {
			if err := el.Source.validate(); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalid, el.Label, err)
			}
		}
	}
	if _, err := c.Requests(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (c *Config) Mode() device.Mode {
	m, _ := device.ParseMode(c.Simulation.Mode)
	return m
}

// Steps is the number of simulated steps.
func (c *Config) Steps() int {
	s := c.Simulation
	return int(math.Round((s.Stop - s.Start) / s.Step))
}

func (c *Config) Requests() ([]circuit.Request, error) {
	reqs := make([]circuit.Request, 0, len(c.Outputs))
	for _, o := range c.Outputs {
		r, err := circuit.ParseRequest(o)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}

// ModelMap indexes the model cards by name.
func (c *Config) ModelMap() map[string]device.Model {
	out := make(map[string]device.Model, len(c.Models))
	for _, m := range c.Models {
		out[m.Name] = device.Model(m)
	}
	return out
}

// ToElements converts the deck into the normalized device list with
// source waveforms sampled on the time grid.
func (c *Config) ToElements() ([]circuit.Element, error) {
	s := c.Simulation
	n := c.Steps()
	out := make([]circuit.Element, 0, len(c.Elements))
	for _, ec := range c.Elements {
		kind, err := device.ParseKind(ec.Kind)
		if err != nil {
			return nil, err
		}
		el := circuit.Element{
			Kind:        kind,
			Label:       ec.Label,
			Nodes:       ec.Nodes,
			Value:       ec.Value,
			Delay:       ec.Delay,
			Model:       ec.Model,
			Area:        ec.Area,
			IC:          ec.IC,
			Temperature: ec.Temperature,
		}
		if kind == device.KindMutual {
			if len(ec.Couples) != 2 {
				return nil, fmt.Errorf("%s: mutual coupling needs two inductors", ec.Label)
			}
			el.Couples = [2]string{ec.Couples[0], ec.Couples[1]}
		}
		if ec.Source != nil {
			el.Samples = ec.Source.Sample(s.Start, s.Step, n)
		}
		out = append(out, el)
	}
	return out, nil
}

// Assemble builds the circuit for the deck. A non-zero seed overrides the
// deck's noise seed.
func (c *Config) Assemble(log *slog.Logger, seed uint64) (*circuit.Assembly, error) {
	els, err := c.ToElements()
	if err != nil {
		return nil, err
	}
	opts := circuit.Options{
		Mode:       c.Mode(),
		Step:       c.Simulation.Step,
		Models:     c.ModelMap(),
		GuessLimit: c.Simulation.GuessLimit,
		Logger:     log,
	}
	if nz := c.Simulation.Noise; nz != nil {
		if seed == 0 {
			seed = c.Simulation.Seed
		}
		opts.Noise = &circuit.NoiseOptions{Temperature: nz.Temperature, Bandwidth: nz.Bandwidth, Seed: seed}
	}
	return circuit.New(els, circuit.NodeMap(els), opts)
}

// Junctions lists the junction labels in deck order.
func (c *Config) Junctions() []string {
	var out []string
	for _, el := range c.Elements {
		if el.Kind == device.KindJunction.String() {
			out = append(out, el.Label)
		}
	}
	return out
}
