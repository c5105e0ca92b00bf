package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/jjsim/internal/config"
	"github.com/san-kum/jjsim/internal/experiment"
	"github.com/san-kum/jjsim/internal/sim"
)

// Scenario is a scripted sequence of deck runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep runs one deck, given as a file or a preset name, with
// optional element overrides.
type ScenarioStep struct {
	Deck    string             `yaml:"deck,omitempty"`
	Preset  string             `yaml:"preset,omitempty"`
	Mode    string             `yaml:"mode,omitempty"`
	Stop    float64            `yaml:"stop,omitempty"`
	Params  map[string]float64 `yaml:"params,omitempty"`
	Metrics []string           `yaml:"metrics,omitempty"`
	SaveAs  string             `yaml:"save_as,omitempty"`
}

// StepResult pairs a finished step with its deck.
type StepResult struct {
	Name   string
	Deck   *config.Config
	Result *sim.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Deck resolves the step's deck and applies its overrides.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var deck *config.Config
	switch {
	case s.Preset != "":
		deck = config.GetPreset(s.Preset)
		if deck == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	case s.Deck != "":
		var err error
		if deck, err = config.Load(s.Deck); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("step needs a deck or a preset")
	}
	if s.Mode != "" {
		deck.Simulation.Mode = s.Mode
	}
	if s.Stop != 0 {
		deck.Simulation.Stop = s.Stop
	}
	for label, v := range s.Params {
		if err := deck.SetParam(label, v); err != nil {
			return nil, err
		}
	}
	return deck, deck.Validate()
}

// RunScenario executes all steps in order and stops at the first failure.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, log *slog.Logger) ([]StepResult, error) {
	if log == nil {
		log = slog.Default()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		deck, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		name := step.SaveAs
		if name == "" {
			name = fmt.Sprintf("%s-%d", deck.Name, i+1)
		}
		log.Info("scenario step", "step", i+1, "of", len(scenario.Steps), "name", name)

		metrics := registry.DefaultMetrics(deck.Junctions())
		if len(step.Metrics) > 0 {
			if metrics, err = registry.Metrics(step.Metrics, deck.Junctions()); err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
		}

		exp := experiment.New(deck, 0, log)
		if err := exp.Setup(metrics); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Name: name, Deck: deck, Result: result})
	}
	return results, nil
}

// MonteCarloConfig spreads element values around their nominal values
// to estimate circuit margins.
type MonteCarloConfig struct {
	Deck *config.Config
	// Params are the element labels to perturb.
	Params []string
	// Spread is the relative uniform spread, 0.1 for ±10%.
	Spread float64
	Trials int
	Seed   uint64
	// Pass decides whether a trial worked. Nil accepts every completed run.
	Pass func(*sim.Result) bool
}

type MonteCarloResult struct {
	Trial   int
	Params  map[string]float64
	Metrics map[string]float64
	Pass    bool
	Err     error
}

// RunMonteCarlo executes the trials serially. A trial whose simulation
// fails is recorded as failing, not returned as an error.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry) ([]MonteCarloResult, error) {
	if cfg.Trials < 1 {
		return nil, fmt.Errorf("monte carlo needs at least one trial")
	}
	nominal := make(map[string]float64, len(cfg.Params))
	for _, label := range cfg.Params {
		v, err := cfg.Deck.Param(label)
		if err != nil {
			return nil, err
		}
		nominal[label] = v
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, 0x6a6a73696d))
	results := make([]MonteCarloResult, 0, cfg.Trials)

	for trial := 0; trial < cfg.Trials; trial++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		deck := cfg.Deck.Clone()
		params := make(map[string]float64, len(cfg.Params))
		for _, label := range cfg.Params {
			v := nominal[label] * (1 + (rng.Float64()-0.5)*2*cfg.Spread)
			params[label] = v
			if err := deck.SetParam(label, v); err != nil {
				return nil, err
			}
		}

		mr := MonteCarloResult{Trial: trial, Params: params}
		exp := experiment.New(deck, 0, nil)
		if err := exp.Setup(registry.DefaultMetrics(deck.Junctions())); err != nil {
			return nil, err
		}
		result, err := exp.Run(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return results, ctx.Err()
		case err != nil:
			mr.Err = err
		default:
			mr.Metrics = result.Metrics
			mr.Pass = cfg.Pass == nil || cfg.Pass(result)
		}
		results = append(results, mr)
	}
	return results, nil
}

// MonteCarloStats counts passing and failing trials.
func MonteCarloStats(results []MonteCarloResult) (passCount int, failCount int) {
	for _, r := range results {
		if r.Pass {
			passCount++
		} else {
			failCount++
		}
	}
	return
}
