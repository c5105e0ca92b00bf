package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/jjsim/internal/circuit"
	"github.com/san-kum/jjsim/internal/config"
	"github.com/san-kum/jjsim/internal/sim"
)

// Experiment runs one circuit deck.
type Experiment struct {
	deck      *config.Config
	log       *slog.Logger
	seed      uint64
	simulator *sim.Simulator
}

// New wraps a validated deck. A non-zero seed overrides the deck's noise
// seed.
func New(deck *config.Config, seed uint64, log *slog.Logger) *Experiment {
	if log == nil {
		log = slog.Default()
	}
	return &Experiment{deck: deck, seed: seed, log: log}
}

func (e *Experiment) Setup(metrics []sim.Metric) error {
	asm, err := e.deck.Assemble(e.log, e.seed)
	if err != nil {
		return err
	}
	e.simulator = sim.New(asm, e.log)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	return nil
}

// SimConfig translates the deck's simulation section.
func SimConfig(deck *config.Config) (sim.Config, error) {
	reqs, err := deck.Requests()
	if err != nil {
		return sim.Config{}, err
	}
	return sim.Config{
		Start:    deck.Simulation.Start,
		Stop:     deck.Simulation.Stop,
		Parallel: deck.Simulation.Parallel,
		Requests: reqs,
	}, nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	cfg, err := SimConfig(e.deck)
	if err != nil {
		return nil, err
	}
	return e.simulator.Run(ctx, cfg)
}

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Deck() *config.Config { return e.deck }

// Sweep repeats a noisy deck over consecutive seeds.
func Sweep(ctx context.Context, deck *config.Config, runs, workers int, metrics func() []sim.Metric) ([]*sim.Result, error) {
	if deck.Simulation.Noise == nil {
		return nil, errors.New("sweep needs a deck with noise enabled")
	}
	cfg, err := SimConfig(deck)
	if err != nil {
		return nil, err
	}
	seedStart := deck.Simulation.Seed
	if seedStart == 0 {
		seedStart = 1
	}
	build := func(seed uint64) (*circuit.Assembly, error) {
		return deck.Assemble(slog.Default(), seed)
	}
	return sim.NewEnsemble(build, runs, seedStart).
		WithMetrics(metrics).
		WithWorkers(workers).
		Run(ctx, cfg)
}
