package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/jjsim/internal/circuit"
	"github.com/san-kum/jjsim/internal/device"
	"github.com/san-kum/jjsim/internal/sparse"
)

type Simulator struct {
	asm       *circuit.Assembly
	metrics   []Metric
	observers []Observer
	recorder  Recorder
	log       *slog.Logger
}

func New(asm *circuit.Assembly, log *slog.Logger) *Simulator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Simulator{
		asm:       asm,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		log:       log,
	}
}

func (s *Simulator) AddMetric(m Metric)          { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)      { s.observers = append(s.observers, o) }
func (s *Simulator) SetRecorder(r Recorder)      { s.recorder = r }
func (s *Simulator) Assembly() *circuit.Assembly { return s.asm }

// Steps returns the number of steps a config runs for.
func (s *Simulator) Steps(cfg Config) int {
	return int(math.Round((cfg.Stop - cfg.Start) / s.asm.Step()))
}

func (s *Simulator) validateConfig(cfg Config) error {
	if math.IsNaN(cfg.Start) || math.IsNaN(cfg.Stop) || cfg.Stop <= cfg.Start {
		return fmt.Errorf("stop %g must be after start %g: %w", cfg.Stop, cfg.Start, ErrInvalidConfig)
	}
	if s.Steps(cfg) < 1 {
		return fmt.Errorf("interval %g shorter than one step %g: %w", cfg.Stop-cfg.Start, s.asm.Step(), ErrInvalidConfig)
	}
	if cfg.Parallel < 0 || cfg.ProgressEvery < 0 {
		return fmt.Errorf("negative parallel or progress cadence: %w", ErrInvalidConfig)
	}
	return nil
}

// Run executes the fixed-step transient loop. Each step builds the RHS,
// solves with the current factors, records the relevant unknowns, updates
// the junctions (refactoring when a stamped value changed) and commits
// history. Cancelling ctx stops between steps and returns the partial
// result with ctx.Err().
func (s *Simulator) Run(ctx context.Context, cfg Config) (result *Result, err error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	started := time.Now()
	if s.recorder != nil {
		s.recorder.RunStarted(s.asm.Mode().String())
		defer func() { s.recorder.RunFinished(time.Since(started), err) }()
	}

	asm := s.asm
	h := asm.Step()
	steps := s.Steps(cfg)

	var traces []circuit.Trace
	var warns []circuit.Warning
	if len(cfg.Requests) == 0 {
		traces = asm.DefaultTraces()
	} else {
		traces, warns = asm.Relevant(cfg.Requests)
	}
	junctions := asm.Junctions()

	result = &Result{
		Mode:          asm.Mode().String(),
		Step:          h,
		Times:         make([]float64, 0, steps),
		Traces:        make([]Series, len(traces)),
		SuperCurrents: make([]Series, len(junctions)),
		Warnings:      warns,
		Metrics:       make(map[string]float64),
	}
	for k, t := range traces {
		result.Traces[k] = Series{Name: t.Name, Values: make([]float64, 0, steps)}
	}
	for k, jh := range junctions {
		result.SuperCurrents[k] = Series{Name: "Is(" + asm.Device(jh).Label() + ")", Values: make([]float64, 0, steps)}
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	num, err := s.factor()
	if err != nil {
		return nil, err
	}

	every := cfg.ProgressEvery
	if every == 0 {
		every = max(1, steps/100)
	}
	reported := 0
	workers := max(1, cfg.Parallel)
	x := make([]float64, asm.Size())
	devices := asm.Devices()

	fail := func(err error) (*Result, error) {
		s.finish(result, traces, started)
		return result, err
	}

	s.log.Info("starting transient run",
		"mode", result.Mode,
		"step", h,
		"steps", steps,
		"unknowns", asm.Size(),
		"junctions", len(junctions),
		"workers", workers)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		default:
		}
		t := cfg.Start + float64(i)*h

		if err := s.buildRHS(i, x, workers); err != nil {
			return fail(&RunError{Step: i, Time: t, Err: err})
		}
		if err := num.Solve(x); err != nil {
			return fail(&RunError{Step: i, Time: t, Err: err})
		}

		result.Times = append(result.Times, t)
		for k, tr := range traces {
			result.Traces[k].Values = append(result.Traces[k].Values, tr.Value(x, asm, i))
		}

		changed, err := s.updateNonlinear(i, x, workers)
		for k, jh := range junctions {
			is := asm.Device(jh).(device.Injector).Injection(i + 1)
			result.SuperCurrents[k].Values = append(result.SuperCurrents[k].Values, is)
		}
		if err != nil {
			var re *RunError
			if errors.As(err, &re) {
				re.Time = t
			}
			s.log.Error("junction update failed", "step", i, "err", err)
			return fail(err)
		}
		if changed {
			if err := num.Refactor(asm.CreateCSR()); err != nil {
				return fail(s.singular(i, t, err))
			}
			result.Refactors++
			if s.recorder != nil {
				s.recorder.Refactored()
			}
		}

		sample := Sample{Step: i, Time: t, X: x, Assembly: asm}
		for _, m := range s.metrics {
			m.Observe(sample)
		}

		for _, d := range devices {
			d.StepBack(x)
		}
		result.Steps++

		if (i+1)%every == 0 || i+1 == steps {
			if s.recorder != nil {
				s.recorder.StepsDone(i + 1 - reported)
			}
			reported = i + 1
			p := Progress{Step: i + 1, Total: steps, Time: t}
			for _, o := range s.observers {
				o.OnStep(p)
			}
		}
	}

	s.finish(result, traces, started)
	s.log.Info("transient run finished",
		"steps", result.Steps,
		"refactors", result.Refactors,
		"duration", result.Duration)
	return result, nil
}

// finish converts the recorded traces and collects metrics. It also runs
// for partial results.
func (s *Simulator) finish(r *Result, traces []circuit.Trace, started time.Time) {
	for k, tr := range traces {
		convert(r.Traces[k].Values, tr.Convert, r.Step)
	}
	for _, m := range s.metrics {
		r.Metrics[m.Name()] = m.Value()
	}
	r.Duration = time.Since(started)
}

// factor analyzes and factors the matrix as assembled.
func (s *Simulator) factor() (*sparse.Numeric, error) {
	m := s.asm.Matrix()
	sym, err := sparse.Analyze(m, sparse.DefaultOptions())
	if err != nil {
		return nil, s.singular(0, 0, err)
	}
	num, err := sparse.Factor(sym, m)
	if err != nil {
		return nil, s.singular(0, 0, err)
	}
	s.log.Debug("factored system", "nnz", m.NNZ(), "fill", sym.Fill())
	return num, nil
}

// singular attaches the label owning the failing row.
func (s *Simulator) singular(step int, t float64, err error) error {
	re := &RunError{Step: step, Time: t, Err: err}
	var se *sparse.SingularError
	if errors.As(err, &se) && se.Row >= 0 && se.Row < s.asm.Size() {
		re.Label = s.rowLabel(se.Row)
	}
	s.log.Error("singular system", "step", step, "label", re.Label, "err", err)
	return re
}

func (s *Simulator) rowLabel(row int) string {
	d := s.asm.Rows()[row]
	if d.Device < 0 {
		return "node " + s.asm.NodeName(row)
	}
	return s.asm.Device(d.Device).Label()
}
