package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/jjsim/internal/config"
	"github.com/san-kum/jjsim/internal/experiment"
	"github.com/san-kum/jjsim/internal/sim"
	"github.com/san-kum/jjsim/internal/storage"
	"github.com/san-kum/jjsim/internal/telemetry"
	"github.com/san-kum/jjsim/internal/viz"
)

type runOptions struct {
	preset      string
	mode        string
	step        float64
	stop        float64
	seed        uint64
	parallel    int
	metrics     []string
	metricsFile string
	noSave      bool
	tui         bool
	plot        bool
	runs        int
}

func newRunCmd() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run [deck.yaml]",
		Short: "run a transient simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deck, err := loadDeck(firstArg(args), o.preset)
			if err != nil {
				return err
			}
			if err := o.apply(cmd, deck); err != nil {
				return err
			}
			if o.runs > 1 {
				return runSweep(cmd, deck, o)
			}
			return runDeck(cmd, deck, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.preset, "preset", "", "run a built-in deck")
	f.StringVar(&o.mode, "mode", "", "override analysis mode (voltage, phase)")
	f.Float64Var(&o.step, "step", 0, "override time step (s)")
	f.Float64Var(&o.stop, "stop", 0, "override stop time (s)")
	f.Uint64Var(&o.seed, "seed", 0, "noise seed (0 keeps the deck's)")
	f.IntVar(&o.parallel, "parallel", 0, "worker count for rhs assembly and junction updates")
	f.StringSliceVar(&o.metrics, "metrics", nil, "metrics to compute (default: all)")
	f.StringVar(&o.metricsFile, "metrics-file", "", "write prometheus counters to this textfile")
	f.BoolVar(&o.noSave, "no-save", false, "do not store the run")
	f.BoolVar(&o.tui, "tui", false, "show a live progress view")
	f.BoolVar(&o.plot, "plot", false, "plot traces in the terminal after the run")
	f.IntVar(&o.runs, "runs", 1, "repeat a noisy deck over consecutive seeds")
	return cmd
}

// apply folds flag overrides into the deck; flags win over deck values.
func (o *runOptions) apply(cmd *cobra.Command, deck *config.Config) error {
	s := &deck.Simulation
	if cmd.Flags().Changed("mode") {
		s.Mode = o.mode
	}
	if cmd.Flags().Changed("step") {
		s.Step = o.step
	}
	if cmd.Flags().Changed("stop") {
		s.Stop = o.stop
	}
	if cmd.Flags().Changed("seed") {
		s.Seed = o.seed
	}
	if cmd.Flags().Changed("parallel") {
		s.Parallel = o.parallel
	}
	return deck.Validate()
}

func (o *runOptions) metricSet(deck *config.Config) ([]sim.Metric, error) {
	reg := experiment.NewRegistry()
	if len(o.metrics) == 0 {
		return reg.DefaultMetrics(deck.Junctions()), nil
	}
	return reg.Metrics(o.metrics, deck.Junctions())
}

func runDeck(cmd *cobra.Command, deck *config.Config, o runOptions) error {
	ms, err := o.metricSet(deck)
	if err != nil {
		return err
	}
	exp := experiment.New(deck, 0, log)
	if err := exp.Setup(ms); err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	exp.Simulator().SetRecorder(telemetry.NewRecorder(promReg))

	out := cmd.OutOrStdout()
	var result *sim.Result
	if o.tui {
		result, err = viz.RunWithProgress(cmd.Context(), deck.Name, func(ctx context.Context, obs sim.Observer) (*sim.Result, error) {
			exp.Simulator().AddObserver(obs)
			return exp.Run(ctx)
		})
	} else {
		fmt.Fprintf(out, "running %s (%d steps)...\n", deck.Name, deck.Steps())
		result, err = exp.Run(cmd.Context())
	}
	if err != nil {
		var re *sim.RunError
		if errors.As(err, &re) {
			log.Error("simulation failed", "step", re.Step, "time", re.Time, "device", re.Label, "err", re.Err)
		}
		if result == nil || !errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Fprintf(out, "canceled after %d steps\n", result.Steps)
	}

	if o.metricsFile != "" {
		if err := telemetry.WriteTextfile(o.metricsFile, promReg); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, viz.Summary(deck.Name, result))
	if o.plot {
		if err := printPlots(out, result, nil); err != nil {
			return err
		}
	}

	if o.noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(deck, result)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run id: %s\n", runID)
	return nil
}

func runSweep(cmd *cobra.Command, deck *config.Config, o runOptions) error {
	if _, err := o.metricSet(deck); err != nil {
		return err
	}
	results, err := experiment.Sweep(cmd.Context(), deck, o.runs, max(1, o.parallel), func() []sim.Metric {
		ms, _ := o.metricSet(deck)
		return ms
	})
	if err != nil {
		return err
	}

	names := make(map[string]bool)
	for _, r := range results {
		for n := range r.Metrics {
			names[n] = true
		}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d runs of %s\n", len(results), deck.Name)
	for _, n := range sortedKeys(names) {
		mean, std := meanStd(results, n)
		fmt.Fprintf(out, "  %-24s %.6g ± %.3g\n", n, mean, std)
	}
	return nil
}

func meanStd(results []*sim.Result, name string) (mean, std float64) {
	for _, r := range results {
		mean += r.Metrics[name]
	}
	mean /= float64(len(results))
	for _, r := range results {
		d := r.Metrics[name] - mean
		std += d * d
	}
	return mean, math.Sqrt(std / float64(len(results)))
}

func printPlots(out io.Writer, r *sim.Result, names []string) error {
	g, err := viz.TracePlots(r, names, viz.PlotOptions{})
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, g)
	return err
}
