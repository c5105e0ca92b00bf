package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/jjsim/internal/analysis"
	"github.com/san-kum/jjsim/internal/automation"
	"github.com/san-kum/jjsim/internal/experiment"
	"github.com/san-kum/jjsim/internal/optim"
	"github.com/san-kum/jjsim/internal/sim"
	"github.com/san-kum/jjsim/internal/storage"
	"github.com/san-kum/jjsim/internal/viz"
)

func newIVCmd() *cobra.Command {
	var (
		preset   string
		source   string
		junction string
		from, to float64
		points   int
		workers  int
	)
	cmd := &cobra.Command{
		Use:   "iv [deck.yaml]",
		Short: "sweep a DC bias and trace the junction I-V curve",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deck, err := loadDeck(firstArg(args), preset)
			if err != nil {
				return err
			}
			if junction == "" {
				js := deck.Junctions()
				if len(js) == 0 {
					return fmt.Errorf("deck has no junctions")
				}
				junction = js[0]
			}
			pts, err := analysis.IVCurve(cmd.Context(), deck, analysis.IVOptions{
				Source:   source,
				Junction: junction,
				Biases:   analysis.Linspace(from, to, points),
				Workers:  workers,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "BIAS\tVOLTAGE\tSLIPS")
			bs := make([]float64, len(pts))
			vs := make([]float64, len(pts))
			for i, p := range pts {
				fmt.Fprintf(w, "%.4g\t%.4g\t%d\n", p.Bias, p.Voltage, p.Slips)
				bs[i], vs[i] = p.Bias, p.Voltage
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if len(pts) > 1 {
				fmt.Fprintf(out, "\nbias vs V(%s)\n%s", junction, viz.Portrait(vs, bs, 40, 10))
			}
			if ic, ok := analysis.SwitchingBias(pts, 0); ok {
				fmt.Fprintf(out, "switching bias: %.4g\n", ic)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&preset, "preset", "", "use a built-in deck")
	f.StringVar(&source, "source", "I1", "bias source label")
	f.StringVar(&junction, "junction", "", "junction label (default: first junction)")
	f.Float64Var(&from, "from", 0, "first bias level")
	f.Float64Var(&to, "to", 2e-3, "last bias level")
	f.IntVar(&points, "points", 11, "number of bias levels")
	f.IntVar(&workers, "workers", 4, "concurrent runs")
	return cmd
}

func newSpectrumCmd() *cobra.Command {
	var trace string
	cmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "show the spectrum of a stored trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := storage.New(dataDir).LoadTraces(args[0])
			if err != nil {
				return err
			}
			vals, ok := r.Trace(trace)
			if !ok {
				return fmt.Errorf("no trace %q (have %s)", trace, strings.Join(r.Names(), ", "))
			}
			freqs, amps, err := analysis.Spectrum(vals, r.Step)
			if err != nil {
				return err
			}
			f0, err := analysis.DominantFrequency(vals, r.Step)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s spectrum, %d bins up to %.4g Hz\n", trace, len(freqs), freqs[len(freqs)-1])
			fmt.Fprintln(out, viz.Sparkline(amps[1:], 72))
			fmt.Fprintf(out, "dominant: %.4g Hz\n", f0)
			if strings.HasPrefix(trace, "V(") {
				fmt.Fprintf(out, "josephson voltage at that frequency: %.4g V\n", analysis.VoltageFromFrequency(f0))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&trace, "trace", "", "trace name, e.g. V(B1)")
	_ = cmd.MarkFlagRequired("trace")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var noSave bool
	cmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted sequence of decks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			results, err := automation.RunScenario(cmd.Context(), sc, experiment.NewRegistry(), log)
			out := cmd.OutOrStdout()
			st := storage.New(dataDir)
			for _, r := range results {
				fmt.Fprintln(out, viz.Summary(r.Name, r.Result))
				if noSave {
					continue
				}
				if err := st.Init(); err != nil {
					return err
				}
				id, err := st.Save(r.Deck, r.Result)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "run id: %s\n", id)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")
	return cmd
}

func newMarginsCmd() *cobra.Command {
	var (
		preset   string
		params   []string
		spread   float64
		trials   int
		seed     uint64
		maxSlips float64
	)
	cmd := &cobra.Command{
		Use:   "margins [deck.yaml]",
		Short: "monte carlo spread of element values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deck, err := loadDeck(firstArg(args), preset)
			if err != nil {
				return err
			}
			junctions := deck.Junctions()
			results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
				Deck:   deck,
				Params: params,
				Spread: spread,
				Trials: trials,
				Seed:   seed,
				Pass: func(r *sim.Result) bool {
					for _, j := range junctions {
						if r.Metrics["phase_slips("+j+")"] > maxSlips {
							return false
						}
					}
					return true
				},
			}, experiment.NewRegistry())
			if err != nil {
				return err
			}
			pass, fail := automation.MonteCarloStats(results)
			fmt.Fprintf(cmd.OutOrStdout(), "%d trials: %d pass, %d fail (yield %.1f%%)\n",
				len(results), pass, fail, 100*float64(pass)/float64(len(results)))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&preset, "preset", "", "use a built-in deck")
	f.StringSliceVar(&params, "param", nil, "element labels to spread")
	f.Float64Var(&spread, "spread", 0.1, "relative uniform spread")
	f.IntVar(&trials, "trials", 20, "number of trials")
	f.Uint64Var(&seed, "seed", 1, "random seed")
	f.Float64Var(&maxSlips, "max-slips", 0, "phase slips per junction a passing trial may show")
	_ = cmd.MarkFlagRequired("param")
	return cmd
}

func newOptimizeCmd() *cobra.Command {
	var (
		preset string
		grid   []string
		metric string
	)
	cmd := &cobra.Command{
		Use:   "optimize [deck.yaml]",
		Short: "grid search element values minimizing a metric",
		Long:  "Each --grid flag is LABEL=v1:v2:... and the search covers every combination.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deck, err := loadDeck(firstArg(args), preset)
			if err != nil {
				return err
			}
			names, ranges, err := parseGrid(grid)
			if err != nil {
				return err
			}
			best, val, points, err := optim.NewGridSearch(names, ranges).Search(cmd.Context(), deck, experiment.NewRegistry(), metric)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "evaluated %d points, best %s = %.6g at", len(points), metric, val)
			keys := make([]string, 0, len(best))
			for k := range best {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, " %s=%g", k, best[k])
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&preset, "preset", "", "use a built-in deck")
	f.StringArrayVar(&grid, "grid", nil, "LABEL=v1:v2:...")
	f.StringVar(&metric, "metric", "stability", "metric to minimize")
	_ = cmd.MarkFlagRequired("grid")
	return cmd
}

func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, s := range specs {
		label, list, ok := strings.Cut(s, "=")
		if !ok || label == "" || list == "" {
			return nil, nil, fmt.Errorf("bad grid %q, want LABEL=v1:v2", s)
		}
		var vals []float64
		for _, f := range strings.Split(list, ":") {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", label, err)
			}
			vals = append(vals, v)
		}
		names = append(names, label)
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}
