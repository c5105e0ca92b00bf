package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/jjsim/internal/config"
	"github.com/san-kum/jjsim/internal/experiment"
	"github.com/san-kum/jjsim/internal/logging"
)

var (
	dataDir   string
	logLevel  string
	logFormat string

	log *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "jjsim",
		Short:        "transient simulator for superconducting josephson circuits",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logging.Config{
				Level:  logLevel,
				Format: logging.Format(logFormat),
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			log = l
			slog.SetDefault(l)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", ".jjsim", "run storage directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	rootCmd.AddCommand(
		newRunCmd(),
		newListCmd(),
		newShowCmd(),
		newPlotCmd(),
		newExportCmd(),
		newDeleteCmd(),
		newValidateCmd(),
		newModelsCmd(),
		newIVCmd(),
		newSpectrumCmd(),
		newBatchCmd(),
		newMarginsCmd(),
		newOptimizeCmd(),
	)
	return rootCmd
}

// loadDeck reads a deck file, or a preset when the argument names one.
func loadDeck(arg, preset string) (*config.Config, error) {
	switch {
	case preset != "":
		cfg := config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
		return cfg, nil
	case arg != "":
		return config.Load(arg)
	}
	return nil, errors.New("need a deck file or --preset")
}

func newValidateCmd() *cobra.Command {
	var preset string
	cmd := &cobra.Command{
		Use:   "validate [deck.yaml]",
		Short: "check a deck and report the assembled system size",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deck, err := loadDeck(firstArg(args), preset)
			if err != nil {
				return err
			}
			asm, err := deck.Assemble(log, 0)
			if err != nil {
				return err
			}
			reqs, err := deck.Requests()
			if err != nil {
				return err
			}
			_, warnings := asm.Relevant(reqs)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "deck:      %s\n", deck.Name)
			fmt.Fprintf(out, "mode:      %s\n", asm.Mode())
			fmt.Fprintf(out, "steps:     %d\n", deck.Steps())
			fmt.Fprintf(out, "nodes:     %d\n", asm.NodeCount())
			fmt.Fprintf(out, "unknowns:  %d\n", asm.Size())
			fmt.Fprintf(out, "nonzeros:  %d\n", asm.Matrix().NNZ())
			fmt.Fprintf(out, "junctions: %d\n", len(asm.Junctions()))
			for _, w := range warnings {
				fmt.Fprintf(out, "warning:   %s\n", w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "validate a built-in deck")
	return cmd
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "list built-in decks and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "presets:")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(out, "  %-10s %s, %d elements, %g s\n", name, cfg.Simulation.Mode, len(cfg.Elements), cfg.Simulation.Stop-cfg.Simulation.Start)
			}
			fmt.Fprintln(out, "\nmetrics:")
			for _, name := range experiment.NewRegistry().ListMetrics() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
