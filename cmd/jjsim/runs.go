package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/jjsim/internal/export"
	"github.com/san-kum/jjsim/internal/sim"
	"github.com/san-kum/jjsim/internal/storage"
	"github.com/san-kum/jjsim/internal/viz"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir).List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDECK\tTIME\tMODE\tSTEP\tSTEPS\tREFACTORS")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%d\t%d\n",
					run.ID[:8],
					run.Deck,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Mode,
					run.Step,
					run.Steps,
					run.Refactors,
				)
			}
			return w.Flush()
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			r, err := st.LoadTraces(meta.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run:    %s\n", meta.ID)
			fmt.Fprintf(out, "stored: %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "window: %g .. %g s\n", meta.Start, meta.Stop)
			if meta.Seed != 0 {
				fmt.Fprintf(out, "seed:   %d\n", meta.Seed)
			}
			fmt.Fprintln(out, viz.Summary(meta.Deck, r))
			for _, w := range meta.Warnings {
				fmt.Fprintln(out, viz.StatusWarn.Render("warning: "+w))
			}
			fmt.Fprintln(out)
			for _, name := range append(r.Names(), superNames(r)...) {
				vals, _ := r.Trace(name)
				fmt.Fprintf(out, "%-12s %s\n", name, viz.Sparkline(vals, 60))
			}
			return nil
		},
	}
}

func newPlotCmd() *cobra.Command {
	var (
		traces   []string
		outPath  string
		portrait string
		width    int
		height   int
	)
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal or to an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			r, err := st.LoadTraces(meta.ID)
			if err != nil {
				return err
			}
			if len(r.Times) == 0 {
				return fmt.Errorf("no data to plot")
			}

			out := cmd.OutOrStdout()
			switch {
			case outPath != "":
				if err := export.SavePlot(outPath, r, export.PlotOptions{Title: meta.Deck, Names: traces}); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s\n", outPath)
				return nil
			case portrait != "":
				x, y, ok := strings.Cut(portrait, ",")
				if !ok {
					return fmt.Errorf("portrait wants two comma-separated traces, got %q", portrait)
				}
				xs, okx := r.Trace(x)
				ys, oky := r.Trace(y)
				if !okx || !oky {
					return fmt.Errorf("no trace %q or %q", x, y)
				}
				fmt.Fprintf(out, "%s vs %s\n", y, x)
				fmt.Fprint(out, viz.Portrait(xs, ys, width/2, height))
				return nil
			}

			g, err := viz.TracePlots(r, traces, viz.PlotOptions{Width: width, Height: height})
			if err != nil {
				return err
			}
			fmt.Fprint(out, g)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&traces, "trace", nil, "traces to plot (default: all)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write an image (png, svg, pdf) instead")
	cmd.Flags().StringVar(&portrait, "portrait", "", "draw Y against X, e.g. P(B1),V(B1)")
	cmd.Flags().IntVar(&width, "width", 80, "plot width in columns")
	cmd.Flags().IntVar(&height, "height", 10, "plot height in rows")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		format  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as json or csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			r, err := st.LoadTraces(meta.ID)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			switch format {
			case "json":
				return export.WriteJSON(w, meta.Deck, r)
			case "csv":
				return export.WriteCSV(w, r)
			}
			return fmt.Errorf("unknown export format %q", format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or csv")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).Delete(args[0])
		},
	}
}

func superNames(r *sim.Result) []string {
	out := make([]string, len(r.SuperCurrents))
	for i, s := range r.SuperCurrents {
		out[i] = s.Name
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
