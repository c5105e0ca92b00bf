package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/jjsim/internal/sim"
)

type PlotOptions struct {
	Width  int
	Height int
}

func (o PlotOptions) defaults() PlotOptions {
	if o.Width == 0 {
		o.Width = 80
	}
	if o.Height == 0 {
		o.Height = 10
	}
	return o
}

var prefixes = []struct {
	exp    int
	symbol string
}{
	{-15, "f"}, {-12, "p"}, {-9, "n"}, {-6, "µ"}, {-3, "m"}, {0, ""}, {3, "k"}, {6, "M"},
}

// engineering picks the SI prefix that brings the largest magnitude in
// v into [1, 1000).
func engineering(v []float64) (scale float64, prefix string) {
	peak := 0.0
	for _, x := range v {
		if finite(x) {
			peak = math.Max(peak, math.Abs(x))
		}
	}
	if peak == 0 {
		return 1, ""
	}
	e := int(math.Floor(math.Log10(peak)/3)) * 3
	best := prefixes[0]
	for _, p := range prefixes {
		if p.exp <= e {
			best = p
		}
	}
	return math.Pow10(-best.exp), best.symbol
}

// unit maps a trace name to its physical unit.
func unit(name string) string {
	switch {
	case strings.HasPrefix(name, "V("):
		return "V"
	case strings.HasPrefix(name, "I("), strings.HasPrefix(name, "Is("):
		return "A"
	case strings.HasPrefix(name, "P("):
		return "rad"
	}
	return ""
}

// TracePlot renders one result series as an asciigraph chart with the
// values scaled to an SI prefix.
func TracePlot(r *sim.Result, name string, opts PlotOptions) (string, error) {
	vals, ok := r.Trace(name)
	if !ok {
		return "", fmt.Errorf("no trace %q", name)
	}
	if len(vals) == 0 {
		return "", fmt.Errorf("trace %q is empty", name)
	}
	opts = opts.defaults()

	u := unit(name)
	scale, prefix := 1.0, ""
	if u != "rad" {
		scale, prefix = engineering(vals)
	}
	data := make([]float64, len(vals))
	for i, v := range vals {
		data[i] = v * scale
	}

	caption := name
	if u != "" {
		caption = fmt.Sprintf("%s [%s%s]", name, prefix, u)
	}
	if len(r.Times) > 0 {
		ts, tp := engineering(r.Times)
		caption += fmt.Sprintf(" over %.4g..%.4g %ss", r.Times[0]*ts, r.Times[len(r.Times)-1]*ts, tp)
	}

	return asciigraph.Plot(data,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(caption),
	), nil
}

// TracePlots renders every named series, or all traces when names is empty.
func TracePlots(r *sim.Result, names []string, opts PlotOptions) (string, error) {
	if len(names) == 0 {
		names = r.Names()
	}
	var b strings.Builder
	for _, n := range names {
		g, err := TracePlot(r, n, opts)
		if err != nil {
			return "", err
		}
		b.WriteString(g)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// Summary renders run counters, warnings and metrics.
func Summary(title string, r *sim.Result) string {
	var b strings.Builder
	b.WriteString(Title.Render(title))
	b.WriteByte('\n')

	row := func(label, value string) {
		b.WriteString(MetricLabel.Render(label))
		b.WriteString(MetricValue.Render(value))
		b.WriteByte('\n')
	}
	row("mode", r.Mode)
	row("step", fmt.Sprintf("%g s", r.Step))
	row("steps", fmt.Sprint(r.Steps))
	row("refactors", fmt.Sprint(r.Refactors))
	row("elapsed", r.Duration.Round(time.Microsecond).String())

	if len(r.Metrics) > 0 {
		names := make([]string, 0, len(r.Metrics))
		for n := range r.Metrics {
			names = append(names, n)
		}
		sort.Strings(names)
		b.WriteByte('\n')
		for _, n := range names {
			row(n, fmt.Sprintf("%.6g", r.Metrics[n]))
		}
	}

	for _, w := range r.Warnings {
		b.WriteString(StatusWarn.Render("warning: " + w.String()))
		b.WriteByte('\n')
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}
