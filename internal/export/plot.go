package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/jjsim/internal/sim"
)

type PlotOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	// Names selects the series to draw. Empty draws every trace.
	Names []string
}

func (o PlotOptions) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w == 0 {
		w = 8 * vg.Inch
	}
	if h == 0 {
		h = 4 * vg.Inch
	}
	return w, h
}

// NewPlot draws the selected series against time.
func NewPlot(r *sim.Result, opts PlotOptions) (*plot.Plot, error) {
	if len(r.Times) == 0 {
		return nil, ErrNoData
	}
	names := opts.Names
	if len(names) == 0 {
		names = r.Names()
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "time (s)"
	p.Add(plotter.NewGrid())

	for i, name := range names {
		vals, ok := r.Trace(name)
		if !ok {
			return nil, fmt.Errorf("export: no series %q", name)
		}
		pts := make(plotter.XYs, len(vals))
		for k, v := range vals {
			pts[k].X = r.Times[k]
			pts[k].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("export: %s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// SavePlot writes a plot image; the format follows the file extension
// (png, svg, pdf, eps, jpg).
func SavePlot(path string, r *sim.Result, opts PlotOptions) error {
	p, err := NewPlot(r, opts)
	if err != nil {
		return err
	}
	w, h := opts.size()
	return p.Save(w, h, path)
}

// WritePlot renders a plot in the given format to w.
func WritePlot(out io.Writer, format string, r *sim.Result, opts PlotOptions) error {
	p, err := NewPlot(r, opts)
	if err != nil {
		return err
	}
	w, h := opts.size()
	wt, err := p.WriterTo(w, h, strings.TrimPrefix(format, "."))
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(out)
	return err
}

// FormatOf returns the image format implied by a file name.
func FormatOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
