package analysis

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/jjsim/internal/circuit"
	"github.com/san-kum/jjsim/internal/config"
	"github.com/san-kum/jjsim/internal/experiment"
)

// IVPoint is one bias point of a current-voltage sweep.
type IVPoint struct {
	Bias    float64
	Voltage float64
	Slips   int
}

type IVOptions struct {
	// Source is the label of the bias source driven at each DC level.
	Source string
	// Junction is the label of the junction whose voltage is averaged.
	Junction string
	Biases   []float64
	// Settle is the fraction of the window discarded before averaging.
	// Zero means one half.
	Settle  float64
	Workers int
}

// IVCurve runs the deck once per bias level and records the mean junction
// voltage after the settling part of the window.
func IVCurve(ctx context.Context, deck *config.Config, opts IVOptions) ([]IVPoint, error) {
	if len(opts.Biases) == 0 {
		return nil, fmt.Errorf("iv curve needs at least one bias level")
	}
	settle := opts.Settle
	if settle == 0 {
		settle = 0.5
	}
	vreq := circuit.Request{Quantity: circuit.QuantityVoltage, Name: opts.Junction}
	preq := circuit.Request{Quantity: circuit.QuantityPhase, Name: opts.Junction}

	points := make([]IVPoint, len(opts.Biases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Workers))
	for i, bias := range opts.Biases {
		g.Go(func() error {
			d := deck.Clone()
			if err := d.SetParam(opts.Source, bias); err != nil {
				return err
			}
			d.Outputs = []string{vreq.String(), preq.String()}
			if err := d.Validate(); err != nil {
				return err
			}
			exp := experiment.New(d, 0, nil)
			if err := exp.Setup(nil); err != nil {
				return err
			}
			res, err := exp.Run(gctx)
			if err != nil {
				return fmt.Errorf("bias %g: %w", bias, err)
			}
			v, ok := res.Trace(vreq.String())
			p, okp := res.Trace(preq.String())
			if !ok || !okp {
				return fmt.Errorf("no junction %q in deck", opts.Junction)
			}
			from := int(settle * float64(len(v)))
			if from >= len(v) {
				return ErrShortTrace
			}
			points[i] = IVPoint{
				Bias:    bias,
				Voltage: stat.Mean(v[from:], nil),
				Slips:   slips(p),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// slips counts whole 2π advances of the phase over the trace.
func slips(p []float64) int {
	if len(p) < 2 {
		return 0
	}
	return int(math.Abs(p[len(p)-1]-p[0]) / (2 * math.Pi))
}

// SwitchingBias returns the first bias at which the junction left the
// zero-voltage state, or false if it never did.
func SwitchingBias(points []IVPoint, threshold float64) (float64, bool) {
	for _, p := range points {
		if p.Slips > 0 || (threshold > 0 && p.Voltage > threshold) {
			return p.Bias, true
		}
	}
	return 0, false
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
