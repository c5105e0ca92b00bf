package sim

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/jjsim/internal/circuit"
	"github.com/san-kum/jjsim/internal/device"
)

// chunks splits [0, n) into at most k contiguous ranges.
func chunks(n, k int) [][2]int {
	if k > n {
		k = n
	}
	if k < 1 {
		return nil
	}
	out := make([][2]int, 0, k)
	size := (n + k - 1) / k
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}

// buildRHS writes the right-hand side of step i into b. Branch rows come
// from their devices, node rows from the incident injections. Ranges are
// disjoint, so workers never share a row.
func (s *Simulator) buildRHS(i int, b []float64, workers int) error {
	devices := s.asm.Devices()
	conns := s.asm.Connections()
	nodes := s.asm.NodeCount()

	deviceRange := func(lo, hi int) {
		for h := lo; h < hi; h++ {
			d := devices[h]
			if n := d.Branches(); n > 0 {
				first := d.(interface{ First() int }).First()
				d.RHS(i, b[first:first+n])
			}
		}
	}
	nodeRange := func(lo, hi int) {
		for r := lo; r < hi; r++ {
			var v float64
			for _, c := range conns[r] {
				v += c.Sign * devices[c.Device].(device.Injector).Injection(i)
			}
			b[r] = v
		}
	}

	if workers < 2 {
		deviceRange(0, len(devices))
		nodeRange(0, nodes)
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, c := range chunks(len(devices), workers) {
		g.Go(func() error {
			deviceRange(c[0], c[1])
			return nil
		})
	}
	for _, c := range chunks(nodes, workers) {
		g.Go(func() error {
			nodeRange(c[0], c[1])
			return nil
		})
	}
	return g.Wait()
}

// updateNonlinear runs every nonlinear device's update and reports whether
// any stamped value changed. The error of the lowest-index failing device
// wins so the outcome does not depend on scheduling.
func (s *Simulator) updateNonlinear(i int, x []float64, workers int) (bool, error) {
	handles := s.asm.Nonlinear()
	changed := make([]bool, len(handles))
	errs := make([]error, len(handles))

	update := func(k int) {
		d := s.asm.Device(handles[k]).(device.Nonlinear)
		changed[k], errs[k] = d.Update(i, x)
	}

	if workers < 2 || len(handles) < 2 {
		for k := range handles {
			update(k)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(workers)
		for k := range handles {
			g.Go(func() error {
				update(k)
				return nil
			})
		}
		_ = g.Wait()
	}

	dirty := false
	for k, err := range errs {
		if err != nil {
			return false, &RunError{Step: i, Label: s.asm.Device(handles[k]).Label(), Err: err}
		}
		dirty = dirty || changed[k]
	}
	return dirty, nil
}

// Builder constructs a fresh assembly for one ensemble member.
type Builder func(seed uint64) (*circuit.Assembly, error)

// Ensemble repeats a run over consecutive noise seeds.
type Ensemble struct {
	build     Builder
	metrics   func() []Metric
	numRuns   int
	seedStart uint64
	workers   int
}

func NewEnsemble(build Builder, numRuns int, seedStart uint64) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, seedStart: seedStart, workers: numRuns}
}

// WithMetrics sets a factory for per-run metric instances.
func (e *Ensemble) WithMetrics(f func() []Metric) *Ensemble {
	e.metrics = f
	return e
}

// WithWorkers bounds the number of concurrent runs.
func (e *Ensemble) WithWorkers(n int) *Ensemble {
	e.workers = n
	return e
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	if e.numRuns < 1 {
		return nil, errors.New("ensemble needs at least one run")
	}
	results := make([]*Result, e.numRuns)

	g, gctx := errgroup.WithContext(ctx)
	if e.workers > 0 {
		g.SetLimit(e.workers)
	}
	for idx := 0; idx < e.numRuns; idx++ {
		g.Go(func() error {
			asm, err := e.build(e.seedStart + uint64(idx))
			if err != nil {
				return err
			}
			sim := New(asm, nil)
			if e.metrics != nil {
				for _, m := range e.metrics() {
					sim.AddMetric(m)
				}
			}
			results[idx], err = sim.Run(gctx, cfg)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
