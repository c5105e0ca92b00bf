package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/jjsim/internal/config"
	"github.com/san-kum/jjsim/internal/experiment"
)

var ErrNoFeasible = errors.New("optim: no grid point produced the metric")

// GridSearch evaluates every combination of element values and keeps the
// one that minimizes a metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Point is one evaluated combination.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Search runs the deck at every grid point. Points whose simulation fails
// are recorded and skipped; a canceled context stops the search.
func (g *GridSearch) Search(
	ctx context.Context,
	deck *config.Config,
	registry *experiment.Registry,
	metricName string,
) (best map[string]float64, bestVal float64, points []Point, err error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, nil, fmt.Errorf("optim: %d params but %d ranges", len(g.paramNames), len(g.ranges))
	}
	bestVal = math.Inf(1)
	err = g.searchRecursive(ctx, 0, make(map[string]float64), deck, registry, metricName, &bestVal, &best, &points)
	if err != nil {
		return nil, 0, points, err
	}
	if best == nil {
		return nil, 0, points, ErrNoFeasible
	}
	return best, bestVal, points, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	deck *config.Config,
	registry *experiment.Registry,
	metricName string,
	best *float64,
	bestParams *map[string]float64,
	points *[]Point,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		p := Point{Params: current, Value: math.NaN()}
		p.Value, p.Err = g.evaluate(ctx, deck, registry, current, metricName)
		if p.Err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		*points = append(*points, p)

		if p.Err == nil && p.Value < *best {
			*best = p.Value
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, deck, registry, metricName, best, bestParams, points); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, deck *config.Config, registry *experiment.Registry, params map[string]float64, metricName string) (float64, error) {
	d := deck.Clone()
	for label, v := range params {
		if err := d.SetParam(label, v); err != nil {
			return 0, err
		}
	}
	if err := d.Validate(); err != nil {
		return 0, err
	}
	exp := experiment.New(d, 0, nil)
	if err := exp.Setup(registry.DefaultMetrics(d.Junctions())); err != nil {
		return 0, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	val, ok := result.Metrics[metricName]
	if !ok {
		return 0, fmt.Errorf("optim: no metric %q", metricName)
	}
	return val, nil
}
