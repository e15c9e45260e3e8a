// Package optim searches force field parameters for the fastest or
// tightest relaxation.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/molsim/internal/experiment"
	"github.com/san-kum/molsim/internal/sim"
)

// StepsMetric scores a run by the number of steps it took.
const StepsMetric = "steps"

var ErrNoResult = errors.New("optim: no grid point produced a result")

// BuildFunc prepares an experiment for one grid point.
type BuildFunc func(params map[string]float64) (*experiment.Experiment, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: empty range for %s", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Score extracts the value minimised by the search. Unstable runs score +Inf.
func Score(result *sim.Result, metricName string) float64 {
	if len(result.Errors) > 0 {
		return math.Inf(1)
	}
	if metricName == StepsMetric {
		return float64(result.StepsTaken)
	}
	v, ok := result.Metrics[metricName]
	if !ok || math.IsNaN(v) {
		return math.Inf(1)
	}
	return v
}

// Search runs every grid point and returns the parameters with the lowest
// score. Points whose build or run fails are skipped.
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, metricName string) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), build, metricName, &best, &bestParams); err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoResult
	}

	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build BuildFunc,
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		exp, err := build(current)
		if err != nil {
			return nil
		}
		if err := exp.Setup(); err != nil {
			return nil
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return nil
		}

		val := Score(result, metricName)
		if val < *best || (*bestParams == nil && !math.IsInf(val, 1)) {
			*best = val
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

		if err := g.searchRecursive(ctx, depth+1, newParams, build, metricName, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
