package sim

import (
	"context"
	"sync"

	"github.com/san-kum/molsim/internal/metrics"
	"github.com/san-kum/molsim/internal/molecule"
)

// Factory builds a fresh solution for one ensemble member.
type Factory func(seed int64) (*molecule.Solution, error)

// Ensemble relaxes several independently seeded copies of a structure
// concurrently. Each member owns its own solution.
type Ensemble struct {
	build     Factory
	metrics   func(molecule.Params) []metrics.Metric
	numRuns   int
	seedStart int64
}

func NewEnsemble(build Factory, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{build: build, metrics: metrics.Defaults, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			sol, err := e.build(e.seedStart + int64(idx))
			if err != nil {
				errs[idx] = err
				return
			}

			sim := New(sol)
			for _, m := range e.metrics(sol.Params()) {
				sim.AddMetric(m)
			}

			results[idx], errs[idx] = sim.Run(ctx, cfg)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
