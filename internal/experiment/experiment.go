// Package experiment turns a configuration into a built solution, relaxes
// it and records the run.
package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/molsim/internal/config"
	"github.com/san-kum/molsim/internal/editor"
	"github.com/san-kum/molsim/internal/elements"
	"github.com/san-kum/molsim/internal/logging"
	"github.com/san-kum/molsim/internal/metrics"
	"github.com/san-kum/molsim/internal/molecule"
	"github.com/san-kum/molsim/internal/sim"
	"github.com/san-kum/molsim/internal/storage"
)

type Experiment struct {
	cfg       *config.Config
	table     *elements.Table
	log       logging.Logger
	editor    *editor.Editor
	simulator *sim.Simulator
}

func New(cfg *config.Config, table *elements.Table, log logging.Logger) *Experiment {
	if log == nil {
		log = logging.Nop{}
	}
	return &Experiment{cfg: cfg, table: table, log: log}
}

// Build realises the configured molecule into a fresh solution using the
// given jitter seed.
func Build(cfg *config.Config, table *elements.Table, seed int64, log logging.Logger) (*editor.Editor, error) {
	spec := cfg.MoleculeSpec()
	if spec == nil {
		return nil, fmt.Errorf("%w: unknown preset %q", config.ErrInvalidConfig, cfg.Preset)
	}

	sol := molecule.NewSolution()
	if err := sol.SetParams(cfg.Params); err != nil {
		return nil, err
	}
	ed := editor.New(sol, table,
		editor.WithSeed(seed),
		editor.WithJitter(cfg.Jitter),
		editor.WithLogger(log),
	)
	if _, err := spec.Build(ed); err != nil {
		return nil, fmt.Errorf("build %s: %w", spec.Name, err)
	}
	return ed, nil
}

// WithParams returns a copy of cfg with force field parameters overridden by
// name.
func WithParams(cfg *config.Config, overrides map[string]float64) (*config.Config, error) {
	ff := molecule.NewForceField(cfg.Params)
	for name, v := range overrides {
		if err := ff.SetParam(name, v); err != nil {
			return nil, err
		}
	}
	out := *cfg
	out.Params = ff.Params
	return &out, nil
}

// Setup builds the solution and attaches the default metrics.
func (e *Experiment) Setup() error {
	ed, err := Build(e.cfg, e.table, e.cfg.Seed, e.log)
	if err != nil {
		return err
	}
	e.editor = ed
	e.simulator = sim.New(ed.Solution())
	for _, m := range metrics.Defaults(e.cfg.Params) {
		e.simulator.AddMetric(m)
	}
	e.log.Debugf("built %s: %d atoms, %d bonds", e.name(), ed.Solution().NumAtoms(), ed.Solution().NumBonds())
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	return e.simulator.Run(ctx, e.SimConfig())
}

// RunEnsemble relaxes n copies of the configured molecule with consecutive
// seeds starting at the configured one.
func (e *Experiment) RunEnsemble(ctx context.Context, n int) ([]*sim.Result, error) {
	build := func(seed int64) (*molecule.Solution, error) {
		ed, err := Build(e.cfg, e.table, seed, logging.Nop{})
		if err != nil {
			return nil, err
		}
		return ed.Solution(), nil
	}
	return sim.NewEnsemble(build, n, e.cfg.Seed).Run(ctx, e.SimConfig())
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Steps:         e.cfg.Steps,
		SampleEvery:   e.cfg.SampleEvery,
		Tolerance:     e.cfg.Tolerance,
		ValidateState: true,
	}
}

// Record saves a finished run to the store.
func (e *Experiment) Record(st *storage.Store, result *sim.Result) (string, error) {
	meta := storage.RunMetadata{
		Preset:      e.name(),
		Seed:        e.cfg.Seed,
		Steps:       result.StepsTaken,
		SampleEvery: e.cfg.SampleEvery,
		Converged:   result.Converged,
		Diverged:    len(result.Errors) > 0,
		Params:      e.cfg.Params,
		Metrics:     result.Metrics,
	}
	if e.editor != nil {
		meta.Atoms = e.editor.Solution().NumAtoms()
		meta.Bonds = e.editor.Solution().NumBonds()
	}
	return st.Save(meta, result.Frames, result.Series)
}

func (e *Experiment) name() string {
	if spec := e.cfg.MoleculeSpec(); spec != nil && spec.Name != "" {
		return spec.Name
	}
	return e.cfg.Preset
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

// Editor returns the editor bound to the built solution.
func (e *Experiment) Editor() *editor.Editor {
	return e.editor
}
