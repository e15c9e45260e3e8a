// Package automation runs scripted relaxation scenarios and parameter sweeps.
package automation

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/molsim/internal/config"
	"github.com/san-kum/molsim/internal/elements"
	"github.com/san-kum/molsim/internal/experiment"
	"github.com/san-kum/molsim/internal/logging"
	"github.com/san-kum/molsim/internal/sim"
	"github.com/san-kum/molsim/internal/storage"
)

// Scenario defines a scripted sequence of relaxation runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run of a scenario. Zero fields keep the base
// configuration's value.
type ScenarioStep struct {
	Preset      string             `yaml:"preset"`
	Steps       int                `yaml:"steps"`
	Seed        int64              `yaml:"seed"`
	SampleEvery int                `yaml:"sample_every"`
	Tolerance   float64            `yaml:"tolerance"`
	Params      map[string]float64 `yaml:"params"`
	Save        bool               `yaml:"save"`
}

// Outcome is the result of one scenario step.
type Outcome struct {
	Step   int
	Preset string
	RunID  string
	Result *sim.Result
}

// Runner executes scenarios against a base configuration.
type Runner struct {
	base  *config.Config
	table *elements.Table
	store *storage.Store
	log   logging.Logger
}

// NewRunner returns a runner. store may be nil, in which case steps asking
// to be saved are an error.
func NewRunner(base *config.Config, table *elements.Table, store *storage.Store, log logging.Logger) *Runner {
	if log == nil {
		log = logging.Nop{}
	}
	return &Runner{base: base, table: table, store: store, log: log}
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}

	return &scenario, nil
}

func (r *Runner) stepConfig(step ScenarioStep) (*config.Config, error) {
	cfg, err := experiment.WithParams(r.base, step.Params)
	if err != nil {
		return nil, err
	}
	if step.Preset != "" {
		cfg.Preset, cfg.Molecule = step.Preset, nil
	}
	if step.Steps > 0 {
		cfg.Steps = step.Steps
	}
	if step.Seed != 0 {
		cfg.Seed = step.Seed
	}
	if step.SampleEvery > 0 {
		cfg.SampleEvery = step.SampleEvery
	}
	if step.Tolerance > 0 {
		cfg.Tolerance = step.Tolerance
	}
	return cfg, cfg.Validate()
}

// RunScenario executes all steps in order and stops at the first failure.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := r.stepConfig(step)
		if err != nil {
			return outcomes, fmt.Errorf("step %d: %w", i+1, err)
		}
		name := cfg.MoleculeSpec().Name
		r.log.Infof("running step %d/%d: %s", i+1, len(scenario.Steps), name)

		exp := experiment.New(cfg, r.table, r.log)
		if err := exp.Setup(); err != nil {
			return outcomes, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return outcomes, fmt.Errorf("step %d run: %w", i+1, err)
		}

		out := Outcome{Step: i + 1, Preset: name, Result: result}
		if step.Save {
			if r.store == nil {
				return outcomes, fmt.Errorf("step %d: no store to save to", i+1)
			}
			if out.RunID, err = exp.Record(r.store, result); err != nil {
				return outcomes, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}

// ParameterSweep relaxes one preset across evenly spaced values of one
// force field parameter.
type ParameterSweep struct {
	Preset    string
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds the outcome of one sweep point
type SweepResult struct {
	ParamValue  float64
	StepsTaken  int
	Converged   bool
	Stable      bool
	FinalStrain float64
	MaxForce    float64
}

// RunSweep executes a parameter sweep. Points with invalid parameter values
// are an error; runs that blow up are reported as unstable.
func (r *Runner) RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one point, got %d", sweep.NumSteps)
	}
	results := make([]SweepResult, 0, sweep.NumSteps)

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg, err := r.stepConfig(ScenarioStep{
			Preset: sweep.Preset,
			Params: map[string]float64{sweep.ParamName: paramVal},
		})
		if err != nil {
			return results, err
		}

		exp := experiment.New(cfg, r.table, logging.Nop{})
		if err := exp.Setup(); err != nil {
			return results, err
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, err
		}

		results = append(results, SweepResult{
			ParamValue:  paramVal,
			StepsTaken:  result.StepsTaken,
			Converged:   result.Converged,
			Stable:      len(result.Errors) == 0,
			FinalStrain: result.Metrics["bond_strain"],
			MaxForce:    result.Metrics["max_force"],
		})

		r.log.Debugf("sweep %d/%d: %s=%.4g", i+1, sweep.NumSteps, sweep.ParamName, paramVal)
	}

	return results, nil
}
