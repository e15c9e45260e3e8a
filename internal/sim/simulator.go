// Package sim drives a solution through repeated relaxation steps while
// recording frames and metrics.
package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/molsim/internal/metrics"
	"github.com/san-kum/molsim/internal/molecule"
	"github.com/san-kum/molsim/internal/storage"
)

type Simulator struct {
	sol       *molecule.Solution
	metrics   []metrics.Metric
	observers []Observer
}

func New(sol *molecule.Solution) *Simulator {
	return &Simulator{
		sol:       sol,
		metrics:   make([]metrics.Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m metrics.Metric)   { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)       { s.observers = append(s.observers, o) }
func (s *Simulator) Solution() *molecule.Solution { return s.sol }

// Run relaxes the solution for up to cfg.Steps steps. The first and last
// states are always recorded as frames.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	rec := metrics.NewRecorder(cfg.SampleEvery, s.metrics...)
	rec.Reset()

	result := &Result{
		Frames:  make([]storage.Frame, 0, cfg.Steps/cfg.SampleEvery+2),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}
	result.Frames = append(result.Frames, storage.Snapshot(0, s.sol))

	lastFrame := 0
	for step := 1; step <= cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			s.finish(result, rec, lastFrame)
			return result, ctx.Err()
		default:
		}

		stats := s.sol.SimulationStep()
		result.StepsTaken = step

		if rec.Observe(step, s.sol, stats) {
			result.Frames = append(result.Frames, storage.Snapshot(step, s.sol))
			lastFrame = step
		}
		for _, obs := range s.observers {
			obs.OnStep(step, s.sol, stats)
		}

		if cfg.ValidateState && !s.sol.Valid() {
			result.Errors = append(result.Errors, SimError{Step: step, Message: "invalid state (NaN/Inf)"})
			break
		}
		if cfg.Tolerance > 0 && stats.MaxForce < cfg.Tolerance {
			result.Converged = true
			break
		}
	}

	s.finish(result, rec, lastFrame)
	return result, nil
}

func (s *Simulator) finish(result *Result, rec *metrics.Recorder, lastFrame int) {
	if result.StepsTaken > lastFrame {
		result.Frames = append(result.Frames, storage.Snapshot(result.StepsTaken, s.sol))
	}

	result.Series = storage.Series{
		Steps:  append([]int(nil), rec.Steps()...),
		Values: make(map[string][]float64),
	}
	for _, name := range rec.Names() {
		result.Series.Values[name] = append([]float64(nil), rec.Series(name)...)
	}
	for name, v := range rec.Values() {
		result.Metrics[name] = v
	}
}

func validateConfig(cfg Config) error {
	if cfg.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", cfg.Steps)
	}
	if cfg.SampleEvery <= 0 {
		return fmt.Errorf("sample interval must be positive, got %d", cfg.SampleEvery)
	}
	if cfg.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %g", cfg.Tolerance)
	}
	return nil
}

// RunWithCallback steps until the callback returns false or the step budget
// runs out. Nothing is recorded.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(step int, stats molecule.StepStats) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	for step := 1; step <= cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stats := s.sol.SimulationStep()
		if !callback(step, stats) {
			return nil
		}

		if cfg.ValidateState && !s.sol.Valid() {
			return fmt.Errorf("invalid state at step %d", step)
		}
	}

	return nil
}
