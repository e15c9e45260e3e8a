// Package metrics observes a relaxing solution step by step.
package metrics

import "github.com/san-kum/molsim/internal/molecule"

// Metric accumulates one scalar from successive simulation steps.
type Metric interface {
	Name() string
	Observe(sol *molecule.Solution, stats molecule.StepStats)
	Value() float64
	Reset()
}

// Defaults returns the metrics recorded for every relaxation run.
func Defaults(p molecule.Params) []Metric {
	return []Metric{
		NewKineticEnergy(),
		NewMaxForce(),
		NewBondStrain(p.LengthScale),
		NewStability(),
	}
}
