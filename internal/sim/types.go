package sim

import (
	"fmt"

	"github.com/san-kum/molsim/internal/molecule"
	"github.com/san-kum/molsim/internal/storage"
)

// Observer is notified after every step of a run.
type Observer interface {
	OnStep(step int, sol *molecule.Solution, stats molecule.StepStats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(step int, sol *molecule.Solution, stats molecule.StepStats)

func (f ObserverFunc) OnStep(step int, sol *molecule.Solution, stats molecule.StepStats) {
	f(step, sol, stats)
}

type Config struct {
	// Steps is the maximum number of relaxation steps.
	Steps int
	// SampleEvery is the step interval between recorded frames and metric samples.
	SampleEvery int
	// Tolerance stops the run once the largest force falls below it. Zero
	// disables early stopping.
	Tolerance float64
	// ValidateState aborts the run when an atom leaves finite space.
	ValidateState bool
}

type Result struct {
	Frames     []storage.Frame
	Series     storage.Series
	Metrics    map[string]float64
	StepsTaken int
	Converged  bool
	Errors     []error
}

// SimError reports a step at which the solution became invalid.
type SimError struct {
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d: %s", e.Step, e.Message)
}
