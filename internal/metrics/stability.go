package metrics

import "github.com/san-kum/molsim/internal/molecule"

// Stability is the fraction of observed steps after which every atom still
// had a finite position and velocity.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(sol *molecule.Solution, stats molecule.StepStats) {
	s.samples++
	if !sol.Valid() {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
