package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/molsim/internal/molecule"
)

// KineticEnergy reports sum(m*v^2/2) after the latest step, in the
// simulation's per-tick units.
type KineticEnergy struct {
	name   string
	energy float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(sol *molecule.Solution, stats molecule.StepStats) {
	k.energy = 0
	for _, a := range sol.Atoms() {
		k.energy += 0.5 * a.Mass * r3.Norm2(a.Velocity())
	}
}

func (k *KineticEnergy) Value() float64 { return k.energy }

func (k *KineticEnergy) Reset() { k.energy = 0 }
