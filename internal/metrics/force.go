package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/molsim/internal/molecule"
)

// MaxForce reports the largest force magnitude of the latest step.
type MaxForce struct {
	name  string
	value float64
}

func NewMaxForce() *MaxForce {
	return &MaxForce{name: "max_force"}
}

func (m *MaxForce) Name() string { return m.name }

func (m *MaxForce) Observe(sol *molecule.Solution, stats molecule.StepStats) {
	m.value = stats.MaxForce
}

func (m *MaxForce) Value() float64 { return m.value }
func (m *MaxForce) Reset()         { m.value = 0 }

// BondStrain reports the mean relative deviation |r - r0| / r0 of every bond
// from its natural length.
type BondStrain struct {
	name        string
	lengthScale float64
	value       float64
}

func NewBondStrain(lengthScale float64) *BondStrain {
	return &BondStrain{name: "bond_strain", lengthScale: lengthScale}
}

func (b *BondStrain) Name() string { return b.name }

func (b *BondStrain) Observe(sol *molecule.Solution, stats molecule.StepStats) {
	bonds := sol.Bonds()
	if len(bonds) == 0 || b.lengthScale <= 0 {
		b.value = 0
		return
	}
	total := 0.0
	counted := 0
	for _, bond := range bonds {
		a1, ok1 := sol.Atom(bond.Atom1())
		a2, ok2 := sol.Atom(bond.Atom2())
		natural := bond.Length() / b.lengthScale
		if !ok1 || !ok2 || natural <= 0 {
			continue
		}
		r := r3.Norm(r3.Sub(a2.Position(), a1.Position()))
		total += math.Abs(r-natural) / natural
		counted++
	}
	if counted == 0 {
		b.value = 0
		return
	}
	b.value = total / float64(counted)
}

func (b *BondStrain) Value() float64 { return b.value }
func (b *BondStrain) Reset()         { b.value = 0 }
