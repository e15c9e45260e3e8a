package molecule_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/molsim/internal/molecule"
)

var _ = Describe("ForceField", func() {
	var sol *molecule.Solution

	BeforeEach(func() {
		sol = molecule.NewSolution()
	})

	// pair places a carbon at the origin and a hydrogen at +X bonded with the
	// given natural separation.
	pair := func(natural float64) (*molecule.Atom, *molecule.Atom) {
		a := molecule.NewAtom(r3.Vec{}, "C", 6, 12, 0.91, "")
		b := molecule.NewAtom(r3.Vec{X: 1}, "H", 1, 1, 0.79, "")
		sol.AddAtom(a)
		sol.AddAtom(b)
		_, err := sol.AddBond(a.ID(), b.ID(), molecule.BondParams{
			Length: natural * molecule.DefaultLengthScale,
			Energy: 413,
			Order:  molecule.Single,
		})
		Expect(err).NotTo(HaveOccurred())
		return a, b
	}

	It("does nothing on an empty solution", func() {
		Expect(sol.SimulationStep()).To(Equal(molecule.StepStats{}))
	})

	It("leaves a pair at equilibrium untouched", func() {
		Expect(sol.SetParams(springOnly())).To(Succeed())
		a, b := pair(1)

		stats := sol.SimulationStep()

		Expect(r3.Norm(a.Force())).To(BeNumerically("~", 0, 1e-15))
		Expect(r3.Norm(b.Force())).To(BeNumerically("~", 0, 1e-15))
		Expect(a.Position()).To(Equal(r3.Vec{}))
		Expect(b.Position()).To(Equal(r3.Vec{X: 1}))
		Expect(stats.Bonded).To(Equal(2))
	})

	It("pushes a compressed pair apart", func() {
		Expect(sol.SetParams(springOnly())).To(Succeed())
		a, b := pair(2)

		sol.SimulationStep()

		Expect(a.Force().X).To(BeNumerically("<", 0))
		Expect(b.Force().X).To(BeNumerically(">", 0))
		Expect(a.Position().X).To(BeNumerically("<", 0))
		Expect(b.Position().X).To(BeNumerically(">", 1))
	})

	It("pulls a stretched pair together", func() {
		Expect(sol.SetParams(springOnly())).To(Succeed())
		a, b := pair(0.5)

		sol.SimulationStep()

		k := 413 / molecule.DefaultEnergyScale
		Expect(a.Force().X).To(BeNumerically("~", k*0.5, 1e-15))
		Expect(b.Force().X).To(BeNumerically("~", -k*0.5, 1e-15))
	})

	It("damps with the receiving atom's own velocity", func() {
		p := springOnly()
		p.Damping = 0.01
		Expect(sol.SetParams(p)).To(Succeed())
		a, b := pair(1)
		a.SetVelocity(r3.Vec{Y: 2})

		sol.SimulationStep()

		Expect(a.Force().Y).To(BeNumerically("~", -0.02, 1e-12))
		Expect(b.Force().Y).To(BeNumerically("~", 0, 1e-12))
	})

	It("applies n*(n-1) pairwise contributions", func() {
		atoms := []*molecule.Atom{
			carbon(r3.Vec{}),
			carbon(r3.Vec{X: 1}),
			carbon(r3.Vec{Y: 1}),
		}
		for _, a := range atoms {
			sol.AddAtom(a)
		}

		stats := sol.SimulationStep()

		Expect(stats.Pairwise).To(Equal(6))
		Expect(stats.Bonded).To(BeZero())
		Expect(stats.Integrated).To(Equal(3))
		// the atom at the origin is pushed away from both others
		Expect(atoms[0].Force().X).To(BeNumerically("<", 0))
		Expect(atoms[0].Force().Y).To(BeNumerically("<", 0))
	})

	It("uses the inverse square of the separation", func() {
		p := molecule.DefaultParams()
		p.Damping = 0
		Expect(sol.SetParams(p)).To(Succeed())
		a := carbon(r3.Vec{})
		b := carbon(r3.Vec{X: 2})
		sol.AddAtom(a)
		sol.AddAtom(b)

		sol.SimulationStep()

		q := a.Radius()
		Expect(a.Force().X).To(BeNumerically("~", -molecule.DefaultCoulomb*q*q/4, 1e-18))
		Expect(b.Force().X).To(BeNumerically("~", molecule.DefaultCoulomb*q*q/4, 1e-18))
	})

	It("never moves an anchored atom", func() {
		a, b := pair(2)
		c := hydrogen(r3.Vec{Y: 0.5})
		sol.AddAtom(c)
		a.SetAnchor(true)
		start := a.Position()

		var stats molecule.StepStats
		for i := 0; i < 200; i++ {
			stats = sol.SimulationStep()
		}

		Expect(a.Position()).To(Equal(start))
		Expect(a.Velocity()).To(Equal(r3.Vec{}))
		Expect(a.Force()).NotTo(Equal(r3.Vec{}))
		Expect(b.Position()).NotTo(Equal(r3.Vec{X: 1}))
		Expect(stats.Integrated).To(Equal(2))
	})

	It("stays finite when atoms coincide", func() {
		a := carbon(r3.Vec{})
		b := hydrogen(r3.Vec{})
		sol.AddAtom(a)
		sol.AddAtom(b)
		_, err := sol.AddBond(a.ID(), b.ID(), single)
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 10; i++ {
			sol.SimulationStep()
		}

		Expect(sol.Valid()).To(BeTrue())
		Expect(math.IsNaN(a.Position().X)).To(BeFalse())
	})

	It("relaxes a stretched bond toward its natural length", func() {
		a, b := pair(0.5)
		a.SetAnchor(true)

		for i := 0; i < 2000; i++ {
			sol.SimulationStep()
		}

		r := r3.Norm(r3.Sub(b.Position(), a.Position()))
		Expect(r).To(BeNumerically("<", 1))
		Expect(sol.Valid()).To(BeTrue())
	})
})
