package molecule_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/molsim/internal/molecule"
)

var _ = Describe("Atom", func() {
	It("starts at rest with no bonds and no anchor", func() {
		a := carbon(r3.Vec{X: 1, Y: 2, Z: 3})
		Expect(a.Position()).To(Equal(r3.Vec{X: 1, Y: 2, Z: 3}))
		Expect(a.Velocity()).To(Equal(r3.Vec{}))
		Expect(a.Force()).To(Equal(r3.Vec{}))
		Expect(a.Anchored()).To(BeFalse())
		Expect(a.Bonds()).To(BeEmpty())
		Expect(a.ID()).To(Equal(molecule.AtomID(0)))
	})

	It("normalises the radius and keeps it positive", func() {
		a := carbon(r3.Vec{})
		Expect(a.Radius()).To(BeNumerically("~", 0.91/3.3+1e-5, 1e-12))

		a.RawRadius = 0
		Expect(a.Radius()).To(BeNumerically(">", 0))
		Expect(a.Radius()).To(Equal(molecule.RadiusEpsilon))
	})

	It("accumulates and overwrites force", func() {
		a := carbon(r3.Vec{})
		a.ApplyForce(r3.Vec{X: 1})
		a.ApplyForce(r3.Vec{X: 2, Y: -1})
		Expect(a.Force()).To(Equal(r3.Vec{X: 3, Y: -1}))

		a.SetForce(r3.Vec{})
		Expect(a.Force()).To(Equal(r3.Vec{}))
	})

	It("integrates velocity then position with forward Euler", func() {
		a := molecule.NewAtom(r3.Vec{}, "X", 0, 2, 1, "")
		a.SetForce(r3.Vec{X: 0.02})

		a.UpdateVelocity(100)
		Expect(a.Velocity().X).To(BeNumerically("~", 1.0, 1e-12))

		a.UpdatePosition()
		Expect(a.Position().X).To(BeNumerically("~", 1.0, 1e-12))
	})

	It("does not move when massless", func() {
		a := molecule.NewAtom(r3.Vec{}, "X", 0, 0, 1, "")
		a.SetForce(r3.Vec{X: 1})
		a.UpdateVelocity(100)
		Expect(a.Velocity()).To(Equal(r3.Vec{}))
	})

	It("sets single coordinates directly", func() {
		a := carbon(r3.Vec{})
		a.SetX(1)
		a.SetY(2)
		a.SetZ(3)
		Expect(a.Position()).To(Equal(r3.Vec{X: 1, Y: 2, Z: 3}))
	})

	It("returns a copy of its adjacency map", func() {
		sol := molecule.NewSolution()
		a := sol.AddAtom(carbon(r3.Vec{}))
		b := sol.AddAtom(hydrogen(r3.Vec{X: 1}))
		_, err := sol.AddBond(a, b, molecule.BondParams{Length: 109, Energy: 413, Order: molecule.Single})
		Expect(err).NotTo(HaveOccurred())

		atom, _ := sol.Atom(a)
		bonds := atom.Bonds()
		delete(bonds, b)
		Expect(atom.BondedWith(b)).To(BeTrue())
		Expect(atom.Degree()).To(Equal(1))
	})
})
