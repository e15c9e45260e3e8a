package molecule_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/molsim/internal/molecule"
)

var single = molecule.BondParams{Length: 109, Energy: 413, Order: molecule.Single}

func atomIDs(atoms []*molecule.Atom) []molecule.AtomID {
	ids := make([]molecule.AtomID, len(atoms))
	for i, a := range atoms {
		ids[i] = a.ID()
	}
	return ids
}

func bondIDs(bonds []*molecule.Bond) []molecule.BondID {
	ids := make([]molecule.BondID, len(bonds))
	for i, b := range bonds {
		ids[i] = b.ID()
	}
	return ids
}

var _ = Describe("Solution", func() {
	var sol *molecule.Solution

	BeforeEach(func() {
		sol = molecule.NewSolution()
	})

	Describe("adding", func() {
		It("assigns stable ids and ignores repeated inserts", func() {
			c := carbon(r3.Vec{})
			id := sol.AddAtom(c)
			Expect(id).NotTo(BeZero())
			Expect(sol.AddAtom(c)).To(Equal(id))
			Expect(sol.NumAtoms()).To(Equal(1))
		})

		It("records a new bond on both endpoints", func() {
			a := sol.AddAtom(carbon(r3.Vec{}))
			b := sol.AddAtom(hydrogen(r3.Vec{X: 1}))

			bid, err := sol.AddBond(a, b, single)
			Expect(err).NotTo(HaveOccurred())

			atomA, _ := sol.Atom(a)
			atomB, _ := sol.Atom(b)
			Expect(atomA.BondedWith(b)).To(BeTrue())
			Expect(atomB.BondedWith(a)).To(BeTrue())
			Expect(atomA.Bonds()).To(Equal(map[molecule.AtomID]molecule.BondID{b: bid}))
			Expect(atomB.Bonds()).To(Equal(map[molecule.AtomID]molecule.BondID{a: bid}))
			Expect(sol.NumBonds()).To(Equal(1))
		})

		It("keeps a single bond per neighbour pair", func() {
			a := sol.AddAtom(carbon(r3.Vec{}))
			b := sol.AddAtom(hydrogen(r3.Vec{X: 1}))
			first, err := sol.AddBond(a, b, single)
			Expect(err).NotTo(HaveOccurred())

			_, err = sol.AddBond(b, a, single)
			Expect(err).To(MatchError(molecule.ErrAlreadyBonded))
			Expect(sol.NumBonds()).To(Equal(1))

			atomA, _ := sol.Atom(a)
			Expect(atomA.Bonds()).To(HaveKeyWithValue(b, first))
		})

		It("rejects self bonds and non-members", func() {
			a := sol.AddAtom(carbon(r3.Vec{}))

			_, err := sol.AddBond(a, a, single)
			Expect(err).To(MatchError(molecule.ErrSelfBond))

			_, err = sol.AddBond(a, molecule.AtomID(99), single)
			Expect(err).To(MatchError(molecule.ErrUnknownAtom))
			Expect(sol.NumBonds()).To(BeZero())
		})
	})

	Describe("removing", func() {
		var c, h1, h2, h3 molecule.AtomID
		var ch1, ch2, h2h3 molecule.BondID

		BeforeEach(func() {
			var err error
			c = sol.AddAtom(carbon(r3.Vec{}))
			h1 = sol.AddAtom(hydrogen(r3.Vec{X: 1}))
			h2 = sol.AddAtom(hydrogen(r3.Vec{Y: 1}))
			h3 = sol.AddAtom(hydrogen(r3.Vec{Z: 1}))
			ch1, err = sol.AddBond(c, h1, single)
			Expect(err).NotTo(HaveOccurred())
			ch2, err = sol.AddBond(c, h2, single)
			Expect(err).NotTo(HaveOccurred())
			h2h3, err = sol.AddBond(h2, h3, single)
			Expect(err).NotTo(HaveOccurred())
		})

		It("cascades exactly the incident bonds when an atom goes", func() {
			sol.RemoveAtom(c)

			Expect(atomIDs(sol.Atoms())).To(Equal([]molecule.AtomID{h1, h2, h3}))
			Expect(bondIDs(sol.Bonds())).To(Equal([]molecule.BondID{h2h3}))

			atomH1, _ := sol.Atom(h1)
			atomH2, _ := sol.Atom(h2)
			Expect(atomH1.Bonds()).To(BeEmpty())
			Expect(atomH2.Bonds()).To(Equal(map[molecule.AtomID]molecule.BondID{h3: h2h3}))

			_, ok := sol.Bond(ch1)
			Expect(ok).To(BeFalse())
			_, ok = sol.Bond(ch2)
			Expect(ok).To(BeFalse())
		})

		It("detaches a bond from both endpoints", func() {
			sol.RemoveBond(ch2)

			atomC, _ := sol.Atom(c)
			atomH2, _ := sol.Atom(h2)
			Expect(atomC.BondedWith(h2)).To(BeFalse())
			Expect(atomH2.BondedWith(c)).To(BeFalse())
			Expect(atomC.BondedWith(h1)).To(BeTrue())
			Expect(sol.NumBonds()).To(Equal(2))
		})

		It("treats unknown ids as no-ops", func() {
			sol.RemoveAtom(molecule.AtomID(42))
			sol.RemoveBond(molecule.BondID(42))
			sol.RemoveBond(ch1)
			sol.RemoveBond(ch1)
			Expect(sol.NumAtoms()).To(Equal(4))
			Expect(sol.NumBonds()).To(Equal(2))
		})

		It("allows rebonding after removal", func() {
			sol.RemoveBond(ch1)
			_, err := sol.AddBond(h1, c, single)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	It("empties both sets on clear", func() {
		a := sol.AddAtom(carbon(r3.Vec{}))
		b := sol.AddAtom(hydrogen(r3.Vec{X: 1}))
		_, err := sol.AddBond(a, b, single)
		Expect(err).NotTo(HaveOccurred())

		sol.Clear()
		Expect(sol.Atoms()).To(BeEmpty())
		Expect(sol.Bonds()).To(BeEmpty())
		Expect(sol.SimulationStep()).To(Equal(molecule.StepStats{}))

		next := sol.AddAtom(carbon(r3.Vec{}))
		Expect(next).To(BeNumerically(">", b))
	})

	It("drops stale bonds when a cleared atom is added again", func() {
		atomC := carbon(r3.Vec{})
		atomH := hydrogen(r3.Vec{X: 1})
		c := sol.AddAtom(atomC)
		h := sol.AddAtom(atomH)
		_, err := sol.AddBond(c, h, single)
		Expect(err).NotTo(HaveOccurred())

		sol.Clear()
		Expect(atomC.Degree()).To(BeZero())

		readded := sol.AddAtom(atomH)
		Expect(readded).NotTo(Equal(h))
		Expect(atomH.Degree()).To(BeZero())
		Expect(atomH.BondedWith(c)).To(BeFalse())
		Expect(sol.Bonds()).To(BeEmpty())
	})

	It("validates force field parameters", func() {
		p := molecule.DefaultParams()
		p.LengthScale = 0
		Expect(sol.SetParams(p)).To(MatchError(molecule.ErrInvalidParam))
		Expect(sol.Params()).To(Equal(molecule.DefaultParams()))

		Expect(sol.ForceField().SetParam("damping", 0.01)).To(Succeed())
		Expect(sol.Params().Damping).To(Equal(0.01))
		Expect(sol.ForceField().SetParam("damping", -1)).To(MatchError(molecule.ErrInvalidParam))
		Expect(sol.ForceField().SetParam("gravity", 1)).To(MatchError(molecule.ErrInvalidParam))
		Expect(sol.ForceField().ParamNames()).To(HaveLen(6))
	})
})
