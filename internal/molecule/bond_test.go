package molecule_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/molsim/internal/molecule"
)

var _ = Describe("Bond", func() {
	var (
		sol  *molecule.Solution
		a, b molecule.AtomID
		bond *molecule.Bond
	)

	BeforeEach(func() {
		sol = molecule.NewSolution()
		a = sol.AddAtom(carbon(r3.Vec{}))
		b = sol.AddAtom(carbon(r3.Vec{X: 0.3}))
		id, err := sol.AddBond(a, b, molecule.BondParams{Length: 154, Energy: 348, Order: molecule.Single})
		Expect(err).NotTo(HaveOccurred())
		bond, _ = sol.Bond(id)
	})

	It("resolves the other endpoint from either side", func() {
		other, err := bond.OtherAtom(a)
		Expect(err).NotTo(HaveOccurred())
		Expect(other).To(Equal(b))

		other, err = bond.OtherAtom(b)
		Expect(err).NotTo(HaveOccurred())
		Expect(other).To(Equal(a))
	})

	It("fails for an atom that is not an endpoint", func() {
		c := sol.AddAtom(hydrogen(r3.Vec{Y: 1}))
		_, err := bond.OtherAtom(c)
		Expect(err).To(MatchError(molecule.ErrNotEndpoint))
		Expect(bond.Has(c)).To(BeFalse())
	})

	It("updates parameters in place without changing identity", func() {
		id := bond.ID()
		bond.Update(molecule.BondParams{Length: 134, Energy: 614, Order: molecule.Double})

		Expect(bond.ID()).To(Equal(id))
		Expect(bond.Atom1()).To(Equal(a))
		Expect(bond.Atom2()).To(Equal(b))
		Expect(bond.Order()).To(Equal(molecule.Double))
		Expect(bond.Length()).To(Equal(134.0))
		Expect(bond.Energy()).To(Equal(614.0))

		atom, _ := sol.Atom(a)
		got, ok := atom.BondTo(b)
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(id))
	})

	DescribeTable("parsing bond orders",
		func(in string, want molecule.Order) {
			got, err := molecule.ParseOrder(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("single", "Single", molecule.Single),
		Entry("double lower case", "double", molecule.Double),
		Entry("triple numeric", "3", molecule.Triple),
		Entry("padded", " single ", molecule.Single),
	)

	It("rejects unknown bond orders", func() {
		_, err := molecule.ParseOrder("quadruple")
		Expect(err).To(MatchError(molecule.ErrUnknownOrder))
		Expect(molecule.Order(7).Valid()).To(BeFalse())
		Expect(molecule.Order(7).String()).To(Equal("Order(7)"))
	})

	It("round-trips orders through text", func() {
		text, err := molecule.Triple.MarshalText()
		Expect(err).NotTo(HaveOccurred())

		var o molecule.Order
		Expect(o.UnmarshalText(text)).To(Succeed())
		Expect(o).To(Equal(molecule.Triple))
	})
})
