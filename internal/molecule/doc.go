// Package molecule provides the editable atom/bond graph and the relaxation
// step that nudges atoms toward a plausible geometry.
//
// The package defines the core types of a molecule editing session:
//
//   - [Atom]: point mass with kinematic state and an adjacency map
//   - [Bond]: relation between two atoms with mutable length, energy and order
//   - [Solution]: owns every atom and bond and keeps their references consistent
//   - [ForceField]: bonded spring forces, all-pairs inverse-square term, Euler integration
//
// Atoms and bonds live in arenas owned by the [Solution] and refer to each
// other through stable [AtomID] and [BondID] values, never through pointers.
//
// # Example
//
//	sol := molecule.NewSolution()
//	c := sol.AddAtom(molecule.NewAtom(r3.Vec{}, "C", 6, 12.011, 0.91, "#909090"))
//	h := sol.AddAtom(molecule.NewAtom(r3.Vec{X: 0.3}, "H", 1, 1.008, 0.79, "#ffffff"))
//	sol.AddBond(c, h, molecule.BondParams{Length: 109, Energy: 413, Order: molecule.Single})
//	for i := 0; i < 500; i++ {
//	    sol.SimulationStep()
//	}
//
// # Thread Safety
//
// Solution instances are NOT thread-safe. Mutation and stepping are expected
// to happen on the caller's animation loop; SimulationStep must not be
// re-entered or run concurrently with a mutation.
package molecule
