package molecule

import (
	"fmt"
	"sort"
)

// Solution owns every atom and bond of one editing session.
//
// Every bond in the solution has both endpoints present, and every atom's
// adjacency entries correspond one to one with bonds present in the solution.
type Solution struct {
	atoms    map[AtomID]*Atom
	bonds    map[BondID]*Bond
	nextAtom AtomID
	nextBond BondID
	field    *ForceField
}

// NewSolution returns an empty solution using the default force field.
func NewSolution() *Solution {
	return &Solution{
		atoms: make(map[AtomID]*Atom),
		bonds: make(map[BondID]*Bond),
		field: NewForceField(DefaultParams()),
	}
}

// AddAtom inserts a and returns its id. Adding an atom that is already a
// member returns its existing id.
func (s *Solution) AddAtom(a *Atom) AtomID {
	if a.id != 0 && s.atoms[a.id] == a {
		return a.id
	}
	s.nextAtom++
	a.id = s.nextAtom
	// bonds from a previous membership do not carry over
	a.bonds = make(map[AtomID]BondID)
	s.atoms[a.id] = a
	return a.id
}

// AddBond creates a bond between two member atoms and records it in both
// adjacency maps. Bond legality against reference data is the caller's job.
func (s *Solution) AddBond(id1, id2 AtomID, p BondParams) (BondID, error) {
	a1, ok := s.atoms[id1]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownAtom, id1)
	}
	a2, ok := s.atoms[id2]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownAtom, id2)
	}
	if id1 == id2 {
		return 0, fmt.Errorf("%w: %d", ErrSelfBond, id1)
	}

	b := &Bond{id: s.nextBond + 1, atom1: id1, atom2: id2, params: p}
	if !a1.addBond(b) {
		return 0, fmt.Errorf("%w: %d-%d", ErrAlreadyBonded, id1, id2)
	}
	if !a2.addBond(b) {
		a1.removeBond(b)
		return 0, fmt.Errorf("%w: %d-%d", ErrAlreadyBonded, id1, id2)
	}

	s.nextBond = b.id
	s.bonds[b.id] = b
	return b.id, nil
}

// RemoveAtom evicts the atom and every bond incident to it. Unknown ids are
// ignored.
func (s *Solution) RemoveAtom(id AtomID) {
	a, ok := s.atoms[id]
	if !ok {
		return
	}
	delete(s.atoms, id)

	// iterate a snapshot, RemoveBond edits a.bonds
	incident := make([]BondID, 0, len(a.bonds))
	for _, bid := range a.bonds {
		incident = append(incident, bid)
	}
	for _, bid := range incident {
		s.detach(bid, a)
	}
}

// RemoveBond removes the bond from both endpoints and from the solution.
// Unknown ids are ignored.
func (s *Solution) RemoveBond(id BondID) {
	s.detach(id, nil)
}

func (s *Solution) detach(id BondID, evicted *Atom) {
	b, ok := s.bonds[id]
	if !ok {
		return
	}
	for _, aid := range [...]AtomID{b.atom1, b.atom2} {
		if a, ok := s.atoms[aid]; ok {
			a.removeBond(b)
		} else if evicted != nil && evicted.id == aid {
			evicted.removeBond(b)
		}
	}
	delete(s.bonds, id)
}

// Clear empties the solution. Ids are not reused afterwards.
func (s *Solution) Clear() {
	for _, a := range s.atoms {
		a.bonds = make(map[AtomID]BondID)
	}
	s.atoms = make(map[AtomID]*Atom)
	s.bonds = make(map[BondID]*Bond)
}

// Atom returns the member atom with the given id.
func (s *Solution) Atom(id AtomID) (*Atom, bool) {
	a, ok := s.atoms[id]
	return a, ok
}

// Bond returns the member bond with the given id.
func (s *Solution) Bond(id BondID) (*Bond, bool) {
	b, ok := s.bonds[id]
	return b, ok
}

// Atoms returns the member atoms ordered by id.
func (s *Solution) Atoms() []*Atom {
	out := make([]*Atom, 0, len(s.atoms))
	for _, a := range s.atoms {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Bonds returns the member bonds ordered by id.
func (s *Solution) Bonds() []*Bond {
	out := make([]*Bond, 0, len(s.bonds))
	for _, b := range s.bonds {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *Solution) NumAtoms() int { return len(s.atoms) }
func (s *Solution) NumBonds() int { return len(s.bonds) }

// Params returns the force field parameters in use.
func (s *Solution) Params() Params { return s.field.Params }

// SetParams replaces the force field parameters after validating them.
func (s *Solution) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.field.Params = p
	return nil
}

// ForceField exposes the force field for runtime parameter tuning.
func (s *Solution) ForceField() *ForceField { return s.field }

// SimulationStep advances every atom by one tick.
func (s *Solution) SimulationStep() StepStats {
	return s.field.Step(s)
}

// Valid reports whether every atom has finite position and velocity.
func (s *Solution) Valid() bool {
	for _, a := range s.atoms {
		if !a.finite() {
			return false
		}
	}
	return true
}
