// Package editor implements the user-facing editing operations on a
// solution: placing elements, connecting atoms with validated bonds, cycling
// bond orders, anchoring, dragging and deleting.
package editor

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/molsim/internal/elements"
	"github.com/san-kum/molsim/internal/logging"
	"github.com/san-kum/molsim/internal/molecule"
)

// DefaultJitter bounds the random depth given to newly placed atoms so that
// a flat drawing can relax out of the plane.
const DefaultJitter = 0.01

var (
	ErrInvalidBond   = errors.New("editor: invalid bond for these elements")
	ErrAlreadyBonded = errors.New("editor: bond already exists")
	ErrNoSuchAtom    = errors.New("editor: no such atom")
	ErrNoSuchBond    = errors.New("editor: no such bond")
)

// Editor applies editing gestures to a solution using reference data.
type Editor struct {
	sol    *molecule.Solution
	table  *elements.Table
	rng    *rand.Rand
	jitter float64
	log    logging.Logger
}

type Option func(*Editor)

// WithSeed makes atom placement jitter reproducible.
func WithSeed(seed int64) Option {
	return func(e *Editor) { e.rng = rand.New(rand.NewSource(seed)) }
}

// WithJitter sets the half-width of the random depth range.
func WithJitter(j float64) Option {
	return func(e *Editor) { e.jitter = math.Abs(j) }
}

func WithLogger(l logging.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.log = l
		}
	}
}

func New(sol *molecule.Solution, table *elements.Table, opts ...Option) *Editor {
	e := &Editor{
		sol:    sol,
		table:  table,
		rng:    rand.New(rand.NewSource(1)),
		jitter: DefaultJitter,
		log:    logging.Nop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Editor) Solution() *molecule.Solution { return e.sol }
func (e *Editor) Table() *elements.Table       { return e.table }

// PlaceAtom adds an atom of the given element at (x, y) with a small random
// depth in [-jitter, jitter).
func (e *Editor) PlaceAtom(element string, x, y float64) (molecule.AtomID, error) {
	el, err := e.table.Element(element)
	if err != nil {
		return 0, err
	}
	z := 0.0
	if e.jitter > 0 {
		z = e.rng.Float64()*2*e.jitter - e.jitter
	}
	id := e.sol.AddAtom(el.NewAtom(x, y, z))
	e.log.Debugf("placed %s as atom %d at (%.3f, %.3f, %.4f)", el.Symbol, id, x, y, z)
	return id, nil
}

// Connect bonds two atoms after checking the pair against the bond table.
func (e *Editor) Connect(a, b molecule.AtomID, order molecule.Order) (molecule.BondID, error) {
	if a == b {
		return 0, molecule.ErrSelfBond
	}
	atomA, ok := e.sol.Atom(a)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNoSuchAtom, a)
	}
	atomB, ok := e.sol.Atom(b)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNoSuchAtom, b)
	}

	info, err := e.table.Bond(atomA.Symbol, atomB.Symbol, order)
	if err != nil {
		e.log.Warnf("%s-%s is an invalid %s bond", atomA.Symbol, atomB.Symbol, order)
		return 0, fmt.Errorf("%w: %s-%s %s", ErrInvalidBond, atomA.Symbol, atomB.Symbol, order)
	}
	if atomA.BondedWith(b) {
		e.log.Warnf("bond already exists between %s and %s", atomA.Symbol, atomB.Symbol)
		return 0, fmt.Errorf("%w: %s-%s", ErrAlreadyBonded, atomA.Symbol, atomB.Symbol)
	}

	id, err := e.sol.AddBond(a, b, info.Params())
	if err != nil {
		return 0, err
	}
	e.log.Debugf("bonded %d-%d as %s bond %d", a, b, order, id)
	return id, nil
}

// CycleOrder moves a bond to the next order the bond table allows:
// single to double, double to triple (or back to single), triple to single.
// A single bond with no double form is left unchanged. The bond keeps its
// identity.
func (e *Editor) CycleOrder(id molecule.BondID) (molecule.Order, error) {
	bond, ok := e.sol.Bond(id)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNoSuchBond, id)
	}
	a, _ := e.sol.Atom(bond.Atom1())
	b, _ := e.sol.Atom(bond.Atom2())

	var candidates []molecule.Order
	switch bond.Order() {
	case molecule.Single:
		candidates = []molecule.Order{molecule.Double}
	case molecule.Double:
		candidates = []molecule.Order{molecule.Triple, molecule.Single}
	case molecule.Triple:
		candidates = []molecule.Order{molecule.Single}
	default:
		return bond.Order(), fmt.Errorf("%w: %s is not a supported bond type", ErrInvalidBond, bond.Order())
	}

	for _, next := range candidates {
		info, err := e.table.Bond(a.Symbol, b.Symbol, next)
		if err != nil {
			continue
		}
		bond.Update(info.Params())
		e.log.Debugf("bond %d is now %s", id, next)
		return next, nil
	}
	return bond.Order(), nil
}

// ToggleAnchor flips the anchor flag and returns the new state.
func (e *Editor) ToggleAnchor(id molecule.AtomID) (bool, error) {
	a, ok := e.sol.Atom(id)
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrNoSuchAtom, id)
	}
	a.SetAnchor(!a.Anchored())
	return a.Anchored(), nil
}

// Drag moves an atom in the drawing plane, keeping its depth.
func (e *Editor) Drag(id molecule.AtomID, x, y float64) error {
	a, ok := e.sol.Atom(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchAtom, id)
	}
	a.SetX(x)
	a.SetY(y)
	return nil
}

// Delete removes an atom and its bonds.
func (e *Editor) Delete(id molecule.AtomID) {
	e.sol.RemoveAtom(id)
}

// DeleteBond removes a single bond.
func (e *Editor) DeleteBond(id molecule.BondID) {
	e.sol.RemoveBond(id)
}

// Nearest returns the atom whose centre lies closest to (x, y) in the
// drawing plane, within radius.
func (e *Editor) Nearest(x, y, radius float64) (molecule.AtomID, bool) {
	var (
		best  molecule.AtomID
		found bool
		limit = radius
	)
	for _, a := range e.sol.Atoms() {
		p := a.Position()
		d := r3.Norm(r3.Vec{X: p.X - x, Y: p.Y - y})
		if d <= limit {
			best, limit, found = a.ID(), d, true
		}
	}
	return best, found
}

// BondsOf returns the bonds incident to an atom in id order.
func (e *Editor) BondsOf(id molecule.AtomID) []molecule.BondID {
	a, ok := e.sol.Atom(id)
	if !ok {
		return nil
	}
	out := make([]molecule.BondID, 0, a.Degree())
	for _, bid := range a.Bonds() {
		out = append(out, bid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Neighbour returns the next atom after id in id order, wrapping around.
// It is used to move a keyboard selection through the solution.
func (e *Editor) Neighbour(id molecule.AtomID, step int) (molecule.AtomID, bool) {
	atoms := e.sol.Atoms()
	if len(atoms) == 0 {
		return 0, false
	}
	idx := -1
	for i, a := range atoms {
		if a.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return atoms[0].ID(), true
	}
	n := len(atoms)
	return atoms[((idx+step)%n+n)%n].ID(), true
}
