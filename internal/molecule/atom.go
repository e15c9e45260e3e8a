package molecule

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// MaxRawRadius is the upper bound of the reference radius range used to
	// normalise atomic radii into [0,1].
	MaxRawRadius = 3.3

	// RadiusEpsilon keeps a normalised radius strictly positive.
	RadiusEpsilon = 1e-5
)

// AtomID identifies an atom within a Solution. The zero value means the atom
// has not been added to a solution yet.
type AtomID int

// Atom is a point mass with kinematic state and identity attributes.
type Atom struct {
	Symbol       string
	AtomicNumber uint
	Mass         float64
	RawRadius    float64
	Color        string

	id       AtomID
	position r3.Vec
	velocity r3.Vec
	force    r3.Vec
	anchored bool

	// keyed by the other endpoint, one entry per neighbour
	bonds map[AtomID]BondID
}

// NewAtom creates an atom at rest at pos.
func NewAtom(pos r3.Vec, symbol string, atomicNumber uint, mass, rawRadius float64, color string) *Atom {
	return &Atom{
		Symbol:       symbol,
		AtomicNumber: atomicNumber,
		Mass:         mass,
		RawRadius:    rawRadius,
		Color:        color,
		position:     pos,
		bonds:        make(map[AtomID]BondID),
	}
}

func (a *Atom) ID() AtomID { return a.id }

func (a *Atom) Position() r3.Vec { return a.position }
func (a *Atom) Velocity() r3.Vec { return a.velocity }
func (a *Atom) Force() r3.Vec    { return a.force }

func (a *Atom) SetPosition(p r3.Vec) { a.position = p }
func (a *Atom) SetX(x float64)       { a.position.X = x }
func (a *Atom) SetY(y float64)       { a.position.Y = y }
func (a *Atom) SetZ(z float64)       { a.position.Z = z }
func (a *Atom) SetVelocity(v r3.Vec) { a.velocity = v }

// SetForce overwrites the force accumulator.
func (a *Atom) SetForce(f r3.Vec) { a.force = f }

// ApplyForce adds f to the force accumulator.
func (a *Atom) ApplyForce(f r3.Vec) { a.force = r3.Add(a.force, f) }

// UpdateVelocity performs the forward Euler velocity update
// v += F/m * scale over one tick. Massless atoms do not move.
func (a *Atom) UpdateVelocity(scale float64) {
	if a.Mass <= 0 {
		return
	}
	a.velocity = r3.Add(a.velocity, r3.Scale(scale/a.Mass, a.force))
}

// UpdatePosition advances the position by one tick of velocity.
func (a *Atom) UpdatePosition() { a.position = r3.Add(a.position, a.velocity) }

func (a *Atom) Anchored() bool    { return a.anchored }
func (a *Atom) SetAnchor(on bool) { a.anchored = on }

// Radius returns the raw radius normalised into [0,1] plus a small epsilon so
// the value is never zero.
func (a *Atom) Radius() float64 {
	return a.RawRadius/MaxRawRadius + RadiusEpsilon
}

// Bonds returns a copy of the adjacency map, keyed by neighbour id.
func (a *Atom) Bonds() map[AtomID]BondID {
	out := make(map[AtomID]BondID, len(a.bonds))
	for k, v := range a.bonds {
		out[k] = v
	}
	return out
}

// Degree returns the number of bonded neighbours.
func (a *Atom) Degree() int { return len(a.bonds) }

// BondedWith reports whether a shares a bond with other.
func (a *Atom) BondedWith(other AtomID) bool {
	_, ok := a.bonds[other]
	return ok
}

// BondTo returns the bond linking a to other, if any.
func (a *Atom) BondTo(other AtomID) (BondID, bool) {
	id, ok := a.bonds[other]
	return id, ok
}

// neighbours returns the bonded neighbour ids in ascending order.
func (a *Atom) neighbours() []AtomID {
	ids := make([]AtomID, 0, len(a.bonds))
	for id := range a.bonds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// addBond records b under its other endpoint. It is the only guard against a
// second bond to the same neighbour and reports whether b was recorded.
func (a *Atom) addBond(b *Bond) bool {
	other, err := b.OtherAtom(a.id)
	if err != nil {
		return false
	}
	if _, ok := a.bonds[other]; ok {
		return false
	}
	a.bonds[other] = b.id
	return true
}

func (a *Atom) removeBond(b *Bond) {
	other, err := b.OtherAtom(a.id)
	if err != nil {
		return
	}
	if id, ok := a.bonds[other]; ok && id == b.id {
		delete(a.bonds, other)
	}
}

// finite reports whether the kinematic state holds no NaN or Inf.
func (a *Atom) finite() bool {
	for _, v := range [...]r3.Vec{a.position, a.velocity} {
		for _, c := range [...]float64{v.X, v.Y, v.Z} {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return false
			}
		}
	}
	return true
}
