package molecule

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Calibration constants of the relaxation force field. They are tuned for
// visual settling, not derived from physical units.
const (
	DefaultLengthScale = 450.0
	DefaultEnergyScale = 2000000.0
	DefaultDamping     = 0.001
	DefaultCoulomb     = 0.00001
	DefaultAccel       = 100.0
	DefaultMinDistance = 1e-9
)

// Params holds the force field calibration.
type Params struct {
	// LengthScale converts a bond length into a natural separation.
	LengthScale float64 `yaml:"length_scale" json:"length_scale"`
	// EnergyScale converts a bond energy into a spring stiffness.
	EnergyScale float64 `yaml:"energy_scale" json:"energy_scale"`
	// Damping scales the receiving atom's own velocity in the spring term.
	Damping float64 `yaml:"damping" json:"damping"`
	// Coulomb is the pairwise inverse-square constant.
	Coulomb float64 `yaml:"coulomb" json:"coulomb"`
	// Accel scales F/m into a per-tick velocity change.
	Accel float64 `yaml:"accel" json:"accel"`
	// MinDistance is the separation below which distances are clamped.
	MinDistance float64 `yaml:"min_distance" json:"min_distance"`
}

func DefaultParams() Params {
	return Params{
		LengthScale: DefaultLengthScale,
		EnergyScale: DefaultEnergyScale,
		Damping:     DefaultDamping,
		Coulomb:     DefaultCoulomb,
		Accel:       DefaultAccel,
		MinDistance: DefaultMinDistance,
	}
}

func (p Params) Validate() error {
	if p.LengthScale <= 0 {
		return fmt.Errorf("%w: length_scale must be positive, got %g", ErrInvalidParam, p.LengthScale)
	}
	if p.EnergyScale <= 0 {
		return fmt.Errorf("%w: energy_scale must be positive, got %g", ErrInvalidParam, p.EnergyScale)
	}
	if p.Damping < 0 {
		return fmt.Errorf("%w: damping must not be negative, got %g", ErrInvalidParam, p.Damping)
	}
	if p.Accel < 0 {
		return fmt.Errorf("%w: accel must not be negative, got %g", ErrInvalidParam, p.Accel)
	}
	if p.MinDistance <= 0 {
		return fmt.Errorf("%w: min_distance must be positive, got %g", ErrInvalidParam, p.MinDistance)
	}
	return nil
}

// NaturalLength converts a bond length into the separation at which the
// spring force vanishes.
func (p Params) NaturalLength(length float64) float64 { return length / p.LengthScale }

// Stiffness converts a bond energy into a spring constant.
func (p Params) Stiffness(energy float64) float64 { return energy / p.EnergyScale }

// StepStats summarises one simulation step.
type StepStats struct {
	// Bonded counts spring contributions, two per bond.
	Bonded int
	// Pairwise counts directed inverse-square contributions, n*(n-1) for n atoms.
	Pairwise int
	// Integrated counts atoms whose velocity and position were advanced.
	Integrated int
	// MaxForce is the largest accumulated force magnitude.
	MaxForce float64
}

// ForceField computes bonded spring forces and an all-pairs inverse-square
// term, then integrates with forward Euler over a unit tick.
type ForceField struct {
	Params Params
}

func NewForceField(p Params) *ForceField {
	return &ForceField{Params: p}
}

// Step runs one relaxation step over the whole solution. All forces are
// reset before any accumulation and all accumulation finishes before any
// integration.
func (f *ForceField) Step(s *Solution) StepStats {
	var stats StepStats
	atoms := s.Atoms()
	if len(atoms) == 0 {
		return stats
	}

	for _, a := range atoms {
		a.SetForce(r3.Vec{})
	}

	for _, a := range atoms {
		for _, other := range a.neighbours() {
			b, ok := s.atoms[other]
			if !ok {
				continue
			}
			a.ApplyForce(f.bondForce(a, b, s.bonds[a.bonds[other]]))
			stats.Bonded++
		}
	}

	for _, a := range atoms {
		for _, b := range atoms {
			if a == b {
				continue
			}
			a.ApplyForce(f.pairForce(a, b))
			stats.Pairwise++
		}
	}

	for _, a := range atoms {
		if m := r3.Norm(a.force); m > stats.MaxForce {
			stats.MaxForce = m
		}
		if a.anchored {
			continue
		}
		a.UpdateVelocity(f.Params.Accel)
		a.UpdatePosition()
		stats.Integrated++
	}

	return stats
}

// separation returns the unit vector from a toward b and the clamped
// distance. Coincident atoms get a zero direction.
func (f *ForceField) separation(a, b *Atom) (d, u r3.Vec, r float64) {
	d = r3.Sub(b.position, a.position)
	r = r3.Norm(d)
	if r < f.Params.MinDistance {
		return d, r3.Vec{}, f.Params.MinDistance
	}
	return d, r3.Scale(1/r, d), r
}

// bondForce is the spring force on a from its bond to b. Damping uses only
// a's own velocity.
func (f *ForceField) bondForce(a, b *Atom, bond *Bond) r3.Vec {
	if bond == nil {
		return r3.Vec{}
	}
	d, u, _ := f.separation(a, b)
	natural := f.Params.NaturalLength(bond.params.Length)
	k := f.Params.Stiffness(bond.params.Energy)

	rest := r3.Scale(natural, u)
	residual := r3.Sub(d, rest)
	return r3.Sub(r3.Scale(k, residual), r3.Scale(f.Params.Damping, a.velocity))
}

// pairForce is the pairwise force on a from b, -k*qa*qb/r^2 along the unit
// vector toward b. Radii stand in for charges and are always positive, so
// the force always points away from b.
func (f *ForceField) pairForce(a, b *Atom) r3.Vec {
	_, u, r := f.separation(a, b)
	magnitude := -f.Params.Coulomb * a.Radius() * b.Radius() / (r * r)
	return r3.Scale(magnitude, u)
}

// GetParams returns the tunable parameters by name.
func (f *ForceField) GetParams() map[string]float64 {
	return map[string]float64{
		"length_scale": f.Params.LengthScale,
		"energy_scale": f.Params.EnergyScale,
		"damping":      f.Params.Damping,
		"coulomb":      f.Params.Coulomb,
		"accel":        f.Params.Accel,
		"min_distance": f.Params.MinDistance,
	}
}

// ParamNames returns the tunable parameter names in a stable order.
func (f *ForceField) ParamNames() []string {
	names := make([]string, 0, 6)
	for k := range f.GetParams() {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetParam updates one parameter by name, rejecting values that would make
// the field invalid.
func (f *ForceField) SetParam(name string, value float64) error {
	p := f.Params
	switch name {
	case "length_scale":
		p.LengthScale = value
	case "energy_scale":
		p.EnergyScale = value
	case "damping":
		p.Damping = value
	case "coulomb":
		p.Coulomb = value
	case "accel":
		p.Accel = value
	case "min_distance":
		p.MinDistance = value
	default:
		return fmt.Errorf("%w: unknown parameter %q", ErrInvalidParam, name)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	f.Params = p
	return nil
}
