package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/molsim/internal/molecule"
)

// AtomSpec places one element in the drawing plane.
type AtomSpec struct {
	Element  string  `yaml:"element"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Anchored bool    `yaml:"anchored,omitempty"`
}

// BondSpec connects two atoms by their index in the atom list.
type BondSpec struct {
	A     int            `yaml:"a"`
	B     int            `yaml:"b"`
	Order molecule.Order `yaml:"order"`
}

// MoleculeSpec describes a starting structure, drawn roughly so the
// relaxation has something to settle.
type MoleculeSpec struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Atoms       []AtomSpec `yaml:"atoms"`
	Bonds       []BondSpec `yaml:"bonds"`
}

// Builder is the editing surface a molecule description is realised through.
type Builder interface {
	PlaceAtom(element string, x, y float64) (molecule.AtomID, error)
	Connect(a, b molecule.AtomID, order molecule.Order) (molecule.BondID, error)
	ToggleAnchor(id molecule.AtomID) (bool, error)
}

func (m *MoleculeSpec) Validate() error {
	if len(m.Atoms) == 0 {
		return fmt.Errorf("%w: molecule %q has no atoms", ErrInvalidConfig, m.Name)
	}
	for i, b := range m.Bonds {
		if b.A < 0 || b.A >= len(m.Atoms) || b.B < 0 || b.B >= len(m.Atoms) {
			return fmt.Errorf("%w: bond %d references a missing atom", ErrInvalidConfig, i)
		}
		if b.A == b.B {
			return fmt.Errorf("%w: bond %d bonds atom %d to itself", ErrInvalidConfig, i, b.A)
		}
		if !b.Order.Valid() {
			return fmt.Errorf("%w: bond %d has no valid order", ErrInvalidConfig, i)
		}
	}
	return nil
}

// Build places every atom and bond and returns the atom ids in
// declaration order.
func (m *MoleculeSpec) Build(b Builder) ([]molecule.AtomID, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	ids := make([]molecule.AtomID, len(m.Atoms))
	for i, a := range m.Atoms {
		id, err := b.PlaceAtom(a.Element, a.X, a.Y)
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", i, err)
		}
		if a.Anchored {
			if _, err := b.ToggleAnchor(id); err != nil {
				return nil, fmt.Errorf("atom %d: %w", i, err)
			}
		}
		ids[i] = id
	}
	for i, bond := range m.Bonds {
		if _, err := b.Connect(ids[bond.A], ids[bond.B], bond.Order); err != nil {
			return nil, fmt.Errorf("bond %d: %w", i, err)
		}
	}
	return ids, nil
}

var Presets = map[string]*MoleculeSpec{
	"water": {
		Name: "water", Description: "bent H2O",
		Atoms: []AtomSpec{{Element: "O"}, {Element: "H", X: 0.25, Y: 0.15}, {Element: "H", X: -0.25, Y: 0.15}},
		Bonds: []BondSpec{{0, 1, molecule.Single}, {0, 2, molecule.Single}},
	},
	"methane": {
		Name: "methane", Description: "CH4 drawn flat",
		Atoms: []AtomSpec{
			{Element: "C"},
			{Element: "H", X: 0.3}, {Element: "H", X: -0.3},
			{Element: "H", Y: 0.3}, {Element: "H", Y: -0.3},
		},
		Bonds: []BondSpec{{0, 1, molecule.Single}, {0, 2, molecule.Single}, {0, 3, molecule.Single}, {0, 4, molecule.Single}},
	},
	"ammonia": {
		Name: "ammonia", Description: "NH3",
		Atoms: []AtomSpec{{Element: "N"}, {Element: "H", X: 0.25, Y: 0.1}, {Element: "H", X: -0.25, Y: 0.1}, {Element: "H", Y: -0.28}},
		Bonds: []BondSpec{{0, 1, molecule.Single}, {0, 2, molecule.Single}, {0, 3, molecule.Single}},
	},
	"carbon_dioxide": {
		Name: "carbon_dioxide", Description: "linear O=C=O",
		Atoms: []AtomSpec{{Element: "O", X: -0.3}, {Element: "C"}, {Element: "O", X: 0.3}},
		Bonds: []BondSpec{{0, 1, molecule.Double}, {1, 2, molecule.Double}},
	},
	"ethene": {
		Name: "ethene", Description: "planar H2C=CH2",
		Atoms: []AtomSpec{
			{Element: "C", X: -0.15}, {Element: "C", X: 0.15},
			{Element: "H", X: -0.35, Y: 0.2}, {Element: "H", X: -0.35, Y: -0.2},
			{Element: "H", X: 0.35, Y: 0.2}, {Element: "H", X: 0.35, Y: -0.2},
		},
		Bonds: []BondSpec{
			{0, 1, molecule.Double},
			{0, 2, molecule.Single}, {0, 3, molecule.Single},
			{1, 4, molecule.Single}, {1, 5, molecule.Single},
		},
	},
	"ethyne": {
		Name: "ethyne", Description: "linear HC#CH",
		Atoms: []AtomSpec{{Element: "H", X: -0.5}, {Element: "C", X: -0.15}, {Element: "C", X: 0.15}, {Element: "H", X: 0.5}},
		Bonds: []BondSpec{{0, 1, molecule.Single}, {1, 2, molecule.Triple}, {2, 3, molecule.Single}},
	},
	"hydrogen_cyanide": {
		Name: "hydrogen_cyanide", Description: "HC#N with the carbon anchored",
		Atoms: []AtomSpec{{Element: "H", X: -0.4}, {Element: "C", Anchored: true}, {Element: "N", X: 0.3}},
		Bonds: []BondSpec{{0, 1, molecule.Single}, {1, 2, molecule.Triple}},
	},
}

func GetPreset(name string) *MoleculeSpec {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
