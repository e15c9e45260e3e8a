package editor

import (
	"errors"
	"testing"

	"github.com/san-kum/molsim/internal/elements"
	"github.com/san-kum/molsim/internal/molecule"
)

func newEditor(t *testing.T, opts ...Option) *Editor {
	t.Helper()
	table, err := elements.Default()
	if err != nil {
		t.Fatalf("load tables: %v", err)
	}
	return New(molecule.NewSolution(), table, opts...)
}

func mustPlace(t *testing.T, e *Editor, el string, x, y float64) molecule.AtomID {
	t.Helper()
	id, err := e.PlaceAtom(el, x, y)
	if err != nil {
		t.Fatalf("place %s: %v", el, err)
	}
	return id
}

func TestPlaceAtom(t *testing.T) {
	e := newEditor(t, WithSeed(7))

	id := mustPlace(t, e, "O", 1, 2)
	a, ok := e.Solution().Atom(id)
	if !ok {
		t.Fatal("placed atom missing from solution")
	}
	if a.Symbol != "O" || a.AtomicNumber != 8 {
		t.Errorf("unexpected atom: %s/%d", a.Symbol, a.AtomicNumber)
	}
	p := a.Position()
	if p.X != 1 || p.Y != 2 {
		t.Errorf("expected (1,2), got (%f,%f)", p.X, p.Y)
	}
	if p.Z < -DefaultJitter || p.Z >= DefaultJitter {
		t.Errorf("depth %f outside jitter range", p.Z)
	}

	if _, err := e.PlaceAtom("Kryptonite", 0, 0); !errors.Is(err, elements.ErrUnknownElement) {
		t.Errorf("expected ErrUnknownElement, got %v", err)
	}
}

func TestPlaceAtomReproducible(t *testing.T) {
	e1 := newEditor(t, WithSeed(42))
	e2 := newEditor(t, WithSeed(42))

	a1, _ := e1.Solution().Atom(mustPlace(t, e1, "C", 0, 0))
	a2, _ := e2.Solution().Atom(mustPlace(t, e2, "C", 0, 0))
	if a1.Position() != a2.Position() {
		t.Errorf("same seed gave different positions: %v vs %v", a1.Position(), a2.Position())
	}

	flat := newEditor(t, WithJitter(0))
	a3, _ := flat.Solution().Atom(mustPlace(t, flat, "C", 0, 0))
	if a3.Position().Z != 0 {
		t.Errorf("expected flat placement, got z=%f", a3.Position().Z)
	}
}

func TestConnect(t *testing.T) {
	e := newEditor(t)
	c := mustPlace(t, e, "C", 0, 0)
	h := mustPlace(t, e, "H", 0.25, 0)
	h2 := mustPlace(t, e, "H", -0.25, 0)

	id, err := e.Connect(c, h, molecule.Single)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	bond, _ := e.Solution().Bond(id)
	if bond.Length() != 109 || bond.Energy() != 413 {
		t.Errorf("bond carries wrong reference data: %+v", bond.Params())
	}

	tests := []struct {
		name  string
		a, b  molecule.AtomID
		order molecule.Order
		want  error
	}{
		{"self bond", c, c, molecule.Single, molecule.ErrSelfBond},
		{"duplicate", h, c, molecule.Single, ErrAlreadyBonded},
		{"no such pair", h, h2, molecule.Double, ErrInvalidBond},
		{"missing atom", c, 999, molecule.Single, ErrNoSuchAtom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Connect(tt.a, tt.b, tt.order); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if n := e.Solution().NumBonds(); n != 1 {
		t.Errorf("expected 1 bond, got %d", n)
	}
}

func TestCycleOrder(t *testing.T) {
	e := newEditor(t)
	c1 := mustPlace(t, e, "C", 0, 0)
	c2 := mustPlace(t, e, "C", 0.3, 0)
	id, err := e.Connect(c1, c2, molecule.Single)
	if err != nil {
		t.Fatal(err)
	}

	want := []molecule.Order{molecule.Double, molecule.Triple, molecule.Single, molecule.Double}
	for i, w := range want {
		got, err := e.CycleOrder(id)
		if err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		if got != w {
			t.Errorf("cycle %d: expected %v, got %v", i, w, got)
		}
	}

	bond, ok := e.Solution().Bond(id)
	if !ok || bond.ID() != id {
		t.Fatal("bond identity changed while cycling")
	}
	if bond.Length() != 134 {
		t.Errorf("expected double bond length 134, got %f", bond.Length())
	}
	a, _ := e.Solution().Atom(c1)
	if got, _ := a.BondTo(c2); got != id {
		t.Errorf("adjacency lost bond id: %d", got)
	}
}

func TestCycleOrderFallbacks(t *testing.T) {
	e := newEditor(t)
	o1 := mustPlace(t, e, "O", 0, 0)
	o2 := mustPlace(t, e, "O", 0.3, 0)
	h1 := mustPlace(t, e, "H", 1, 0)
	h2 := mustPlace(t, e, "H", 1.2, 0)

	oo, err := e.Connect(o1, o2, molecule.Double)
	if err != nil {
		t.Fatal(err)
	}
	// O=O has no triple form, so it falls back to single
	if got, _ := e.CycleOrder(oo); got != molecule.Single {
		t.Errorf("expected single, got %v", got)
	}

	hh, err := e.Connect(h1, h2, molecule.Single)
	if err != nil {
		t.Fatal(err)
	}
	// H-H has no double form and stays single
	if got, _ := e.CycleOrder(hh); got != molecule.Single {
		t.Errorf("expected single, got %v", got)
	}

	if _, err := e.CycleOrder(999); !errors.Is(err, ErrNoSuchBond) {
		t.Errorf("expected ErrNoSuchBond, got %v", err)
	}
}

func TestAnchorDragDelete(t *testing.T) {
	e := newEditor(t)
	c := mustPlace(t, e, "C", 0, 0)
	h := mustPlace(t, e, "H", 0.25, 0)
	bid, _ := e.Connect(c, h, molecule.Single)

	on, err := e.ToggleAnchor(c)
	if err != nil || !on {
		t.Fatalf("expected anchor on, got %v (%v)", on, err)
	}
	if on, _ := e.ToggleAnchor(c); on {
		t.Error("expected anchor off after second toggle")
	}

	if err := e.Drag(h, 2, 3); err != nil {
		t.Fatal(err)
	}
	a, _ := e.Solution().Atom(h)
	if a.Position().X != 2 || a.Position().Y != 3 {
		t.Errorf("drag did not move atom: %v", a.Position())
	}

	e.DeleteBond(bid)
	if e.Solution().NumBonds() != 0 {
		t.Error("bond not deleted")
	}
	e.Delete(c)
	if _, ok := e.Solution().Atom(c); ok {
		t.Error("atom not deleted")
	}
	if _, err := e.ToggleAnchor(c); !errors.Is(err, ErrNoSuchAtom) {
		t.Errorf("expected ErrNoSuchAtom, got %v", err)
	}
}

func TestNearestAndNeighbour(t *testing.T) {
	e := newEditor(t, WithJitter(0))
	a := mustPlace(t, e, "C", 0, 0)
	b := mustPlace(t, e, "C", 1, 0)
	c := mustPlace(t, e, "C", 0, 1)

	if id, ok := e.Nearest(0.9, 0.1, 0.5); !ok || id != b {
		t.Errorf("expected atom %d, got %d (%v)", b, id, ok)
	}
	if _, ok := e.Nearest(5, 5, 0.5); ok {
		t.Error("expected no atom within radius")
	}

	if id, _ := e.Neighbour(c, 1); id != a {
		t.Errorf("expected wrap to %d, got %d", a, id)
	}
	if id, _ := e.Neighbour(a, -1); id != c {
		t.Errorf("expected wrap back to %d, got %d", c, id)
	}
}

func TestBondsOf(t *testing.T) {
	e := newEditor(t, WithJitter(0))
	c := mustPlace(t, e, "C", 0, 0)
	h1 := mustPlace(t, e, "H", 0.3, 0)
	h2 := mustPlace(t, e, "H", -0.3, 0)

	b1, err := e.Connect(c, h1, molecule.Single)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := e.Connect(h2, c, molecule.Single)
	if err != nil {
		t.Fatal(err)
	}

	got := e.BondsOf(c)
	if len(got) != 2 || got[0] != b1 || got[1] != b2 {
		t.Errorf("expected [%d %d], got %v", b1, b2, got)
	}
	if got := e.BondsOf(h1); len(got) != 1 || got[0] != b1 {
		t.Errorf("expected [%d], got %v", b1, got)
	}
	if got := e.BondsOf(99); got != nil {
		t.Errorf("expected nil for unknown atom, got %v", got)
	}
}
