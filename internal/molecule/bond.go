package molecule

import (
	"fmt"
	"strings"
)

// BondID identifies a bond within a Solution.
type BondID int

// Order is the multiplicity of a bond.
type Order int

const (
	Single Order = iota + 1
	Double
	Triple
)

// Orders lists the supported bond orders from lowest to highest.
var Orders = []Order{Single, Double, Triple}

func (o Order) String() string {
	switch o {
	case Single:
		return "Single"
	case Double:
		return "Double"
	case Triple:
		return "Triple"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// Valid reports whether o is one of the supported orders.
func (o Order) Valid() bool { return o >= Single && o <= Triple }

// ParseOrder parses a bond order name (case-insensitive) or its numeric form.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "1":
		return Single, nil
	case "double", "2":
		return Double, nil
	case "triple", "3":
		return Triple, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOrder, s)
}

func (o Order) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Order) UnmarshalText(text []byte) error {
	parsed, err := ParseOrder(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// BondParams are the mutable physical parameters of a bond. Length is in
// picometres and Energy in kJ/mol, as found in reference bond tables.
type BondParams struct {
	Length float64
	Energy float64
	Order  Order
}

// Bond relates two atoms. It does not own them.
type Bond struct {
	id     BondID
	atom1  AtomID
	atom2  AtomID
	params BondParams
}

func (b *Bond) ID() BondID         { return b.id }
func (b *Bond) Atom1() AtomID      { return b.atom1 }
func (b *Bond) Atom2() AtomID      { return b.atom2 }
func (b *Bond) Length() float64    { return b.params.Length }
func (b *Bond) Energy() float64    { return b.params.Energy }
func (b *Bond) Order() Order       { return b.params.Order }
func (b *Bond) Params() BondParams { return b.params }

// OtherAtom returns the endpoint that is not id.
func (b *Bond) OtherAtom(id AtomID) (AtomID, error) {
	switch id {
	case b.atom1:
		return b.atom2, nil
	case b.atom2:
		return b.atom1, nil
	}
	return 0, fmt.Errorf("%w: atom %d, bond %d", ErrNotEndpoint, id, b.id)
}

// Has reports whether id is one of the endpoints.
func (b *Bond) Has(id AtomID) bool { return id == b.atom1 || id == b.atom2 }

// Update replaces the physical parameters in place. Endpoints and identity
// are unchanged, so adjacency entries referring to b stay valid.
func (b *Bond) Update(p BondParams) { b.params = p }
