// Package elements holds the reference data used to build atoms and bonds:
// a periodic table and a bond table keyed by element pair and bond order.
package elements

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/molsim/internal/molecule"
)

var (
	ErrUnknownElement = errors.New("elements: unknown element")
	ErrUnknownBond    = errors.New("elements: no reference data for bond")
	ErrMalformed      = errors.New("elements: malformed table")
)

//go:embed data/*.csv
var data embed.FS

// Element is one row of the periodic table.
type Element struct {
	Name         string
	Symbol       string
	AtomicNumber uint
	Mass         float64
	Radius       float64
	Color        string
}

// BondInfo is one row of the bond table. Length is in picometres and Energy
// in kJ/mol.
type BondInfo struct {
	Element1 string
	Element2 string
	Order    molecule.Order
	Length   float64
	Energy   float64
}

// Params converts the reference row into bond parameters.
func (b BondInfo) Params() molecule.BondParams {
	return molecule.BondParams{Length: b.Length, Energy: b.Energy, Order: b.Order}
}

type pair struct{ a, b string }

func key(e1, e2 string) pair {
	if e2 < e1 {
		e1, e2 = e2, e1
	}
	return pair{e1, e2}
}

// Table answers element and bond lookups. It is read-only after
// construction and safe for concurrent readers.
type Table struct {
	bySymbol map[string]Element
	byName   map[string]string
	bonds    map[molecule.Order]map[pair]BondInfo
}

func newTable() *Table {
	t := &Table{
		bySymbol: make(map[string]Element),
		byName:   make(map[string]string),
		bonds:    make(map[molecule.Order]map[pair]BondInfo),
	}
	for _, o := range molecule.Orders {
		t.bonds[o] = make(map[pair]BondInfo)
	}
	return t
}

// Load builds a table from periodic and bond table CSV streams.
func Load(periodic, bonds io.Reader) (*Table, error) {
	t := newTable()
	if err := t.readElements(periodic); err != nil {
		return nil, err
	}
	if err := t.readBonds(bonds); err != nil {
		return nil, err
	}
	return t, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the table built from the embedded reference data.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		p, err := data.Open("data/periodic_table.csv")
		if err != nil {
			defaultErr = err
			return
		}
		defer p.Close()
		b, err := data.Open("data/bond_table.csv")
		if err != nil {
			defaultErr = err
			return
		}
		defer b.Close()
		defaultTable, defaultErr = Load(p, b)
	})
	return defaultTable, defaultErr
}

// readRows parses a CSV stream with a header row into column-keyed records.
func readRows(r io.Reader, required ...string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}

	header := records[0]
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, name)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row := make(map[string]string, len(cols))
		for name, i := range cols {
			if i < len(rec) {
				row[name] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseFloat(row map[string]string, col string, line int) (float64, error) {
	v, err := strconv.ParseFloat(row[col], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d column %s: %v", ErrMalformed, line, col, err)
	}
	return v, nil
}

func (t *Table) readElements(r io.Reader) error {
	rows, err := readRows(r, "AtomicNumber", "Element", "Symbol", "AtomicMass", "AtomicRadius")
	if err != nil {
		return err
	}
	for i, row := range rows {
		n, err := strconv.ParseUint(row["AtomicNumber"], 10, 32)
		if err != nil {
			return fmt.Errorf("%w: row %d column AtomicNumber: %v", ErrMalformed, i+1, err)
		}
		mass, err := parseFloat(row, "AtomicMass", i+1)
		if err != nil {
			return err
		}
		radius, err := parseFloat(row, "AtomicRadius", i+1)
		if err != nil {
			return err
		}
		e := Element{
			Name:         row["Element"],
			Symbol:       row["Symbol"],
			AtomicNumber: uint(n),
			Mass:         mass,
			Radius:       radius,
			Color:        row["Color"],
		}
		t.bySymbol[e.Symbol] = e
		t.byName[strings.ToLower(e.Name)] = e.Symbol
	}
	return nil
}

func (t *Table) readBonds(r io.Reader) error {
	rows, err := readRows(r, "Element1", "Element2", "BondType", "BondLength", "BondEnergy")
	if err != nil {
		return err
	}
	for i, row := range rows {
		order, err := molecule.ParseOrder(row["BondType"])
		if err != nil {
			return fmt.Errorf("%w: row %d: %s is not a valid bond type", ErrMalformed, i+1, row["BondType"])
		}
		length, err := parseFloat(row, "BondLength", i+1)
		if err != nil {
			return err
		}
		energy, err := parseFloat(row, "BondEnergy", i+1)
		if err != nil {
			return err
		}
		info := BondInfo{
			Element1: row["Element1"],
			Element2: row["Element2"],
			Order:    order,
			Length:   length,
			Energy:   energy,
		}
		t.bonds[order][key(info.Element1, info.Element2)] = info
	}
	return nil
}

// Element looks an element up by symbol, or by name ignoring case.
func (t *Table) Element(symbolOrName string) (Element, error) {
	if e, ok := t.bySymbol[symbolOrName]; ok {
		return e, nil
	}
	if sym, ok := t.byName[strings.ToLower(symbolOrName)]; ok {
		return t.bySymbol[sym], nil
	}
	return Element{}, fmt.Errorf("%w: %q", ErrUnknownElement, symbolOrName)
}

// Elements returns every element ordered by atomic number.
func (t *Table) Elements() []Element {
	out := make([]Element, 0, len(t.bySymbol))
	for _, e := range t.bySymbol {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AtomicNumber < out[j].AtomicNumber })
	return out
}

// Bond returns the reference data for a bond between two elements, in either
// order.
func (t *Table) Bond(e1, e2 string, order molecule.Order) (BondInfo, error) {
	if byPair, ok := t.bonds[order]; ok {
		if info, ok := byPair[key(e1, e2)]; ok {
			return info, nil
		}
	}
	return BondInfo{}, fmt.Errorf("%w: %s-%s %s", ErrUnknownBond, e1, e2, strings.ToLower(order.String()))
}

// HasBond reports whether a bond of the given order exists between e1 and e2.
func (t *Table) HasBond(e1, e2 string, order molecule.Order) bool {
	_, err := t.Bond(e1, e2, order)
	return err == nil
}

// Partners returns the symbols that can bond to symbol with the given order,
// sorted.
func (t *Table) Partners(symbol string, order molecule.Order) []string {
	var out []string
	for k := range t.bonds[order] {
		switch symbol {
		case k.a:
			out = append(out, k.b)
		case k.b:
			out = append(out, k.a)
		}
	}
	sort.Strings(out)
	return out
}

// Orders returns the supported bond orders.
func (t *Table) Orders() []molecule.Order {
	return append([]molecule.Order(nil), molecule.Orders...)
}

// NewAtom builds an atom for the element at the given position.
func (e Element) NewAtom(x, y, z float64) *molecule.Atom {
	return molecule.NewAtom(r3.Vec{X: x, Y: y, Z: z}, e.Symbol, e.AtomicNumber, e.Mass, e.Radius, e.Color)
}
