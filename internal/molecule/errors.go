package molecule

import "errors"

// Domain errors for graph mutation and parameter updates.
var (
	// ErrUnknownAtom indicates an atom id that is not a member of the solution.
	ErrUnknownAtom = errors.New("molecule: atom is not part of the solution")

	// ErrSelfBond indicates an attempt to bond an atom to itself.
	ErrSelfBond = errors.New("molecule: cannot bond an atom to itself")

	// ErrAlreadyBonded indicates the two atoms already share a bond.
	ErrAlreadyBonded = errors.New("molecule: atoms are already bonded")

	// ErrNotEndpoint indicates an atom that is neither endpoint of a bond.
	ErrNotEndpoint = errors.New("molecule: atom is not an endpoint of the bond")

	// ErrInvalidParam indicates a force field parameter outside its valid range.
	ErrInvalidParam = errors.New("molecule: parameter out of valid bounds")

	// ErrUnknownOrder indicates a bond order name that cannot be parsed.
	ErrUnknownOrder = errors.New("molecule: unknown bond order")
)
