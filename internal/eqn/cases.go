package eqn

import (
	"github.com/pkg/errors"

	"github.com/nsulzer/msdsl/internal/expr"
)

// Settings assigns a bit value to each selector signal by name.
type Settings map[string]int

// maxCaseDepth bounds nested case resolution. Valid models nest cases a
// handful of levels deep; hitting the bound means a case table is reachable
// from one of its own branches.
const maxCaseDepth = 64

// AddressToSettings expands an address in [0, 2^n) into per-selector bit
// values. The first selector in the list holds the most significant bit.
func AddressToSettings(address int, selBits []*expr.Signal) (Settings, error) {
	n := len(selBits)
	if address < 0 || address >= 1<<uint(n) {
		return nil, errors.Wrapf(ErrCaseShape, "address %d cannot be represented with %d selector bits", address, n)
	}
	settings := make(Settings, n)
	for i, sel := range selBits {
		settings[sel.Name] = (address >> uint(n-1-i)) & 1
	}
	return settings, nil
}

// GetAddress computes the local table address of a case node under the given
// settings, iterating the node's own selectors in declared order. Selectors
// present in settings but not referenced by this case are don't-cares.
func GetAddress(c *expr.Case, settings Settings) (int, error) {
	addr := 0
	for _, sel := range c.SelBits {
		bit, ok := settings[sel.Name]
		if !ok {
			return 0, errors.Wrapf(ErrConsistency, "selector %s has no setting", sel.Name)
		}
		addr <<= 1
		addr |= bit & 1
	}
	return addr, nil
}

// SubstCase resolves every case node in the expression under the given
// selector settings. Resolution recurses into the selected branch, so nested
// cases collapse in one pass; once no case nodes remain the result is a
// fixed point of further substitution.
func SubstCase(e expr.Expr, settings Settings) (expr.Expr, error) {
	return substCase(e, settings, 0)
}

func substCase(e expr.Expr, settings Settings, depth int) (expr.Expr, error) {
	switch v := e.(type) {
	case *expr.Case:
		if depth >= maxCaseDepth {
			return nil, errors.Wrapf(ErrConsistency, "case nesting exceeds %d levels; case table reachable from its own branches", maxCaseDepth)
		}
		addr, err := GetAddress(v, settings)
		if err != nil {
			return nil, err
		}
		return substCase(v.Cases[addr], settings, depth+1)
	case *expr.EqualTo:
		lhs, err := substCase(v.LHS, settings, depth)
		if err != nil {
			return nil, err
		}
		rhs, err := substCase(v.RHS, settings, depth)
		if err != nil {
			return nil, err
		}
		return expr.NewEqualTo(lhs, rhs), nil
	case *expr.Sum:
		ops, err := substOperands(v.Operands, settings, depth)
		if err != nil {
			return nil, err
		}
		return expr.NewSum(ops...), nil
	case *expr.Product:
		ops, err := substOperands(v.Operands, settings, depth)
		if err != nil {
			return nil, err
		}
		return expr.NewProduct(ops...), nil
	default:
		return e, nil
	}
}

func substOperands(ops []expr.Expr, settings Settings, depth int) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(ops))
	for i, op := range ops {
		sub, err := substCase(op, settings, depth)
		if err != nil {
			return nil, err
		}
		out[i] = sub
	}
	return out, nil
}

// NewCase builds a case table from 2^k alternative expressions and k one-bit
// unsigned selector signals. Constant branches are promoted to the shared
// format of all branches. With no selectors the sole branch is returned
// directly, without a case wrapper.
func NewCase(cases []expr.Expr, selBits []*expr.Signal) (expr.Expr, error) {
	if len(cases) == 0 {
		return nil, errors.Wrap(ErrCaseShape, "case table is empty")
	}
	if want := 1 << uint(len(selBits)); len(cases) != want {
		return nil, errors.Wrapf(ErrCaseShape, "case table has %d entries, want %d for %d selector bits", len(cases), want, len(selBits))
	}
	for _, sel := range selBits {
		if !sel.IsSelectorBit() {
			return nil, errors.Wrapf(ErrCaseShape, "selector %s is not a one-bit unsigned digital signal", sel.Name)
		}
	}

	formats := make([]expr.Format, len(cases))
	for i, c := range cases {
		formats[i] = c.Format()
	}
	shared, err := expr.UnionAll(formats...)
	if err != nil {
		return nil, errors.Wrapf(ErrCaseShape, "case branch formats do not unify: %v", err)
	}
	promoted := make([]expr.Expr, len(cases))
	for i, c := range cases {
		if k, ok := c.(*expr.Constant); ok {
			promoted[i] = &expr.Constant{Value: k.Value, Fmt: shared}
		} else {
			promoted[i] = c
		}
	}

	if len(promoted) == 1 {
		return promoted[0], nil
	}
	return &expr.Case{Cases: promoted, SelBits: selBits}, nil
}
