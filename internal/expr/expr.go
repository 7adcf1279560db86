package expr

import (
	"fmt"
	"math"
	"strings"
)

// Expr is an immutable expression tree node. Shared subtrees are allowed
// (forming a DAG) but cycles are not. The set of variants is closed: every
// traversal in this module switches exhaustively over the types below.
type Expr interface {
	Format() Format
	isExpr()
}

// Constant is a literal value with a fixed format.
type Constant struct {
	Value float64
	Fmt   Format
}

func (c *Constant) isExpr()        {}
func (c *Constant) Format() Format { return c.Fmt }

// NewConstant wraps a literal into an analog constant whose range is just
// large enough to hold it.
func NewConstant(v float64) *Constant {
	return &Constant{Value: v, Fmt: RealFormat{Range: math.Abs(v)}}
}

// Constants wraps a list of literals.
func Constants(vals []float64) []Expr {
	out := make([]Expr, len(vals))
	for i, v := range vals {
		out[i] = NewConstant(v)
	}
	return out
}

// Sum is the sum of its operands.
type Sum struct {
	Operands []Expr
}

func (s *Sum) isExpr() {}

func (s *Sum) Format() Format {
	total := 0.0
	for _, op := range s.Operands {
		f, ok := op.Format().(RealFormat)
		if !ok {
			return op.Format()
		}
		total += f.Range
	}
	return RealFormat{Range: total}
}

// Product is the product of its operands.
type Product struct {
	Operands []Expr
}

func (p *Product) isExpr() {}

func (p *Product) Format() Format {
	total := 1.0
	for _, op := range p.Operands {
		f, ok := op.Format().(RealFormat)
		if !ok {
			return op.Format()
		}
		total *= f.Range
	}
	return RealFormat{Range: total}
}

// EqualTo is an equation between two expressions. It has no value format.
type EqualTo struct {
	LHS Expr
	RHS Expr
}

func (e *EqualTo) isExpr()        {}
func (e *EqualTo) Format() Format { return nil }

// NewEqualTo builds an equation.
func NewEqualTo(lhs, rhs Expr) *EqualTo { return &EqualTo{LHS: lhs, RHS: rhs} }

// Deriv marks the time derivative of a signal. Signals appearing under a
// Deriv are the states of an equation system.
type Deriv struct {
	Sig *Signal
}

func (d *Deriv) isExpr()        {}
func (d *Deriv) Format() Format { return d.Sig.Fmt }

// NewDeriv marks sig as differentiated.
func NewDeriv(sig *Signal) *Deriv { return &Deriv{Sig: sig} }

// Concatenate joins digital signals into one word, first signal in the most
// significant position.
type Concatenate struct {
	Signals []*Signal
}

func (c *Concatenate) isExpr() {}

func (c *Concatenate) Format() Format {
	width := 0
	for _, s := range c.Signals {
		if f, ok := s.Fmt.(IntFormat); ok {
			width += f.Width
		}
	}
	return IntFormat{Width: width}
}

// ArraySelect selects one of its elements by the value of a digital address
// expression. It is the hardware-facing form of a resolved case table.
type ArraySelect struct {
	Elements []Expr
	Address  Expr
}

func (a *ArraySelect) isExpr() {}

func (a *ArraySelect) Format() Format {
	out := a.Elements[0].Format()
	for _, el := range a.Elements[1:] {
		u, err := Union(out, el.Format())
		if err != nil {
			return out
		}
		out = u
	}
	return out
}

// NewArraySelect builds an element table addressed by addr. A single-entry
// table collapses to its sole element with no table at all. Elements must be
// non-empty.
func NewArraySelect(elements []Expr, addr Expr) Expr {
	if len(elements) == 1 {
		return elements[0]
	}
	return &ArraySelect{Elements: elements, Address: addr}
}

// Case is a table of 2^n alternative expressions addressed by n one-bit
// selector signals, first selector in the most significant position. Case
// nodes exist only during model description; substitution resolves them
// before any linear extraction.
type Case struct {
	Cases   []Expr
	SelBits []*Signal
}

func (c *Case) isExpr() {}

func (c *Case) Format() Format {
	out := c.Cases[0].Format()
	for _, el := range c.Cases[1:] {
		u, err := Union(out, el.Format())
		if err != nil {
			return out
		}
		out = u
	}
	return out
}

// NewSum builds the sum of the operands, flattening nested sums and folding
// constants. An empty or fully-cancelled sum is the constant zero; a
// single-operand sum is the operand itself.
func NewSum(operands ...Expr) Expr {
	var ops []Expr
	acc := 0.0
	for _, op := range operands {
		switch o := op.(type) {
		case *Constant:
			acc += o.Value
		case *Sum:
			for _, inner := range o.Operands {
				if c, ok := inner.(*Constant); ok {
					acc += c.Value
				} else {
					ops = append(ops, inner)
				}
			}
		default:
			ops = append(ops, op)
		}
	}
	if acc != 0 {
		ops = append(ops, NewConstant(acc))
	}
	switch len(ops) {
	case 0:
		return NewConstant(0)
	case 1:
		return ops[0]
	default:
		return &Sum{Operands: ops}
	}
}

// NewProduct builds the product of the operands, flattening nested products
// and folding constants. A zero factor collapses the whole product to zero;
// unit factors are dropped.
func NewProduct(operands ...Expr) Expr {
	var ops []Expr
	acc := 1.0
	for _, op := range operands {
		switch o := op.(type) {
		case *Constant:
			acc *= o.Value
		case *Product:
			for _, inner := range o.Operands {
				if c, ok := inner.(*Constant); ok {
					acc *= c.Value
				} else {
					ops = append(ops, inner)
				}
			}
		default:
			ops = append(ops, op)
		}
	}
	if acc == 0 {
		return NewConstant(0)
	}
	if acc != 1 {
		ops = append([]Expr{NewConstant(acc)}, ops...)
	}
	switch len(ops) {
	case 0:
		return NewConstant(acc)
	case 1:
		return ops[0]
	default:
		return &Product{Operands: ops}
	}
}

// Sprint renders an expression for error messages and debugging.
func Sprint(e Expr) string {
	switch v := e.(type) {
	case *Constant:
		return fmt.Sprintf("%g", v.Value)
	case *Signal:
		return v.Name
	case *Sum:
		return "(" + joinSprint(v.Operands, " + ") + ")"
	case *Product:
		return "(" + joinSprint(v.Operands, " * ") + ")"
	case *EqualTo:
		return Sprint(v.LHS) + " == " + Sprint(v.RHS)
	case *Deriv:
		return "deriv(" + v.Sig.Name + ")"
	case *Concatenate:
		names := make([]string, len(v.Signals))
		for i, s := range v.Signals {
			names[i] = s.Name
		}
		return "{" + strings.Join(names, ", ") + "}"
	case *ArraySelect:
		return "array(" + joinSprint(v.Elements, ", ") + ")[" + Sprint(v.Address) + "]"
	case *Case:
		names := make([]string, len(v.SelBits))
		for i, s := range v.SelBits {
			names[i] = s.Name
		}
		return "case([" + joinSprint(v.Cases, ", ") + "], {" + strings.Join(names, ", ") + "})"
	default:
		return fmt.Sprintf("%T", e)
	}
}

func joinSprint(ops []Expr, sep string) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = Sprint(op)
	}
	return strings.Join(parts, sep)
}
