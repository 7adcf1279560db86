package model

import "github.com/nsulzer/msdsl/internal/expr"

// Timing distinguishes how an assignment updates its target.
type Timing int

const (
	// ThisCycle is a combinational update of an existing signal.
	ThisCycle Timing = iota
	// NextCycle is a clocked update taking effect on the next clock edge,
	// reset synchronously to the signal's declared initial value.
	NextCycle
	// Binding is a combinational definition that names an expression's
	// result as a new signal.
	Binding
)

func (t Timing) String() string {
	switch t {
	case ThisCycle:
		return "this-cycle"
	case NextCycle:
		return "next-cycle"
	case Binding:
		return "binding"
	default:
		return "unknown"
	}
}

// Assignment drives one signal from one expression. Every non-IO signal
// carries exactly one assignment by the time a model is compiled.
type Assignment struct {
	Signal *expr.Signal
	Expr   expr.Expr
	Timing Timing
}
