package model

import (
	"github.com/pkg/errors"

	"github.com/nsulzer/msdsl/internal/eqn"
	"github.com/nsulzer/msdsl/internal/expr"
)

// CodeGenerator renders a compiled model for one hardware description
// target. Compile drives it in a fixed order: StartModule, internal signal
// declarations, assignments in declaration order, probes, EndModule.
// MakeSection emits an advisory label with no semantic effect.
type CodeGenerator interface {
	StartModule(name string, ios []*expr.Signal) error
	MakeSection(label string)
	MakeSignal(s *expr.Signal) error
	SetThisCycle(s *expr.Signal, e expr.Expr) error
	SetNextCycle(s *expr.Signal, e expr.Expr, init float64) error
	BindName(name string, e expr.Expr) error
	MakeProbe(s *expr.Signal) error
	EndModule() error
}

// Compile emits the whole model through the generator. Compilation is
// all-or-nothing: the first error aborts with no further output, and the
// caller persists the artifact only on success.
func (m *Model) Compile(gen CodeGenerator) error {
	var ios, internals []*expr.Signal
	for _, name := range m.order {
		s := m.signals[name]
		if s.IsIO() {
			ios = append(ios, s)
			continue
		}
		a, ok := m.assignments[name]
		if !ok {
			return errors.Wrapf(ErrDeclaration, "the signal %s has not been assigned", name)
		}
		if a.Timing != Binding {
			internals = append(internals, s)
		}
	}

	if err := gen.StartModule(m.Name, ios); err != nil {
		return err
	}

	if len(internals) > 0 {
		gen.MakeSection("Declaring internal variables.")
	}
	for _, s := range internals {
		if err := gen.MakeSignal(s); err != nil {
			return err
		}
	}

	for _, name := range m.assignOrder {
		a := m.assignments[name]
		gen.MakeSection("Assign signal: " + name)
		var err error
		switch a.Timing {
		case ThisCycle:
			err = gen.SetThisCycle(a.Signal, a.Expr)
		case NextCycle:
			err = gen.SetNextCycle(a.Signal, a.Expr, a.Signal.Init)
		case Binding:
			err = gen.BindName(a.Signal.Name, a.Expr)
		default:
			err = errors.Wrapf(eqn.ErrConsistency, "assignment for %s carries unknown timing tag %d", name, a.Timing)
		}
		if err != nil {
			return err
		}
	}

	for _, s := range m.probes {
		if err := gen.MakeProbe(s); err != nil {
			return err
		}
	}

	return gen.EndModule()
}
