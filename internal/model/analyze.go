package model

import (
	"github.com/pkg/errors"

	"github.com/nsulzer/msdsl/internal/eqn"
	"github.com/nsulzer/msdsl/internal/expr"
)

// EquationIO classifies the free signals of an equation system relative to
// the model: knowns (inputs), states, unknown outputs, and the selector bits
// addressing its case tables. The four sets are disjoint; each is in sorted
// name order so the matrix layout is deterministic.
type EquationIO struct {
	Inputs  []*expr.Signal
	States  []*expr.Signal
	Outputs []*expr.Signal
	SelBits []*expr.Signal
}

// equationIO classifies all signals referenced by the system, including
// those inside unresolved case branches. Extras name additional output
// unknowns; an extra absent from the catalog is created later by a binding.
func (m *Model) equationIO(sys *eqn.System, extras []*expr.Signal) (EquationIO, error) {
	refs := sys.Refs()
	all := refs.All()

	extraByName := make(map[string]*expr.Signal, len(extras))
	for _, s := range extras {
		extraByName[s.Name] = s
	}
	for _, name := range expr.Names(all) {
		if _, ok := m.signals[name]; ok {
			continue
		}
		if _, ok := extraByName[name]; ok {
			continue
		}
		return EquationIO{}, errors.Wrapf(ErrDeclaration, "the equations reference %s, which has not been declared", name)
	}

	var io EquationIO

	inputNames := make(map[string]bool)
	for _, name := range expr.Names(refs.Values) {
		s, ok := m.signals[name]
		if !ok {
			continue
		}
		bound := false
		if a, has := m.assignments[name]; has && a.Timing == Binding {
			bound = true
		}
		if s.IsInput() || bound {
			inputNames[name] = true
			io.Inputs = append(io.Inputs, s)
		}
	}

	stateNames := make(map[string]bool)
	for _, name := range expr.Names(refs.Derivs) {
		s, ok := m.signals[name]
		if !ok {
			return EquationIO{}, errors.Wrapf(ErrDeclaration, "the state %s has not been declared", name)
		}
		stateNames[name] = true
		io.States = append(io.States, s)
	}

	// Sorted-name order IS the analyzer's declared selector order: the same
	// SelBits slice drives both the address expansion and the concatenated
	// address word, so the two encodings can never drift apart.
	for _, name := range expr.Names(refs.Selectors) {
		if _, ok := m.signals[name]; !ok {
			return EquationIO{}, errors.Wrapf(ErrDeclaration, "the case selector %s has not been declared", name)
		}
		if _, usedAsValue := refs.Values[name]; usedAsValue {
			return EquationIO{}, errors.Wrapf(eqn.ErrAnalysis, "signal %s is used both as a case selector and as a value", name)
		}
		if _, differentiated := refs.Derivs[name]; differentiated {
			return EquationIO{}, errors.Wrapf(eqn.ErrAnalysis, "case selector %s cannot be differentiated", name)
		}
		io.SelBits = append(io.SelBits, m.signals[name])
	}

	outputNames := make(map[string]bool)
	for _, name := range expr.Names(refs.Values) {
		if inputNames[name] || stateNames[name] {
			continue
		}
		if s, ok := m.signals[name]; ok {
			outputNames[name] = true
			io.Outputs = append(io.Outputs, s)
		}
	}
	for _, s := range extras {
		if outputNames[s.Name] || inputNames[s.Name] || stateNames[s.Name] {
			continue
		}
		if declared, ok := m.signals[s.Name]; ok {
			io.Outputs = append(io.Outputs, declared)
		} else {
			io.Outputs = append(io.Outputs, s)
		}
		outputNames[s.Name] = true
	}

	return io, nil
}
