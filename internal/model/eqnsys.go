package model

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/nsulzer/msdsl/internal/eqn"
	"github.com/nsulzer/msdsl/internal/expr"
)

// AddEqnSys compiles one system of equations into assignments. For every
// selector-bit address the case tables are resolved, the resulting linear
// system is extracted and discretized, and the per-address coefficients are
// assembled into address-indexed update expressions. Per-address work is
// independent and runs concurrently; the collection is rebuilt in ascending
// address order before assembly, which is an observable invariant of the
// generated tables.
func (m *Model) AddEqnSys(eqns []*expr.EqualTo, extraOutputs ...*expr.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sys := eqn.NewSystem(eqns...)
	io, err := m.equationIO(sys, extraOutputs)
	if err != nil {
		return err
	}
	if len(io.States) > 0 && m.DT <= 0 {
		return errors.Wrap(eqn.ErrDiscretization, "the model declares continuous dynamics but no sample interval")
	}

	numAddresses := 1 << uint(len(io.SelBits))
	results := make([]*eqn.LDS, numAddresses)
	errs := make([]error, numAddresses)
	var wg sync.WaitGroup
	for addr := 0; addr < numAddresses; addr++ {
		wg.Add(1)
		go func(addr int) {
			defer wg.Done()
			results[addr], errs[addr] = m.buildAddress(sys, io, addr)
		}(addr)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	collection := &eqn.Collection{}
	for _, lds := range results {
		if err := collection.Append(lds); err != nil {
			return err
		}
	}

	var sel expr.Expr
	if len(io.SelBits) > 0 {
		sel = &expr.Concatenate{Signals: io.SelBits}
	}
	return m.addDiscreteTimeLDS(collection, io, sel)
}

// buildAddress runs resolve, extract and discretize for one selector
// address.
func (m *Model) buildAddress(sys *eqn.System, io EquationIO, addr int) (*eqn.LDS, error) {
	settings, err := eqn.AddressToSettings(addr, io.SelBits)
	if err != nil {
		return nil, err
	}
	resolved, err := sys.Subst(settings)
	if err != nil {
		return nil, err
	}
	lds, err := eqn.Extract(resolved, io.States, io.Inputs, io.Outputs)
	if err != nil {
		return nil, err
	}
	return eqn.Discretize(lds, m.DT)
}

// addDiscreteTimeLDS turns the per-address coefficient collection into
// next-cycle state updates and this-cycle output updates. Coefficient tables
// with a single entry collapse to plain constants, so a caseless system
// emits no select hardware at all.
func (m *Model) addDiscreteTimeLDS(collection *eqn.Collection, io EquationIO, sel expr.Expr) error {
	for r, state := range io.States {
		terms := make([]expr.Expr, 0, len(io.States)+len(io.Inputs))
		for c, st := range io.States {
			coeff := expr.NewArraySelect(expr.Constants(collection.AValues(r, c)), sel)
			terms = append(terms, expr.NewProduct(coeff, st))
		}
		for c, in := range io.Inputs {
			coeff := expr.NewArraySelect(expr.Constants(collection.BValues(r, c)), sel)
			terms = append(terms, expr.NewProduct(coeff, in))
		}
		if err := m.SetNextCycle(state, expr.NewSum(terms...)); err != nil {
			return err
		}
	}

	for r, out := range io.Outputs {
		terms := make([]expr.Expr, 0, len(io.States)+len(io.Inputs))
		for c, st := range io.States {
			coeff := expr.NewArraySelect(expr.Constants(collection.CValues(r, c)), sel)
			terms = append(terms, expr.NewProduct(coeff, st))
		}
		for c, in := range io.Inputs {
			coeff := expr.NewArraySelect(expr.Constants(collection.DValues(r, c)), sel)
			terms = append(terms, expr.NewProduct(coeff, in))
		}
		e := expr.NewSum(terms...)

		if _, declared := m.signals[out.Name]; !declared {
			if _, err := m.BindName(out.Name, e); err != nil {
				return err
			}
			continue
		}
		if prev, ok := m.assignments[out.Name]; ok {
			// An output that already carries a binding keeps it as its
			// defining expression; the solved term merges in additively.
			if prev.Timing != Binding {
				return errors.Wrapf(ErrDeclaration, "the signal %s has already been assigned", out.Name)
			}
			prev.Expr = expr.NewSum(prev.Expr, e)
			continue
		}
		if err := m.SetThisCycle(out, e); err != nil {
			return err
		}
	}
	return nil
}

// SetTransferFunction discretizes a continuous transfer function, given as
// numerator and denominator coefficients in descending powers of s, and
// drives output from input through the resulting difference equation. Each
// history tap beyond the first materializes an auxiliary signal updated by a
// next-cycle copy of the previous tap.
func (m *Model) SetTransferFunction(input, output *expr.Signal, num, den []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DT <= 0 {
		return errors.Wrap(eqn.ErrDiscretization, "the model declares continuous dynamics but no sample interval")
	}
	b, a, err := eqn.C2D(num, den, m.DT)
	if err != nil {
		return err
	}

	inHist, err := m.makeHistory(input, len(b))
	if err != nil {
		return err
	}
	outHist, err := m.makeHistory(output, len(a)-1)
	if err != nil {
		return err
	}

	terms := make([]expr.Expr, 0, len(b)+len(a)-1)
	for k, coeff := range b {
		terms = append(terms, expr.NewProduct(expr.NewConstant(coeff), inHist[k]))
	}
	for k, tap := range outHist {
		terms = append(terms, expr.NewProduct(expr.NewConstant(-a[k+1]), tap))
	}
	return m.SetNextCycle(output, expr.NewSum(terms...))
}

// makeHistory returns [first, first_1, ..., first_{length-1}], declaring one
// delay signal per tap beyond the first, each copied from its predecessor on
// the next cycle. A zero length yields no taps at all, which is what a
// zeroth-order (static gain) difference equation needs.
func (m *Model) makeHistory(first *expr.Signal, length int) ([]*expr.Signal, error) {
	if length <= 0 {
		return nil, nil
	}
	hist := make([]*expr.Signal, 0, length)
	hist = append(hist, first)
	for k := 1; k < length; k++ {
		tap := &expr.Signal{
			Name:     fmt.Sprintf("%s_%d", first.Name, k),
			Role:     expr.AnalogState,
			Fmt:      first.Fmt,
			CopyFrom: first,
		}
		if _, err := m.AddSignal(tap); err != nil {
			return nil, err
		}
		if err := m.SetNextCycle(tap, hist[k-1]); err != nil {
			return nil, err
		}
		hist = append(hist, tap)
	}
	return hist, nil
}
