package eqn

import (
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/nsulzer/msdsl/internal/expr"
)

// offsetTol bounds the constant residual allowed to survive the solve.
// State-space form has no affine column, so anything larger is an error.
const offsetTol = 1e-9

const derivPrefix = "deriv:"

func derivKey(name string) string { return derivPrefix + name }

// linForm is an affine combination of named terms: sum of coeffs[k]*k plus a
// constant. Derivative terms are keyed with derivPrefix.
type linForm struct {
	coeffs map[string]float64
	konst  float64
}

func newLinForm() *linForm {
	return &linForm{coeffs: make(map[string]float64)}
}

func (f *linForm) add(other *linForm) {
	f.konst += other.konst
	for k, v := range other.coeffs {
		f.coeffs[k] += v
	}
}

func (f *linForm) scale(c float64) {
	f.konst *= c
	for k := range f.coeffs {
		f.coeffs[k] *= c
	}
}

// linearize reduces a case-free expression to affine form over its signals
// and derivative markers.
func linearize(e expr.Expr) (*linForm, error) {
	switch v := e.(type) {
	case *expr.Constant:
		f := newLinForm()
		f.konst = v.Value
		return f, nil
	case *expr.Signal:
		f := newLinForm()
		f.coeffs[v.Name] = 1
		return f, nil
	case *expr.Deriv:
		f := newLinForm()
		f.coeffs[derivKey(v.Sig.Name)] = 1
		return f, nil
	case *expr.Sum:
		out := newLinForm()
		for _, op := range v.Operands {
			f, err := linearize(op)
			if err != nil {
				return nil, err
			}
			out.add(f)
		}
		return out, nil
	case *expr.Product:
		out := newLinForm()
		out.konst = 1
		for _, op := range v.Operands {
			f, err := linearize(op)
			if err != nil {
				return nil, err
			}
			if len(out.coeffs) > 0 && len(f.coeffs) > 0 {
				return nil, errors.Wrapf(ErrAnalysis, "product %s is not affine in its unknowns", expr.Sprint(v))
			}
			if len(f.coeffs) == 0 {
				out.scale(f.konst)
				continue
			}
			c := out.konst
			out = f
			out.scale(c)
		}
		return out, nil
	case *expr.Case:
		return nil, errors.Wrapf(ErrConsistency, "unresolved case table in %s", expr.Sprint(v))
	default:
		return nil, errors.Wrapf(ErrAnalysis, "expression %s cannot appear in a linear equation", expr.Sprint(e))
	}
}

// Extract solves one case-free equation system for its unknowns (state
// derivatives and outputs) and returns the continuous-time state-space
// matrices. The solve is simultaneous: equations may be given in any order
// and may couple several unknowns implicitly.
func Extract(sys *System, states, inputs, outputs []*expr.Signal) (*LDS, error) {
	numStates := len(states)
	numInputs := len(inputs)
	numOutputs := len(outputs)
	numUnknowns := numStates + numOutputs

	if len(sys.Eqns) != numUnknowns {
		return nil, errors.Wrapf(ErrAnalysis, "%d equations for %d unknowns (%d states, %d outputs)",
			len(sys.Eqns), numUnknowns, numStates, numOutputs)
	}
	if numUnknowns == 0 {
		return NewLDS(0, numInputs, 0, nil, nil, nil, nil), nil
	}

	unknownIdx := make(map[string]int, numUnknowns)
	for i, s := range states {
		unknownIdx[derivKey(s.Name)] = i
	}
	for i, s := range outputs {
		unknownIdx[s.Name] = numStates + i
	}
	numKnowns := numStates + numInputs
	knownIdx := make(map[string]int, numKnowns)
	for i, s := range states {
		knownIdx[s.Name] = i
	}
	for i, s := range inputs {
		knownIdx[s.Name] = numStates + i
	}

	// M*u = -(K*v + g), columns of rhs are knowns then the constant.
	m := mat.NewDense(numUnknowns, numUnknowns, nil)
	rhs := mat.NewDense(numUnknowns, numKnowns+1, nil)
	for i, e := range sys.Eqns {
		lhs, err := linearize(e.LHS)
		if err != nil {
			return nil, err
		}
		r, err := linearize(e.RHS)
		if err != nil {
			return nil, err
		}
		r.scale(-1)
		lhs.add(r)
		for key, val := range lhs.coeffs {
			if j, ok := unknownIdx[key]; ok {
				m.Set(i, j, m.At(i, j)+val)
				continue
			}
			if j, ok := knownIdx[key]; ok {
				rhs.Set(i, j, rhs.At(i, j)-val)
				continue
			}
			if strings.HasPrefix(key, derivPrefix) {
				return nil, errors.Wrapf(ErrAnalysis, "derivative of %s in equation %s, but %s is not a state",
					strings.TrimPrefix(key, derivPrefix), expr.Sprint(e), strings.TrimPrefix(key, derivPrefix))
			}
			return nil, errors.Wrapf(ErrAnalysis, "unresolvable reference %s in equation %s", key, expr.Sprint(e))
		}
		rhs.Set(i, numKnowns, rhs.At(i, numKnowns)-lhs.konst)
	}

	var x mat.Dense
	if err := x.Solve(m, rhs); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, errors.Wrapf(ErrAnalysis, "equations do not determine the unknowns: %v", err)
		}
	}
	// An ill-conditioned solve is tolerated above, but a rank-deficient
	// system leaves Inf/NaN in the solution, which would otherwise slip past
	// the offset check and into the generated coefficients.
	for i := 0; i < numUnknowns; i++ {
		for j := 0; j <= numKnowns; j++ {
			if !isFinite(x.At(i, j)) {
				return nil, errors.Wrap(ErrAnalysis, "equations do not determine the unknowns: the system is rank deficient")
			}
		}
	}
	for i := 0; i < numUnknowns; i++ {
		if off := x.At(i, numKnowns); off > offsetTol || off < -offsetTol {
			return nil, errors.Wrapf(ErrAnalysis, "constant offset %g in the solution for unknown %d; state-space form has no affine term", off, i)
		}
	}

	a := make([]float64, numStates*numStates)
	b := make([]float64, numStates*numInputs)
	cm := make([]float64, numOutputs*numStates)
	d := make([]float64, numOutputs*numInputs)
	for i := 0; i < numStates; i++ {
		for j := 0; j < numStates; j++ {
			a[i*numStates+j] = x.At(i, j)
		}
		for j := 0; j < numInputs; j++ {
			b[i*numInputs+j] = x.At(i, numStates+j)
		}
	}
	for i := 0; i < numOutputs; i++ {
		for j := 0; j < numStates; j++ {
			cm[i*numStates+j] = x.At(numStates+i, j)
		}
		for j := 0; j < numInputs; j++ {
			d[i*numInputs+j] = x.At(numStates+i, numStates+j)
		}
	}
	return NewLDS(numStates, numInputs, numOutputs, a, b, cm, d), nil
}
