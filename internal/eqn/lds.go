package eqn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LDS is a linear dynamical system in state-space form:
//
//	continuous: d/dt state = A*state + B*input,  output = C*state + D*input
//	discrete:   state[n+1] = A*state[n] + B*input[n], output = C*state + D*input
//
// Matrices with a zero dimension are nil.
type LDS struct {
	Discrete bool

	NumStates  int
	NumInputs  int
	NumOutputs int

	A, B, C, D *mat.Dense
}

// NewLDS builds a continuous-time system from row-major coefficient slices.
// Any of the slices may be nil when the corresponding dimension is zero.
func NewLDS(numStates, numInputs, numOutputs int, a, b, c, d []float64) *LDS {
	return &LDS{
		NumStates:  numStates,
		NumInputs:  numInputs,
		NumOutputs: numOutputs,
		A:          newDense(numStates, numStates, a),
		B:          newDense(numStates, numInputs, b),
		C:          newDense(numOutputs, numStates, c),
		D:          newDense(numOutputs, numInputs, d),
	}
}

func newDense(r, c int, data []float64) *mat.Dense {
	if r == 0 || c == 0 {
		return nil
	}
	return mat.NewDense(r, c, data)
}

func at(m *mat.Dense, r, c int) float64 {
	if m == nil {
		return 0
	}
	return m.At(r, c)
}

// AAt returns A[r][c], treating a missing matrix as all zeros.
func (l *LDS) AAt(r, c int) float64 { return at(l.A, r, c) }

// BAt returns B[r][c].
func (l *LDS) BAt(r, c int) float64 { return at(l.B, r, c) }

// CAt returns C[r][c].
func (l *LDS) CAt(r, c int) float64 { return at(l.C, r, c) }

// DAt returns D[r][c].
func (l *LDS) DAt(r, c int) float64 { return at(l.D, r, c) }

// Collection is an ordered, address-indexed list of discretized systems, one
// per selector-bit combination. Entries are appended in strictly increasing
// address order and must all share the same dimensions.
type Collection struct {
	systems []*LDS
}

// Append adds the system for the next address. Dimension or tag mismatches
// against earlier entries indicate an analyzer bug, not a model error.
func (c *Collection) Append(l *LDS) error {
	if !l.Discrete {
		return errors.Wrap(ErrConsistency, "collection entries must be discrete-time")
	}
	if len(c.systems) > 0 {
		prev := c.systems[0]
		if l.NumStates != prev.NumStates || l.NumInputs != prev.NumInputs || l.NumOutputs != prev.NumOutputs {
			return errors.Wrapf(ErrConsistency,
				"dimension mismatch at address %d: (%d,%d,%d) vs (%d,%d,%d)",
				len(c.systems), l.NumStates, l.NumInputs, l.NumOutputs,
				prev.NumStates, prev.NumInputs, prev.NumOutputs)
		}
	}
	c.systems = append(c.systems, l)
	return nil
}

// Len returns the number of addresses.
func (c *Collection) Len() int { return len(c.systems) }

// At returns the system at the given address.
func (c *Collection) At(i int) *LDS { return c.systems[i] }

// AValues returns A[r][col] across all addresses, in address order.
func (c *Collection) AValues(r, col int) []float64 {
	return c.values(func(l *LDS) float64 { return l.AAt(r, col) })
}

// BValues returns B[r][col] across all addresses.
func (c *Collection) BValues(r, col int) []float64 {
	return c.values(func(l *LDS) float64 { return l.BAt(r, col) })
}

// CValues returns C[r][col] across all addresses.
func (c *Collection) CValues(r, col int) []float64 {
	return c.values(func(l *LDS) float64 { return l.CAt(r, col) })
}

// DValues returns D[r][col] across all addresses.
func (c *Collection) DValues(r, col int) []float64 {
	return c.values(func(l *LDS) float64 { return l.DAt(r, col) })
}

func (c *Collection) values(get func(*LDS) float64) []float64 {
	out := make([]float64, len(c.systems))
	for i, l := range c.systems {
		out[i] = get(l)
	}
	return out
}
