package eqn

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsulzer/msdsl/internal/expr"
)

func TestExtractFirstOrder(t *testing.T) {
	x := expr.NewAnalogSignal("x", 1)
	z := expr.NewAnalogSignal("z", 1)

	// deriv(z) = x - z
	sys := NewSystem(expr.NewEqualTo(
		expr.NewDeriv(z),
		expr.NewSum(x, expr.NewProduct(expr.NewConstant(-1), z)),
	))
	lds, err := Extract(sys, []*expr.Signal{z}, []*expr.Signal{x}, nil)
	require.NoError(t, err)

	assert.False(t, lds.Discrete)
	assert.Equal(t, 1, lds.NumStates)
	assert.Equal(t, 1, lds.NumInputs)
	assert.Equal(t, 0, lds.NumOutputs)
	assert.InDelta(t, -1, lds.AAt(0, 0), 1e-12)
	assert.InDelta(t, 1, lds.BAt(0, 0), 1e-12)
}

func TestExtractImplicitCoupling(t *testing.T) {
	x := expr.NewAnalogSignal("x", 1)
	z := expr.NewAnalogSignal("z", 1)
	y := expr.NewAnalogSignal("y", 1)

	// Equations given out of order and coupled through y:
	//   deriv(z) = y - z
	//   y = 2*z + x
	sys := NewSystem(
		expr.NewEqualTo(
			expr.NewDeriv(z),
			expr.NewSum(y, expr.NewProduct(expr.NewConstant(-1), z)),
		),
		expr.NewEqualTo(
			y,
			expr.NewSum(expr.NewProduct(expr.NewConstant(2), z), x),
		),
	)
	lds, err := Extract(sys, []*expr.Signal{z}, []*expr.Signal{x}, []*expr.Signal{y})
	require.NoError(t, err)

	// Substituting y gives deriv(z) = z + x.
	assert.InDelta(t, 1, lds.AAt(0, 0), 1e-12)
	assert.InDelta(t, 1, lds.BAt(0, 0), 1e-12)
	assert.InDelta(t, 2, lds.CAt(0, 0), 1e-12)
	assert.InDelta(t, 1, lds.DAt(0, 0), 1e-12)
}

func TestExtractNonAffineProduct(t *testing.T) {
	z := expr.NewAnalogSignal("z", 1)

	sys := NewSystem(expr.NewEqualTo(expr.NewDeriv(z), &expr.Product{Operands: []expr.Expr{z, z}}))
	_, err := Extract(sys, []*expr.Signal{z}, nil, nil)
	assert.True(t, errors.Is(err, ErrAnalysis), "got %v", err)
}

func TestExtractEquationCountMismatch(t *testing.T) {
	x := expr.NewAnalogSignal("x", 1)
	z := expr.NewAnalogSignal("z", 1)

	sys := NewSystem(
		expr.NewEqualTo(expr.NewDeriv(z), x),
		expr.NewEqualTo(z, x),
	)
	_, err := Extract(sys, []*expr.Signal{z}, []*expr.Signal{x}, nil)
	assert.True(t, errors.Is(err, ErrAnalysis), "got %v", err)
}

func TestExtractConstantOffset(t *testing.T) {
	z := expr.NewAnalogSignal("z", 1)

	// deriv(z) = z + 1 is affine but not linear.
	sys := NewSystem(expr.NewEqualTo(expr.NewDeriv(z), expr.NewSum(z, expr.NewConstant(1))))
	_, err := Extract(sys, []*expr.Signal{z}, nil, nil)
	assert.True(t, errors.Is(err, ErrAnalysis), "got %v", err)
}

func TestExtractRankDeficient(t *testing.T) {
	x := expr.NewAnalogSignal("x", 1)
	y1 := expr.NewAnalogSignal("y1", 1)
	y2 := expr.NewAnalogSignal("y2", 1)

	// The same constraint twice leaves y1 and y2 undetermined even though
	// the equation count matches the unknown count.
	sys := NewSystem(
		expr.NewEqualTo(expr.NewSum(y1, y2), x),
		expr.NewEqualTo(expr.NewSum(y1, y2), x),
	)
	_, err := Extract(sys, nil, []*expr.Signal{x}, []*expr.Signal{y1, y2})
	assert.True(t, errors.Is(err, ErrAnalysis), "got %v", err)
}

func TestExtractDerivOfNonState(t *testing.T) {
	x := expr.NewAnalogSignal("x", 1)
	z := expr.NewAnalogSignal("z", 1)

	sys := NewSystem(expr.NewEqualTo(expr.NewDeriv(x), z))
	_, err := Extract(sys, []*expr.Signal{z}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnalysis), "got %v", err)
}

func TestExtractUnresolvedCase(t *testing.T) {
	z := expr.NewAnalogSignal("z", 1)
	s0 := selBit("s0")
	c, err := NewCase(expr.Constants([]float64{-1, -2}), []*expr.Signal{s0})
	require.NoError(t, err)

	sys := NewSystem(expr.NewEqualTo(expr.NewDeriv(z), expr.NewProduct(c, z)))
	_, err = Extract(sys, []*expr.Signal{z}, nil, nil)
	assert.True(t, errors.Is(err, ErrConsistency), "got %v", err)
}

func TestExtractMemoryless(t *testing.T) {
	x := expr.NewAnalogSignal("x", 1)
	y := expr.NewAnalogSignal("y", 1)

	sys := NewSystem(expr.NewEqualTo(y, expr.NewProduct(expr.NewConstant(3), x)))
	lds, err := Extract(sys, nil, []*expr.Signal{x}, []*expr.Signal{y})
	require.NoError(t, err)

	assert.Equal(t, 0, lds.NumStates)
	assert.Nil(t, lds.A)
	assert.InDelta(t, 3, lds.DAt(0, 0), 1e-12)
}
