package eqn

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscretizePureIntegrator(t *testing.T) {
	// deriv(z) = x has a singular state matrix; the exact discretization is
	// the unit accumulator z[n+1] = z[n] + dt*x[n].
	l := NewLDS(1, 1, 0, []float64{0}, []float64{1}, nil, nil)
	d, err := Discretize(l, 1)
	require.NoError(t, err)

	assert.True(t, d.Discrete)
	assert.InDelta(t, 1, d.AAt(0, 0), 1e-9)
	assert.InDelta(t, 1, d.BAt(0, 0), 1e-9)
}

func TestDiscretizeFirstOrderDecay(t *testing.T) {
	l := NewLDS(1, 1, 0, []float64{-1}, []float64{1}, nil, nil)
	d, err := Discretize(l, 1)
	require.NoError(t, err)

	assert.InDelta(t, math.Exp(-1), d.AAt(0, 0), 1e-9)
	assert.InDelta(t, 1-math.Exp(-1), d.BAt(0, 0), 1e-9)
}

func TestDiscretizeScalesWithInterval(t *testing.T) {
	l := NewLDS(1, 1, 0, []float64{-2}, []float64{3}, nil, nil)
	d, err := Discretize(l, 0.25)
	require.NoError(t, err)

	// Ad = exp(a*dt), Bd = (exp(a*dt)-1)/a * b for scalar a.
	ad := math.Exp(-2 * 0.25)
	assert.InDelta(t, ad, d.AAt(0, 0), 1e-9)
	assert.InDelta(t, (ad-1)/(-2)*3, d.BAt(0, 0), 1e-9)
}

func TestDiscretizeMemoryless(t *testing.T) {
	l := NewLDS(0, 1, 1, nil, nil, nil, []float64{5})
	d, err := Discretize(l, 0) // no states, so no interval needed
	require.NoError(t, err)

	assert.True(t, d.Discrete)
	assert.Nil(t, d.A)
	assert.InDelta(t, 5, d.DAt(0, 0), 1e-12)
}

func TestDiscretizeRejectsBadInterval(t *testing.T) {
	l := NewLDS(1, 0, 0, []float64{-1}, nil, nil, nil)
	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Discretize(l, dt)
		assert.True(t, errors.Is(err, ErrDiscretization), "dt=%g: got %v", dt, err)
	}
}

func TestDiscretizeTwice(t *testing.T) {
	l := NewLDS(1, 0, 0, []float64{-1}, nil, nil, nil)
	d, err := Discretize(l, 1)
	require.NoError(t, err)

	_, err = Discretize(d, 1)
	assert.True(t, errors.Is(err, ErrConsistency), "got %v", err)
}

func TestC2DFirstOrderLowpass(t *testing.T) {
	// H(s) = 1/(s+1) under the bilinear transform with dt=1:
	// denominator (2(z-1) + (z+1)) = 3z - 1, numerator z + 1.
	b, a, err := C2D([]float64{1}, []float64{1, 1}, 1)
	require.NoError(t, err)

	require.Len(t, b, 2)
	require.Len(t, a, 2)
	assert.InDelta(t, 1.0/3, b[0], 1e-12)
	assert.InDelta(t, 1.0/3, b[1], 1e-12)
	assert.InDelta(t, 1, a[0], 1e-12)
	assert.InDelta(t, -1.0/3, a[1], 1e-12)
}

func TestC2DPreservesDCGain(t *testing.T) {
	// The bilinear transform maps s=0 to z=1, so the DC gain is preserved.
	b, a, err := C2D([]float64{2}, []float64{0.5, 1}, 1e-3)
	require.NoError(t, err)

	var num, den float64
	for _, v := range b {
		num += v
	}
	for _, v := range a {
		den += v
	}
	assert.InDelta(t, 2, num/den, 1e-9)
}

func TestC2DErrors(t *testing.T) {
	cases := []struct {
		name string
		num  []float64
		den  []float64
		dt   float64
	}{
		{"bad interval", []float64{1}, []float64{1, 1}, 0},
		{"empty denominator", []float64{1}, nil, 1},
		{"improper", []float64{1, 0, 0}, []float64{1, 1}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := C2D(tc.num, tc.den, tc.dt)
			assert.True(t, errors.Is(err, ErrDiscretization), "got %v", err)
		})
	}
}
