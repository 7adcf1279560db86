package eqn

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Discretize converts a continuous-time system into the exact discrete-time
// system sampled at fixed interval dt. The state update uses the matrix
// exponential of the augmented block [[A, B], [0, 0]]*dt, whose top rows are
// exactly Ad = exp(A*dt) and Bd = integral(exp(A*t), 0..dt)*B; this closed
// form holds for singular A (pure integrators) as well. C and D are
// memoryless and pass through unchanged.
func Discretize(l *LDS, dt float64) (*LDS, error) {
	if l.Discrete {
		return nil, errors.Wrap(ErrConsistency, "system is already discrete-time")
	}

	out := &LDS{
		Discrete:   true,
		NumStates:  l.NumStates,
		NumInputs:  l.NumInputs,
		NumOutputs: l.NumOutputs,
	}
	if l.C != nil {
		out.C = mat.DenseCopyOf(l.C)
	}
	if l.D != nil {
		out.D = mat.DenseCopyOf(l.D)
	}
	// A memoryless system needs no sample interval.
	if l.NumStates == 0 {
		return out, nil
	}
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, errors.Wrapf(ErrDiscretization, "sample interval %g is not a positive real", dt)
	}

	n := l.NumStates
	ni := l.NumInputs
	aug := mat.NewDense(n+ni, n+ni, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aug.Set(i, j, l.A.At(i, j)*dt)
		}
		for j := 0; j < ni; j++ {
			aug.Set(i, n+j, l.B.At(i, j)*dt)
		}
	}

	var exp mat.Dense
	exp.Exp(aug)

	ad := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := exp.At(i, j)
			if !isFinite(v) {
				return nil, errors.Wrapf(ErrDiscretization, "state matrix exponential is not finite at (%d,%d)", i, j)
			}
			ad.Set(i, j, v)
		}
	}
	out.A = ad
	if ni > 0 {
		bd := mat.NewDense(n, ni, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < ni; j++ {
				v := exp.At(i, n+j)
				if !isFinite(v) {
					return nil, errors.Wrapf(ErrDiscretization, "input matrix is not finite at (%d,%d)", i, j)
				}
				bd.Set(i, j, v)
			}
		}
		out.B = bd
	}
	return out, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// C2D maps a continuous transfer function, given as numerator and denominator
// coefficient lists in descending powers of s, to the discrete-time
// coefficients of the bilinear transform s = (2/dt)*(z-1)/(z+1). The results
// are in descending powers of z, normalized so the leading denominator
// coefficient is one.
func C2D(num, den []float64, dt float64) (b, a []float64, err error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, nil, errors.Wrapf(ErrDiscretization, "sample interval %g is not a positive real", dt)
	}
	if len(den) == 0 {
		return nil, nil, errors.Wrap(ErrDiscretization, "transfer function has an empty denominator")
	}
	if len(num) > len(den) {
		return nil, nil, errors.Wrapf(ErrDiscretization, "improper transfer function: numerator order %d exceeds denominator order %d", len(num)-1, len(den)-1)
	}

	order := len(den) - 1
	b = substituteBilinear(padLeft(num, len(den)), order, dt)
	a = substituteBilinear(den, order, dt)
	if a[0] == 0 {
		return nil, nil, errors.Wrap(ErrDiscretization, "bilinear transform yielded a zero leading denominator coefficient")
	}
	lead := a[0]
	for i := range a {
		a[i] /= lead
	}
	for i := range b {
		b[i] /= lead
	}
	return b, a, nil
}

// substituteBilinear evaluates poly(s) at s = (2/dt)(z-1)/(z+1) and clears
// the (z+1)^order denominator, returning a polynomial in z of the same
// order, descending powers.
func substituteBilinear(coeffs []float64, order int, dt float64) []float64 {
	k := 2 / dt
	out := make([]float64, order+1)
	for i, c := range coeffs {
		// coefficient of s^(order-i) becomes c*k^(order-i)*(z-1)^(order-i)*(z+1)^i
		pow := order - i
		term := polyMulAll(
			polyPow([]float64{1, -1}, pow),
			polyPow([]float64{1, 1}, i),
		)
		scale := c * math.Pow(k, float64(pow))
		for j, t := range term {
			out[j] += scale * t
		}
	}
	return out
}

func padLeft(coeffs []float64, n int) []float64 {
	if len(coeffs) >= n {
		return coeffs
	}
	out := make([]float64, n)
	copy(out[n-len(coeffs):], coeffs)
	return out
}

func polyMulAll(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

func polyPow(p []float64, n int) []float64 {
	out := []float64{1}
	for i := 0; i < n; i++ {
		out = polyMulAll(out, p)
	}
	return out
}
