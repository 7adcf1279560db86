package expr

import (
	"math"

	"github.com/pkg/errors"
)

// Format describes the numeric representation of a signal or expression.
type Format interface{ isFormat() }

// RealFormat describes an analog quantity bounded by |value| <= Range.
// Width and Exponent optionally pin the fixed-point representation; a zero
// Width means the backend is free to choose one.
type RealFormat struct {
	Range       float64
	Width       int
	Exponent    int
	HasExponent bool
}

func (RealFormat) isFormat() {}

// IntFormat describes a digital quantity of Width bits.
type IntFormat struct {
	Width  int
	Signed bool
}

func (IntFormat) isFormat() {}

// Union returns the least upper bound of two formats: a format wide enough to
// represent any value representable in either operand. Mixing analog and
// digital formats is not defined.
func Union(a, b Format) (Format, error) {
	switch fa := a.(type) {
	case RealFormat:
		fb, ok := b.(RealFormat)
		if !ok {
			return nil, errors.Errorf("cannot union analog format with %T", b)
		}
		out := RealFormat{Range: math.Max(fa.Range, fb.Range)}
		if fa.Width > 0 && fb.Width > 0 {
			out.Width = fa.Width
			if fb.Width > out.Width {
				out.Width = fb.Width
			}
		}
		if fa.HasExponent && fb.HasExponent {
			out.Exponent = fa.Exponent
			if fb.Exponent < out.Exponent {
				out.Exponent = fb.Exponent
			}
			out.HasExponent = true
		}
		return out, nil
	case IntFormat:
		fb, ok := b.(IntFormat)
		if !ok {
			return nil, errors.Errorf("cannot union digital format with %T", b)
		}
		out := IntFormat{Width: fa.Width, Signed: fa.Signed || fb.Signed}
		if fb.Width > out.Width {
			out.Width = fb.Width
		}
		// An unsigned operand needs one extra bit once the result is signed.
		if out.Signed && ((!fa.Signed && fa.Width == out.Width) || (!fb.Signed && fb.Width == out.Width)) {
			out.Width++
		}
		return out, nil
	default:
		return nil, errors.Errorf("unknown format %T", a)
	}
}

// UnionAll folds Union over one or more formats.
func UnionAll(formats ...Format) (Format, error) {
	if len(formats) == 0 {
		return nil, errors.New("no formats to union")
	}
	out := formats[0]
	for _, f := range formats[1:] {
		var err error
		out, err = Union(out, f)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
