package eqn

import "github.com/nsulzer/msdsl/internal/expr"

// System is one ordered set of equations compiled together.
type System struct {
	Eqns []*expr.EqualTo
}

// NewSystem builds an equation system.
func NewSystem(eqns ...*expr.EqualTo) *System {
	return &System{Eqns: eqns}
}

// Refs collects the signal references of every equation, including case
// branches that substitution has not resolved yet.
func (s *System) Refs() expr.RefSet {
	exprs := make([]expr.Expr, len(s.Eqns))
	for i, e := range s.Eqns {
		exprs[i] = e
	}
	return expr.Refs(exprs...)
}

// Subst returns a copy of the system with every case node resolved under the
// given selector settings.
func (s *System) Subst(settings Settings) (*System, error) {
	out := make([]*expr.EqualTo, len(s.Eqns))
	for i, e := range s.Eqns {
		sub, err := SubstCase(e, settings)
		if err != nil {
			return nil, err
		}
		out[i] = sub.(*expr.EqualTo)
	}
	return &System{Eqns: out}, nil
}
