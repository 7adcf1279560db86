package expr

import "sort"

// RefSet records how an expression set references signals: as plain values,
// under a derivative marker, or as case selector bits. One signal may appear
// in more than one map.
type RefSet struct {
	Values    map[string]*Signal
	Derivs    map[string]*Signal
	Selectors map[string]*Signal
}

// Refs collects signal references from the given expressions, descending
// into every case branch before any substitution has happened.
func Refs(exprs ...Expr) RefSet {
	r := RefSet{
		Values:    make(map[string]*Signal),
		Derivs:    make(map[string]*Signal),
		Selectors: make(map[string]*Signal),
	}
	for _, e := range exprs {
		r.collect(e)
	}
	return r
}

func (r *RefSet) collect(e Expr) {
	switch v := e.(type) {
	case *Constant:
	case *Signal:
		r.Values[v.Name] = v
	case *Sum:
		for _, op := range v.Operands {
			r.collect(op)
		}
	case *Product:
		for _, op := range v.Operands {
			r.collect(op)
		}
	case *EqualTo:
		r.collect(v.LHS)
		r.collect(v.RHS)
	case *Deriv:
		r.Derivs[v.Sig.Name] = v.Sig
	case *Concatenate:
		for _, s := range v.Signals {
			r.Values[s.Name] = s
		}
	case *ArraySelect:
		for _, el := range v.Elements {
			r.collect(el)
		}
		r.collect(v.Address)
	case *Case:
		for _, c := range v.Cases {
			r.collect(c)
		}
		for _, s := range v.SelBits {
			r.Selectors[s.Name] = s
		}
	}
}

// All returns every referenced signal, whatever the reference kind.
func (r RefSet) All() map[string]*Signal {
	out := make(map[string]*Signal, len(r.Values)+len(r.Derivs)+len(r.Selectors))
	for n, s := range r.Values {
		out[n] = s
	}
	for n, s := range r.Derivs {
		out[n] = s
	}
	for n, s := range r.Selectors {
		out[n] = s
	}
	return out
}

// Names returns the sorted names of a signal map. Iteration over maps is
// unordered, so every consumer that needs determinism goes through here.
func Names(m map[string]*Signal) []string {
	out := make([]string, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// HasCase reports whether any Case node remains in the expression.
func HasCase(e Expr) bool {
	switch v := e.(type) {
	case *Case:
		return true
	case *Sum:
		for _, op := range v.Operands {
			if HasCase(op) {
				return true
			}
		}
	case *Product:
		for _, op := range v.Operands {
			if HasCase(op) {
				return true
			}
		}
	case *EqualTo:
		return HasCase(v.LHS) || HasCase(v.RHS)
	case *ArraySelect:
		for _, el := range v.Elements {
			if HasCase(el) {
				return true
			}
		}
		return HasCase(v.Address)
	}
	return false
}
