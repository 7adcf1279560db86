package eqn

import "github.com/pkg/errors"

// Error kinds raised by equation compilation. Callers classify with
// errors.Is; context is attached at the point of detection.
var (
	// ErrCaseShape marks a malformed case table: wrong length for its
	// selector count, a selector that is not a one-bit unsigned digital
	// signal, or an out-of-range address.
	ErrCaseShape = errors.New("invalid case table")

	// ErrAnalysis marks an equation set that cannot be turned into a linear
	// dynamical system: not affine in its unknowns, wrong equation count, or
	// an unresolvable free reference.
	ErrAnalysis = errors.New("equation analysis failed")

	// ErrDiscretization marks a failure to produce an exact discrete-time
	// update at the declared sample interval.
	ErrDiscretization = errors.New("discretization failed")

	// ErrConsistency marks an internal invariant violation. It is never
	// attributable to user input and always aborts compilation.
	ErrConsistency = errors.New("internal consistency error")
)
