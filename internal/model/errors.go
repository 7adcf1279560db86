package model

import "github.com/pkg/errors"

// ErrDeclaration marks a model description error: duplicate signal names,
// references to undeclared signals, double assignment, or a non-IO signal
// left unassigned at compile time.
var ErrDeclaration = errors.New("declaration error")
