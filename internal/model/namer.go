package model

import (
	"fmt"

	"github.com/pkg/errors"
)

// Namer hands out signal names unique within one compilation session. It is
// owned by a model and passed to every component that needs fresh names, so
// independent models never contend on shared counters.
type Namer struct {
	used     map[string]bool
	counters map[string]int
}

// NewNamer returns an empty namer.
func NewNamer() *Namer {
	return &Namer{
		used:     make(map[string]bool),
		counters: make(map[string]int),
	}
}

// Add claims a user-chosen name.
func (n *Namer) Add(name string) error {
	if n.used[name] {
		return errors.Wrapf(ErrDeclaration, "the name %s is already taken", name)
	}
	n.used[name] = true
	return nil
}

// Tmp claims and returns a fresh name with the given prefix.
func (n *Namer) Tmp(prefix string) string {
	for {
		name := fmt.Sprintf("%s%d", prefix, n.counters[prefix])
		n.counters[prefix]++
		if !n.used[name] {
			n.used[name] = true
			return name
		}
	}
}
