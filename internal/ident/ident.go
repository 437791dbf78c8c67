// Package ident produces the opaque identifiers used for nodes, tabs and projects.
package ident

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator returns a fresh identifier on every call.
type Generator interface {
	NewID() string
}

// GeneratorFunc adapts a function into Generator.
type GeneratorFunc func() string

func (f GeneratorFunc) NewID() string {
	return f()
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	return uuid.NewString()
}

// UUID is the production generator (random version 4 UUIDs).
var UUID Generator = uuidGenerator{}

// Sequence yields prefix-1, prefix-2, ... and is safe for concurrent use.
// Tests use it to get deterministic ids.
type Sequence struct {
	prefix string
	next   atomic.Uint64
}

// NewSequence creates a Sequence starting at 1.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.next.Add(1))
}

// OrDefault returns gen, or UUID when gen is nil.
func OrDefault(gen Generator) Generator {
	if gen == nil {
		return UUID
	}
	return gen
}
