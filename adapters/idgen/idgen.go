// Package idgen provides module instance ID generators.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/artpar/ocky/ports"
)

// UUID generates random UUID v4 identifiers.
type UUID struct{}

// New returns a new UUID v4 string.
func (UUID) New() string {
	return uuid.NewString()
}

// Sequential generates prefix1, prefix2, ... Useful where snapshots must be
// stable, e.g. golden output and tests.
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New returns the next ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Reset restarts the sequence.
func (s *Sequential) Reset() {
	s.counter.Store(0)
}

// Parse selects a generator by name: "uuid" (default) or "sequential".
func Parse(kind, prefix string) ports.IDGenerator {
	if kind == "sequential" {
		return NewSequential(prefix)
	}
	return UUID{}
}

var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = (*Sequential)(nil)
)
