// Package ambient provides namespaces a host can plug into a dependency
// registry as its global tier: fixed maps, the process environment,
// expression-derived values, and ordered chains of those.
package ambient

import (
	"os"
	"strings"

	"github.com/artpar/ocky/core/dependency"
)

// Map is a fixed namespace.
type Map map[string]any

// Lookup returns the value bound to name.
func (m Map) Lookup(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Env exposes process environment variables as string values.
// A name is looked up as Prefix+name first and then upper-cased.
type Env struct {
	Prefix string
}

// Lookup returns the environment variable for name.
func (e Env) Lookup(name string) (any, bool) {
	key := e.Prefix + name
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	if upper := strings.ToUpper(key); upper != key {
		if v, ok := os.LookupEnv(upper); ok {
			return v, true
		}
	}
	return nil, false
}

// Chain consults each namespace in order and returns the first hit.
type Chain []dependency.Globals

// Lookup returns the first binding for name.
func (c Chain) Lookup(name string) (any, bool) {
	for _, g := range c {
		if g == nil {
			continue
		}
		if v, ok := g.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

var (
	_ dependency.Globals = Map(nil)
	_ dependency.Globals = Env{}
	_ dependency.Globals = Chain(nil)
)
