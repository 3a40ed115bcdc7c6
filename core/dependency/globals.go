package dependency

// Globals is the ambient namespace consulted when a name is not registered.
// The host decides what it contains; see package ambient for implementations.
type Globals interface {
	Lookup(name string) (any, bool)
}

// GlobalsFunc adapts a function to Globals.
type GlobalsFunc func(name string) (any, bool)

// Lookup calls f(name).
func (f GlobalsFunc) Lookup(name string) (any, bool) {
	return f(name)
}

type noGlobals struct{}

func (noGlobals) Lookup(string) (any, bool) { return nil, false }

// Observer receives registry events. adapters/metrics implements it.
type Observer interface {
	DependencyRegistered(name string)
	DependencyResolved(name, source string)
}

type nopObserver struct{}

func (nopObserver) DependencyRegistered(string)       {}
func (nopObserver) DependencyResolved(string, string) {}
