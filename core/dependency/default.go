package dependency

var std = New()

// Default returns the process-wide registry used by modules that were not
// given one explicitly.
func Default() *Registry { return std }

// Register binds name on the default registry.
func Register(name string, value any) { std.Register(name, value) }

// RegisterAll binds every entry of values on the default registry.
func RegisterAll(values map[string]any) { std.RegisterAll(values) }

// Resolve resolves name against the default registry.
func Resolve(name string) (any, error) { return std.Resolve(name) }

// Reset clears the default registry.
func Reset() { std.Reset() }
