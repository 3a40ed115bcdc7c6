package module

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrPositionalArgs is returned when a definition carries literal
	// arguments but the tree injects by name.
	ErrPositionalArgs = errors.New("positional arguments require positional injection mode")

	// ErrNotCallable is returned when a definition's Fn is not a function.
	ErrNotCallable = errors.New("definition is not a function")
)

// ConfigurationError is returned when a module cannot be constructed under
// the given name.
type ConfigurationError struct {
	Name   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %q", e.Reason, e.Name)
}

// InjectionError is returned when a resolved dependency cannot be passed to
// the definition parameter it was resolved for.
type InjectionError struct {
	Param string
	Index int
	Want  reflect.Type
	Got   reflect.Type
}

func (e *InjectionError) Error() string {
	got := "nil"
	if e.Got != nil {
		got = e.Got.String()
	}
	return fmt.Sprintf("parameter %d (%s): cannot use %s as %s", e.Index, e.Param, got, e.Want)
}
