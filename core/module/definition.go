package module

import (
	"fmt"
	"reflect"

	"github.com/artpar/ocky/core/signature"
)

// Definition is caller code run against a module.
type Definition struct {
	// Fn is the function to call. A nil Fn is ignored.
	Fn any

	// Signature, when set, is parsed for parameter names instead of
	// locating Fn's source. Use it for functions built at runtime.
	Signature string

	// Args are the literal extra arguments of positional injection.
	Args []any
}

// Define wraps fn for by-name injection. Parameter names are read from
// fn's source.
func Define(fn any) Definition {
	return Definition{Fn: fn}
}

// DefineSignature wraps fn with an explicit signature text, e.g.
// "func(App, logger)".
func DefineSignature(sig string, fn any) Definition {
	return Definition{Fn: fn, Signature: sig}
}

// DefinePositional wraps fn for positional injection: fn receives the
// module followed by args.
//
// Deprecated: positional injection ignores parameter names. Use Define.
func DefinePositional(fn any, args ...any) Definition {
	return Definition{Fn: fn, Args: args}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// AddDefinition builds def's arguments and calls it. Every argument is
// resolved before the call, so a resolution failure never runs def.
// A trailing error result of def is returned.
func (m *Module) AddDefinition(def Definition) error {
	if def.Fn == nil {
		return nil
	}

	fn := reflect.ValueOf(def.Fn)
	if fn.Kind() != reflect.Func {
		return fmt.Errorf("%w: %T", ErrNotCallable, def.Fn)
	}

	start := m.env.clock.Now()

	var args []reflect.Value
	var err error
	switch m.env.mode {
	case Positional:
		args, err = m.positionalArgs(def, fn.Type())
	default:
		args, err = m.namedArgs(def, fn.Type())
	}
	if err == nil {
		err = call(fn, args)
	}

	elapsed := m.env.clock.Now().Sub(start)
	m.env.observer.DefinitionRun(m.env.mode.String(), elapsed, err)

	if err != nil {
		m.env.logger.Debug().Err(err).Str("module", m.Path()).Msg("definition failed")
		return fmt.Errorf("define %s: %w", m.Path(), err)
	}

	m.env.logger.Debug().
		Str("module", m.Path()).
		Int("args", len(args)).
		Dur("elapsed", elapsed).
		Msg("definition ran")
	return nil
}

func (m *Module) namedArgs(def Definition, ft reflect.Type) ([]reflect.Value, error) {
	if len(def.Args) > 0 {
		return nil, ErrPositionalArgs
	}

	var names []string
	var err error
	if def.Signature != "" {
		names, err = signature.Parse(def.Signature)
	} else {
		names, err = m.env.introspect(def.Fn)
	}
	if err != nil {
		return nil, err
	}

	if ft.IsVariadic() {
		return nil, &signature.UnsupportedSignatureError{
			Signature: ft.String(),
			Reason:    "rest or variadic parameter",
		}
	}
	if len(names) != ft.NumIn() {
		return nil, fmt.Errorf("signature declares %d parameters but %s takes %d", len(names), ft, ft.NumIn())
	}

	args := make([]reflect.Value, len(names))
	for i, name := range names {
		var value any
		if i == 0 && name == m.name {
			value = m
		} else {
			value, err = m.env.registry.Resolve(name)
			if err != nil {
				return nil, err
			}
		}

		args[i], err = coerce(value, ft.In(i), name, i)
		if err != nil {
			return nil, err
		}
	}
	return args, nil
}

func (m *Module) positionalArgs(def Definition, ft reflect.Type) ([]reflect.Value, error) {
	m.env.deprecated.Do(func() {
		m.env.logger.Warn().Msg("positional injection is deprecated, switch to by-name injection")
	})

	if ft.NumIn() == 0 {
		if len(def.Args) > 0 {
			return nil, fmt.Errorf("%s takes no parameters but %d arguments were given", ft, len(def.Args))
		}
		return nil, nil
	}

	values := append([]any{m}, def.Args...)
	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
		if len(values) < fixed {
			return nil, fmt.Errorf("%s takes at least %d parameters, got %d", ft, fixed, len(values))
		}
	} else if len(values) != fixed {
		return nil, fmt.Errorf("%s takes %d parameters, got %d", ft, fixed, len(values))
	}

	args := make([]reflect.Value, len(values))
	for i, value := range values {
		want := ft.In(min(i, ft.NumIn()-1))
		if ft.IsVariadic() && i >= fixed {
			want = want.Elem()
		}

		var err error
		args[i], err = coerce(value, want, fmt.Sprintf("arg%d", i), i)
		if err != nil {
			return nil, err
		}
	}
	return args, nil
}

// coerce turns value into an argument of type want. Values are used as-is
// when assignable and converted between types of the same kind or between
// numeric kinds. nil becomes the zero value.
func coerce(value any, want reflect.Type, name string, index int) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(want), nil
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if v.Type().ConvertibleTo(want) && (v.Kind() == want.Kind() || numeric(v.Kind()) && numeric(want.Kind())) {
		return v.Convert(want), nil
	}

	return reflect.Value{}, &InjectionError{Param: name, Index: index, Want: want, Got: v.Type()}
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func call(fn reflect.Value, args []reflect.Value) error {
	out := fn.Call(args)

	ft := fn.Type()
	if n := ft.NumOut(); n > 0 && ft.Out(n-1) == errorType {
		if err, _ := out[n-1].Interface().(error); err != nil {
			return err
		}
	}
	return nil
}
