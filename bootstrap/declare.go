package bootstrap

import (
	"reflect"
	"strings"

	"github.com/artpar/ocky/config"
	"github.com/artpar/ocky/core/module"
)

var (
	moduleType = reflect.TypeOf((*module.Module)(nil))
	anyType    = reflect.TypeOf((*any)(nil)).Elem()
)

// PropArgs is the property a positional manifest module stores its args
// under.
const PropArgs = "args"

// declare turns a manifest module into a definition. By name, the
// definition takes the module under its own name followed by one parameter
// per required dependency, and stores each resolved value as a property of
// the same name. Positionally it stores the literal args.
func declare(mc config.ModuleConfig, mode module.InjectionMode) module.Definition {
	if mode == module.Positional {
		fn := func(m *module.Module, args ...any) {
			setProps(m, mc.Props)
			if len(args) > 0 {
				m.Set(PropArgs, args)
			}
		}
		return module.DefinePositional(fn, mc.Args...)
	}

	leaf := mc.Path[strings.LastIndex(mc.Path, ".")+1:]
	requires := append([]string(nil), mc.Requires...)

	in := make([]reflect.Type, 1+len(requires))
	in[0] = moduleType
	for i := range requires {
		in[i+1] = anyType
	}

	fn := reflect.MakeFunc(reflect.FuncOf(in, nil, false), func(args []reflect.Value) []reflect.Value {
		m := args[0].Interface().(*module.Module)
		setProps(m, mc.Props)
		for i, name := range requires {
			m.Set(name, args[i+1].Interface())
		}
		return nil
	})

	sig := "func(" + strings.Join(append([]string{leaf}, requires...), ", ") + ")"
	return module.DefineSignature(sig, fn.Interface())
}

func setProps(m *module.Module, props map[string]any) {
	for k, v := range props {
		m.Set(k, v)
	}
}
