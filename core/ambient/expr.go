package ambient

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
)

// exprOptions are the functions available to every global expression.
var exprOptions = []expr.Option{
	expr.Env(map[string]any{}),
	expr.Function("env", func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("env requires 1 argument")
		}
		return os.Getenv(fmt.Sprint(params[0])), nil
	}),
	expr.Function("lower", func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("lower requires 1 argument")
		}
		return strings.ToLower(fmt.Sprint(params[0])), nil
	}),
	expr.Function("upper", func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("upper requires 1 argument")
		}
		return strings.ToUpper(fmt.Sprint(params[0])), nil
	}),
	expr.Function("default", func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("default requires 2 arguments (value, defaultValue)")
		}
		if params[0] == nil || params[0] == "" {
			return params[1], nil
		}
		return params[0], nil
	}),
}

// Evaluate compiles and runs each expression and returns the results keyed
// by name. Expressions are evaluated in name order; the first failure aborts.
//
//	globals, err := ambient.Evaluate(map[string]string{
//		"answer":  "6 * 7",
//		"dataDir": `default(env("DATA_DIR"), "/var/lib/app")`,
//	})
func Evaluate(exprs map[string]string) (Map, error) {
	names := make([]string, 0, len(exprs))
	for name := range exprs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Map, len(exprs))
	for _, name := range names {
		program, err := expr.Compile(exprs[name], exprOptions...)
		if err != nil {
			return nil, fmt.Errorf("compile global %q: %w", name, err)
		}

		value, err := expr.Run(program, map[string]any{})
		if err != nil {
			return nil, fmt.Errorf("evaluate global %q: %w", name, err)
		}
		out[name] = value
	}

	return out, nil
}
