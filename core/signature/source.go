package signature

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"runtime"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Introspector reads parameter names from the Go source of compiled
// functions. Parsed files and per-function results are cached.
type Introspector struct {
	files   *gocache.Cache
	results *gocache.Cache
}

type parsedFile struct {
	fset *token.FileSet
	file *ast.File
}

// NewIntrospector creates an Introspector whose caches expire after ttl.
// A ttl of zero or less keeps entries for the life of the process.
func NewIntrospector(ttl time.Duration) *Introspector {
	cleanup := 2 * ttl
	if ttl <= 0 {
		ttl, cleanup = gocache.NoExpiration, 0
	}
	return &Introspector{
		files:   gocache.New(ttl, cleanup),
		results: gocache.New(ttl, cleanup),
	}
}

var std = NewIntrospector(0)

// Of returns the parameter names of fn using the package Introspector.
func Of(fn any) ([]string, error) {
	return std.Of(fn)
}

// Of returns the parameter names of fn as declared in its Go source.
//
// The source file is found through runtime function metadata, so Of fails
// with *UnsupportedSignatureError when the binary was built without access to
// its sources, for method values (which compile to generated wrappers), and
// for unnamed or variadic parameters.
func (in *Introspector) Of(fn any) ([]string, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, &UnsupportedSignatureError{Signature: fmt.Sprintf("%T", fn), Reason: "not a function"}
	}

	pc := v.Pointer()
	key := strconv.FormatUint(uint64(pc), 16)
	if cached, ok := in.results.Get(key); ok {
		return append([]string(nil), cached.([]string)...), nil
	}

	rf := runtime.FuncForPC(pc)
	if rf == nil {
		return nil, &UnsupportedSignatureError{Signature: v.Type().String(), Reason: "no runtime metadata"}
	}
	file, line := rf.FileLine(rf.Entry())

	parsed, err := in.parse(file)
	if err != nil {
		return nil, &UnsupportedSignatureError{Signature: rf.Name(), Reason: "source unavailable: " + err.Error()}
	}

	ftype := parsed.funcTypeAt(line, v.Type().NumIn())
	if ftype == nil {
		return nil, &UnsupportedSignatureError{
			Signature: rf.Name(),
			Reason:    fmt.Sprintf("no matching function declared at %s:%d", file, line),
		}
	}

	names, err := fieldNames(rf.Name(), ftype.Params)
	if err != nil {
		return nil, err
	}

	in.results.Set(key, names, gocache.DefaultExpiration)
	return append([]string(nil), names...), nil
}

func (in *Introspector) parse(path string) (*parsedFile, error) {
	if cached, ok := in.files.Get(path); ok {
		return cached.(*parsedFile), nil
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	parsed := &parsedFile{fset: fset, file: file}
	in.files.Set(path, parsed, gocache.DefaultExpiration)
	return parsed, nil
}

// funcTypeAt finds the function declaration or literal whose func keyword is
// on line and whose parameter count equals numIn.
func (p *parsedFile) funcTypeAt(line, numIn int) *ast.FuncType {
	var found *ast.FuncType
	ast.Inspect(p.file, func(n ast.Node) bool {
		if found != nil {
			return false
		}

		var ft *ast.FuncType
		switch x := n.(type) {
		case *ast.FuncDecl:
			ft = x.Type
		case *ast.FuncLit:
			ft = x.Type
		default:
			return true
		}

		if ft.Func.IsValid() && p.fset.Position(ft.Func).Line == line && ft.Params.NumFields() == numIn {
			found = ft
			return false
		}
		return true
	})
	return found
}

func fieldNames(sig string, params *ast.FieldList) ([]string, error) {
	names := make([]string, 0, params.NumFields())
	if params == nil {
		return names, nil
	}

	for _, field := range params.List {
		if _, ok := field.Type.(*ast.Ellipsis); ok {
			param := ""
			if len(field.Names) > 0 {
				param = field.Names[0].Name
			}
			return nil, &UnsupportedSignatureError{Signature: sig, Param: param, Reason: "rest or variadic parameter"}
		}
		if len(field.Names) == 0 {
			return nil, &UnsupportedSignatureError{Signature: sig, Reason: "unnamed parameter"}
		}
		for _, ident := range field.Names {
			names = append(names, trimMarker(ident.Name))
		}
	}

	return names, nil
}
