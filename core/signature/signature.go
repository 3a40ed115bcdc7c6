// Package signature extracts the ordered parameter names a definition declares.
//
// Two sources are supported. Parse reads signature text (Go or JavaScript
// style, e.g. "func(App *module.Module, db *sql.DB)" or "function(test){}").
// Of locates the Go source of a compiled function through the runtime and
// reads its parameter list with go/parser, which is preferred whenever the
// source is available.
//
// Names wrapped in a single pair of underscores ("_db_") are reported without
// them, so a parameter can be marked unused while still naming a dependency.
package signature

import (
	"regexp"
	"strings"
)

var (
	stripComments = regexp.MustCompile(`(?m)(//.*$)|(/\*[\s\S]*?\*/)`)
	funcKeyword   = regexp.MustCompile(`(?m)^\s*func(?:tion)?\b`)
	identifier    = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// Parse returns the parameter names of the first function declared in text.
//
// Comments are stripped before matching. The function keyword must start a
// line. Method receivers and generic type parameter lists are skipped. When
// no parameter list can be matched an empty slice is returned.
//
// Only the leading identifier of each parameter is kept, so Go-style typed
// parameters and grouped names ("a, b int") are understood. Parameters whose
// name cannot be determined, and default values, rest/variadic parameters and
// destructuring patterns, fail with *UnsupportedSignatureError.
func Parse(text string) ([]string, error) {
	src := stripComments.ReplaceAllString(text, "")

	loc := funcKeyword.FindStringIndex(src)
	if loc == nil {
		return []string{}, nil
	}

	list, found, err := paramList(src, loc[1])
	if err != nil {
		return nil, &UnsupportedSignatureError{Signature: text, Reason: err.Error()}
	}
	if !found {
		return []string{}, nil
	}

	names := make([]string, 0, strings.Count(list, ",")+1)
	for _, param := range splitTopLevel(list) {
		param = strings.TrimSpace(param)
		if param == "" {
			continue
		}
		if reason := unsupportedForm(param); reason != "" {
			return nil, &UnsupportedSignatureError{Signature: text, Param: param, Reason: reason}
		}

		name := strings.Fields(param)[0]
		if !identifier.MatchString(name) {
			return nil, &UnsupportedSignatureError{Signature: text, Param: param, Reason: "parameter has no name"}
		}
		names = append(names, trimMarker(name))
	}

	return names, nil
}

func unsupportedForm(param string) string {
	switch {
	case strings.Contains(param, "..."):
		return "rest or variadic parameter"
	case strings.HasPrefix(param, "{"), strings.HasPrefix(param, "["):
		return "destructured parameter"
	case strings.Contains(param, "="):
		return "default value"
	}
	return ""
}

// trimMarker strips one matching pair of leading/trailing underscores.
func trimMarker(name string) string {
	if len(name) > 2 && name[0] == '_' && name[len(name)-1] == '_' {
		return name[1 : len(name)-1]
	}
	return name
}

type scanError string

func (e scanError) Error() string { return string(e) }

// paramList returns the text between the parentheses of the parameter list
// that follows the function keyword ending at pos.
func paramList(src string, pos int) (string, bool, error) {
	pos = skipSpace(src, pos)
	if pos >= len(src) {
		return "", false, nil
	}

	switch {
	case src[pos] == '(':
		end, err := closing(src, pos)
		if err != nil {
			return "", false, err
		}
		// "func (r *T) Name(...)": the first group was a receiver.
		if next, ok := namedList(src, end+1); ok {
			return paramListAt(src, next)
		}
		return src[pos+1 : end], true, nil

	case isIdentStart(src[pos]):
		next, ok := namedList(src, pos)
		if !ok {
			return "", false, nil
		}
		return paramListAt(src, next)
	}

	return "", false, nil
}

func paramListAt(src string, open int) (string, bool, error) {
	end, err := closing(src, open)
	if err != nil {
		return "", false, err
	}
	return src[open+1 : end], true, nil
}

// namedList matches `name [typeparams] (` starting at pos and returns the
// index of the opening parenthesis.
func namedList(src string, pos int) (int, bool) {
	pos = skipSpace(src, pos)
	start := pos
	for pos < len(src) && isIdentPart(src[pos]) {
		pos++
	}
	if pos == start || !isIdentStart(src[start]) {
		return 0, false
	}
	// A func result type, not a method name.
	if src[start:pos] == "func" {
		return 0, false
	}

	pos = skipSpace(src, pos)
	if pos < len(src) && src[pos] == '[' {
		end, err := closing(src, pos)
		if err != nil {
			return 0, false
		}
		pos = skipSpace(src, end+1)
	}

	if pos < len(src) && src[pos] == '(' {
		return pos, true
	}
	return 0, false
}

// closing returns the index of the bracket that balances src[open].
func closing(src string, open int) (int, error) {
	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, scanError("unterminated parameter list")
}

// splitTopLevel splits on commas that are not nested inside brackets.
func splitTopLevel(list string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, list[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, list[start:])
}

func skipSpace(src string, pos int) int {
	for pos < len(src) {
		switch src[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
