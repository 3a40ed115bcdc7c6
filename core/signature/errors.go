package signature

import (
	"errors"
	"fmt"
)

// ErrUnsupported matches every *UnsupportedSignatureError via errors.Is.
var ErrUnsupported = errors.New("unsupported signature")

// UnsupportedSignatureError reports a parameter form that cannot be mapped to
// a dependency name: default values, rest/variadic parameters, destructuring,
// unnamed parameters, or a function whose source cannot be located.
type UnsupportedSignatureError struct {
	Signature string
	Param     string
	Reason    string
}

func (e *UnsupportedSignatureError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("unsupported signature %q: parameter %q: %s", e.Signature, e.Param, e.Reason)
	}
	return fmt.Sprintf("unsupported signature %q: %s", e.Signature, e.Reason)
}

// Is reports whether target is ErrUnsupported.
func (e *UnsupportedSignatureError) Is(target error) bool {
	return target == ErrUnsupported
}
