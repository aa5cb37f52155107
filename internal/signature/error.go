package signature

import (
	"errors"
	"fmt"
	"strings"
)

// Error definitions for the signature package.
var (
	// ErrIntrospection indicates that a callable's parameter names cannot be
	// determined statically.
	ErrIntrospection = errors.New("signature cannot be statically determined")

	// ErrBind indicates that a provided parameter value could not be bound to
	// the callable's declared parameter type.
	ErrBind = errors.New("cannot bind parameter")
)

// MismatchError reports parameters that violate an inspected signature.
type MismatchError struct {
	Expected string
	Missing  []string
	Unknown  []string
}

func (e *MismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required parameters: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, fmt.Sprintf("unknown parameters: %s", strings.Join(e.Unknown, ", ")))
	}

	return fmt.Sprintf("signature mismatch: %s (expected %s)", strings.Join(parts, "; "), e.Expected)
}
