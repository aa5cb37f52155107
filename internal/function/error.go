package function

import (
	"errors"
	"fmt"
)

// Error definitions for the function package.
var (
	// ErrUnresolved indicates that a method name does not resolve to a public
	// callable on the instance.
	ErrUnresolved = errors.New("method does not resolve to a public callable")
)

// MappingError reports a registration spec entry that could not be mapped.
type MappingError struct {
	Name string
	Err  error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("function: cannot map %q: %v", e.Name, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}
