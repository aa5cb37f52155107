package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error definitions for the model package.
var (
	ErrNotFound        = errors.New("model not found in registry")
	ErrFactoryNotFound = errors.New("no factory registered for class path")
	ErrEmptyName       = errors.New("model name must not be empty")
)

// NotFoundError reports a missing registry entry along with the names that
// are currently registered, so callers can self-correct.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model %q not found in registry (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
