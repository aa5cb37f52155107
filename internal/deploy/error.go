package deploy

import (
	"errors"
	"fmt"
)

// Error definitions for the deploy package.
var (
	// ErrGateRejected indicates a prod descriptor whose test gate is unset.
	ErrGateRejected = errors.New("prod deployment requires a passing test gate")

	// ErrInvalidTransition indicates an operation that is not legal in the
	// descriptor's current state.
	ErrInvalidTransition = errors.New("invalid deployment state transition")

	// ErrDeploymentNotFound indicates an unknown deployment ID.
	ErrDeploymentNotFound = errors.New("deployment not found")
)

// ValidationError reports a deployment descriptor field that failed
// validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("deploy: invalid %s: %s", e.Field, e.Reason)
}

// GateError reports a prod deployment rejected by the test gate.
type GateError struct {
	DeploymentID string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("deploy: deployment %s rejected: %v", e.DeploymentID, ErrGateRejected)
}

func (e *GateError) Unwrap() error {
	return ErrGateRejected
}
