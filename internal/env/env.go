package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/modelserve/internal/envvar"
)

// Environment identifies the tier the process (or a deployment) runs in.
type Environment string

const (
	// Dev is the development tier.
	Dev Environment = "dev"

	// Staging is the staging tier.
	Staging Environment = "staging"

	// Prod is the production tier.
	Prod Environment = "prod"
)

// FromEnv resolves the environment tier from MODELSERVE_ENV.
func FromEnv() Environment {
	return Parse(os.Getenv(envvar.ModelserveEnv))
}

// Parse normalizes common aliases onto the canonical tiers.
// Unknown or empty values fall back to Dev.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production":
		return Prod
	case "staging", "stage":
		return Staging
	default:
		return Dev
	}
}

// Valid reports whether e is one of the recognized tiers.
func Valid(e Environment) bool {
	switch e {
	case Dev, Staging, Prod:
		return true
	}

	return false
}
