package config

import (
	"fmt"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/ekisa-team/modelserve/internal/function"
)

// Config holds the main configuration for the application.
type Config struct {
	Version    string             `json:"version"              yaml:"version"`
	Models     []ModelEntry       `json:"models"               yaml:"models"`
	Settings   Settings           `json:"settings,omitempty"   yaml:"settings,omitempty"`
	Deployment DeploymentSettings `json:"deployment,omitempty" yaml:"deployment,omitempty"`
}

// ModelEntry declares a single model to register at load time.
type ModelEntry struct {
	Name       string         `json:"name"                  yaml:"name"`
	ClassPath  string         `json:"class_path"            yaml:"class_path"`
	InitParams map[string]any `json:"init_params,omitempty" yaml:"init_params,omitempty"`
	Functions  FunctionsSpec  `json:"functions,omitempty"   yaml:"functions,omitempty"`
}

// Settings holds global dispatch settings.
type Settings struct {
	DefaultModel string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	Timeout      Duration `json:"timeout,omitempty"       yaml:"timeout,omitempty"`
}

// DeploymentSettings holds the deployment plan and autoscaling knobs.
// Zero values fall back to the documented defaults of the deploy package.
type DeploymentSettings struct {
	BaseURL          string   `json:"base_url,omitempty"          yaml:"base_url,omitempty"`
	ProdReplicas     int      `json:"prod_replicas,omitempty"     yaml:"prod_replicas,omitempty"`
	TickInterval     Duration `json:"tick_interval,omitempty"     yaml:"tick_interval,omitempty"`
	HysteresisBand   float64  `json:"hysteresis_band,omitempty"   yaml:"hysteresis_band,omitempty"`
	StepFraction     float64  `json:"step_fraction,omitempty"     yaml:"step_fraction,omitempty"`
	InactivityWindow Duration `json:"inactivity_window,omitempty" yaml:"inactivity_window,omitempty"`
}

// FunctionsSpec is the declarative form of a function mapping: either a list
// of method names, a mapping of API names to method names, or absent for
// auto-discovery.
type FunctionsSpec struct {
	names   []string
	renames map[string]string
}

// UnmarshalYAML accepts both the list and the mapping form.
func (f *FunctionsSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		return value.Decode(&f.names)
	case yaml.MappingNode:
		return value.Decode(&f.renames)
	default:
		return fmt.Errorf("config: functions must be a list of names or a name mapping")
	}
}

// Spec translates the declared form into a function mapping spec.
func (f FunctionsSpec) Spec() function.Spec {
	switch {
	case len(f.names) > 0:
		return function.Names(f.names...)
	case len(f.renames) > 0:
		return function.Rename(f.renames)
	default:
		return function.AutoDiscover()
	}
}

// Duration is a time.Duration that unmarshals from a string like "30s".
type Duration time.Duration

// UnmarshalYAML parses the duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalJSON renders the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", time.Duration(d))), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Or returns the value, or the fallback when unset.
func (d Duration) Or(fallback time.Duration) time.Duration {
	if d == 0 {
		return fallback
	}

	return time.Duration(d)
}
