// Package deploy translates declarative deployment descriptors into concrete
// placement plans and reconciles desired against observed replica counts.
package deploy

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ekisa-team/modelserve/internal/env"
)

// State is a deployment lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateValidated State = "validated"
	StateRejected  State = "rejected"
	StateActive    State = "active"
	StateRetired   State = "retired"
)

// Resources describes the per-replica resource request.
type Resources struct {
	CPU      float64 `json:"cpu"`
	MemoryMB int64   `json:"memory_mb"`
	GPU      float64 `json:"gpu"`
}

// Scaling bounds the replica count and sets the utilization the autoscaler
// steers toward.
type Scaling struct {
	MinReplicas       int     `json:"min_replicas"`
	MaxReplicas       int     `json:"max_replicas"`
	TargetUtilization float64 `json:"target_utilization"`
}

// Descriptor declares a deployment. The ID is generated once at creation and
// never changes; a new rollout gets a new descriptor.
type Descriptor struct {
	ID             string          `json:"deployment_id"`
	Name           string          `json:"name"`
	Tier           env.Environment `json:"tier"`
	Resources      Resources       `json:"resources"`
	Scaling        Scaling         `json:"scaling"`
	Image          string          `json:"image,omitempty"`
	TestGatePassed bool            `json:"test_gate_passed"`

	mu    sync.Mutex
	state State
}

// DescriptorOption customizes a descriptor at creation time.
type DescriptorOption func(*Descriptor)

// WithImage sets the image spec (required for prod).
func WithImage(image string) DescriptorOption {
	return func(d *Descriptor) { d.Image = image }
}

// WithTestGatePassed records the outcome of the test gate.
func WithTestGatePassed(passed bool) DescriptorOption {
	return func(d *Descriptor) { d.TestGatePassed = passed }
}

// NewDescriptor creates a Pending descriptor with a generated unique ID.
func NewDescriptor(name string, tier env.Environment, res Resources, sc Scaling, opts ...DescriptorOption) *Descriptor {
	d := &Descriptor{
		ID:        uuid.NewString()[:8],
		Name:      name,
		Tier:      tier,
		Resources: res,
		Scaling:   sc,
		state:     StatePending,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// State returns the current lifecycle state.
func (d *Descriptor) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

// Validate checks resource and scaling bounds and moves the descriptor from
// Pending to Validated. A prod descriptor whose test gate is unset moves to
// Rejected instead and can never become Active. Validation failures leave the
// descriptor Pending; they are reported, not retried.
func (d *Descriptor) Validate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StatePending {
		return fmt.Errorf("deploy: validate from %s: %w", d.state, ErrInvalidTransition)
	}

	if err := d.check(); err != nil {
		return err
	}

	d.state = StateValidated

	if d.Tier == env.Prod && !d.TestGatePassed {
		d.state = StateRejected
		return &GateError{DeploymentID: d.ID}
	}

	return nil
}

func (d *Descriptor) check() error {
	switch {
	case d.Name == "":
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	case !env.Valid(d.Tier):
		return &ValidationError{Field: "tier", Reason: fmt.Sprintf("unrecognized tier %q", d.Tier)}
	case d.Resources.CPU < 0 || d.Resources.MemoryMB < 0 || d.Resources.GPU < 0:
		return &ValidationError{Field: "resources", Reason: "bounds must be non-negative"}
	case d.Scaling.MinReplicas < 0:
		return &ValidationError{Field: "scaling.min_replicas", Reason: "must be non-negative"}
	case d.Scaling.MaxReplicas < 1:
		return &ValidationError{Field: "scaling.max_replicas", Reason: "must be at least 1"}
	case d.Scaling.MinReplicas > d.Scaling.MaxReplicas:
		return &ValidationError{Field: "scaling", Reason: "min_replicas must not exceed max_replicas"}
	case d.Scaling.TargetUtilization <= 0 || d.Scaling.TargetUtilization > 1:
		return &ValidationError{Field: "scaling.target_utilization", Reason: "must be in (0, 1]"}
	case d.Tier == env.Prod && d.Image == "":
		return &ValidationError{Field: "image", Reason: "prod deployments require an image"}
	}

	return nil
}

// activate moves the descriptor from Validated to Active.
func (d *Descriptor) activate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateValidated {
		return fmt.Errorf("deploy: activate from %s: %w", d.state, ErrInvalidTransition)
	}

	d.state = StateActive
	return nil
}

// Retire moves the descriptor to Retired. Retiring twice is a no-op.
func (d *Descriptor) Retire() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateRetired:
		return nil
	case StateActive, StateValidated:
		d.state = StateRetired
		return nil
	default:
		return fmt.Errorf("deploy: retire from %s: %w", d.state, ErrInvalidTransition)
	}
}
