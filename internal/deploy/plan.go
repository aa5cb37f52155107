package deploy

import (
	"fmt"
	"time"

	"github.com/ekisa-team/modelserve/internal/env"
)

// Plan is the concrete placement configuration handed to the execution
// substrate.
type Plan struct {
	DeploymentID         string          `json:"deployment_id"`
	Name                 string          `json:"deployment_name"`
	Tier                 env.Environment `json:"stage"`
	Replicas             int             `json:"replicas"`
	Resources            Resources       `json:"resources"`
	Endpoint             string          `json:"endpoint"`
	HealthCheckTimeout   time.Duration   `json:"health_check_timeout,omitempty"`
	GracefulShutdownWait time.Duration   `json:"graceful_shutdown_wait,omitempty"`
}

// GeneratorSettings are the plan generation knobs. Zero values fall back to
// the documented defaults.
type GeneratorSettings struct {
	// BaseURL prefixes generated endpoints. Default http://localhost:8000.
	BaseURL string

	// ProdReplicas is the initial replica count floor for prod plans. Default 2.
	ProdReplicas int

	// HealthCheckTimeout for prod plans. Default 30s.
	HealthCheckTimeout time.Duration

	// GracefulShutdownWait for prod plans. Default 10s.
	GracefulShutdownWait time.Duration
}

func (s GeneratorSettings) withDefaults() GeneratorSettings {
	if s.BaseURL == "" {
		s.BaseURL = "http://localhost:8000"
	}
	if s.ProdReplicas == 0 {
		s.ProdReplicas = 2
	}
	if s.HealthCheckTimeout == 0 {
		s.HealthCheckTimeout = 30 * time.Second
	}
	if s.GracefulShutdownWait == 0 {
		s.GracefulShutdownWait = 10 * time.Second
	}

	return s
}

// Generator translates validated descriptors into plans.
type Generator struct {
	settings GeneratorSettings
}

// NewGenerator creates a plan generator.
func NewGenerator(settings GeneratorSettings) *Generator {
	return &Generator{settings: settings.withDefaults()}
}

// Generate emits the concrete plan for a validated descriptor and moves it to
// Active. The deployment ID is embedded into the generated name and endpoint.
func (g *Generator) Generate(d *Descriptor) (*Plan, error) {
	if err := d.activate(); err != nil {
		return nil, err
	}

	replicas := d.Scaling.MinReplicas
	if replicas < 1 {
		replicas = 1
	}
	if d.Tier == env.Prod && replicas < g.settings.ProdReplicas {
		replicas = g.settings.ProdReplicas
	}
	if replicas > d.Scaling.MaxReplicas {
		replicas = d.Scaling.MaxReplicas
	}

	name := fmt.Sprintf("%s_%s", d.Name, d.ID)
	plan := &Plan{
		DeploymentID: d.ID,
		Name:         name,
		Tier:         d.Tier,
		Replicas:     replicas,
		Resources:    d.Resources,
		Endpoint:     g.settings.BaseURL + "/" + name,
	}

	if d.Tier == env.Prod {
		plan.HealthCheckTimeout = g.settings.HealthCheckTimeout
		plan.GracefulShutdownWait = g.settings.GracefulShutdownWait
	}

	return plan, nil
}
