package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Controller owns the set of live deployments: it validates descriptors,
// generates plans, and runs one autoscaler per active deployment. Control
// loops live on the controller's own lifetime, not the caller's, and stop on
// Shutdown.
type Controller struct {
	generator *Generator
	cfg       AutoscalerConfig
	apply     ApplyFunc

	loopCtx  context.Context
	loopStop context.CancelFunc

	mu     sync.RWMutex
	active map[string]*deployment
}

type deployment struct {
	desc   *Descriptor
	plan   *Plan
	scaler *Autoscaler
}

// Status is the read-only view of a live deployment.
type Status struct {
	Descriptor *Descriptor `json:"descriptor"`
	Plan       *Plan       `json:"plan"`
	State      State       `json:"state"`
	Replicas   int         `json:"replicas"`
}

// NewController creates a deployment controller. The apply function is the
// boundary to the execution substrate; scaling decisions are handed to it.
func NewController(generator *Generator, cfg AutoscalerConfig, apply ApplyFunc) *Controller {
	ctx, stop := context.WithCancel(context.Background())

	return &Controller{
		generator: generator,
		cfg:       cfg.withDefaults(),
		apply:     apply,
		loopCtx:   ctx,
		loopStop:  stop,
		active:    make(map[string]*deployment),
	}
}

// Deploy validates the descriptor, generates its plan, and starts the scaling
// control loop. Validation and gate failures are surfaced immediately. The
// caller's context covers only this call; the control loop runs until the
// deployment retires or the controller shuts down.
func (c *Controller) Deploy(ctx context.Context, d *Descriptor) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	plan, err := c.generator.Generate(d)
	if err != nil {
		return nil, err
	}

	scaler := NewAutoscaler(d, plan.Replicas, c.cfg, c.apply,
		WithOnRetire(func(desc *Descriptor) { c.remove(desc.ID) }),
		WithAlert(func(desc *Descriptor, err error) {
			slog.Error("Sustained scaling failures", "deployment_id", desc.ID, "error", err)
		}),
	)
	scaler.Start(c.loopCtx)

	c.mu.Lock()
	c.active[d.ID] = &deployment{desc: d, plan: plan, scaler: scaler}
	c.mu.Unlock()

	slog.Info("Deployment active",
		"deployment_id", d.ID, "name", plan.Name, "tier", d.Tier, "replicas", plan.Replicas)

	return plan, nil
}

// Observe feeds a load observation from the substrate into the deployment's
// control loop.
func (c *Controller) Observe(id string, o Observation) error {
	c.mu.RLock()
	dep, ok := c.active[id]
	c.mu.RUnlock()

	if !ok {
		return fmt.Errorf("deploy: %q: %w", id, ErrDeploymentNotFound)
	}

	dep.scaler.Observe(o)
	return nil
}

// Get returns the status of a live deployment.
func (c *Controller) Get(id string) (*Status, error) {
	c.mu.RLock()
	dep, ok := c.active[id]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("deploy: %q: %w", id, ErrDeploymentNotFound)
	}

	return &Status{
		Descriptor: dep.desc,
		Plan:       dep.plan,
		State:      dep.desc.State(),
		Replicas:   dep.scaler.Replicas(),
	}, nil
}

// List returns the statuses of all live deployments.
func (c *Controller) List() []*Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Status, 0, len(c.active))
	for _, dep := range c.active {
		out = append(out, &Status{
			Descriptor: dep.desc,
			Plan:       dep.plan,
			State:      dep.desc.State(),
			Replicas:   dep.scaler.Replicas(),
		})
	}

	return out
}

// Teardown retires a deployment and stops its control loop.
func (c *Controller) Teardown(id string) error {
	c.mu.Lock()
	dep, ok := c.active[id]
	delete(c.active, id)
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("deploy: %q: %w", id, ErrDeploymentNotFound)
	}

	dep.scaler.Stop()
	if err := dep.desc.Retire(); err != nil {
		return err
	}

	slog.Info("Deployment retired", "deployment_id", id)
	return nil
}

// Shutdown stops every control loop. Used at process teardown.
func (c *Controller) Shutdown() {
	c.loopStop()

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, dep := range c.active {
		dep.scaler.Stop()
		_ = dep.desc.Retire()
		delete(c.active, id)
	}
}

func (c *Controller) remove(id string) {
	c.mu.Lock()
	dep, ok := c.active[id]
	delete(c.active, id)
	c.mu.Unlock()

	if ok {
		dep.scaler.Stop()
	}
}
