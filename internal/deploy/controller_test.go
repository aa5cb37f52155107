package deploy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/modelserve/internal/env"
)

func testController(t *testing.T) *Controller {
	t.Helper()

	c := NewController(NewGenerator(GeneratorSettings{}), AutoscalerConfig{}, noApply)
	t.Cleanup(c.Shutdown)

	return c
}

func TestController_DeployLifecycle(t *testing.T) {
	c := testController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDescriptor("svc", env.Dev, testResources(), testScaling())

	plan, err := c.Deploy(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "svc_"+d.ID, plan.Name)
	assert.Equal(t, StateActive, d.State())

	status, err := c.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, StateActive, status.State)
	assert.Equal(t, plan.Replicas, status.Replicas)

	assert.Len(t, c.List(), 1)

	require.NoError(t, c.Observe(d.ID, Observation{Utilization: 0.5, RequestRate: 3, At: time.Now()}))

	require.NoError(t, c.Teardown(d.ID))
	assert.Equal(t, StateRetired, d.State())

	_, err = c.Get(d.ID)
	assert.ErrorIs(t, err, ErrDeploymentNotFound)
}

func TestController_LoopOutlivesDeployContext(t *testing.T) {
	c := NewController(NewGenerator(GeneratorSettings{}),
		AutoscalerConfig{TickInterval: 20 * time.Millisecond}, noApply)
	t.Cleanup(c.Shutdown)

	reqCtx, cancel := context.WithCancel(context.Background())
	d := NewDescriptor("svc", env.Dev, testResources(), testScaling())

	_, err := c.Deploy(reqCtx, d)
	require.NoError(t, err)

	// A request-scoped context ends as soon as the handler returns; the
	// control loop must keep ticking regardless.
	cancel()

	require.Eventually(t, func() bool {
		if err := c.Observe(d.ID, Observation{Utilization: 0.99, RequestRate: 100, At: time.Now()}); err != nil {
			return false
		}
		status, err := c.Get(d.ID)
		return err == nil && status.Replicas > 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestController_DeployRejectsCancelledContext(t *testing.T) {
	c := testController(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDescriptor("svc", env.Dev, testResources(), testScaling())

	_, err := c.Deploy(ctx, d)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.List())
}

func TestController_DeployRejectsGatedProd(t *testing.T) {
	c := testController(t)

	d := NewDescriptor("svc", env.Prod, testResources(), testScaling(),
		WithImage("registry/svc:1"))

	_, err := c.Deploy(context.Background(), d)
	assert.ErrorIs(t, err, ErrGateRejected)
	assert.Equal(t, StateRejected, d.State())
	assert.Empty(t, c.List())
}

func TestController_DeployRejectsInvalidDescriptor(t *testing.T) {
	c := testController(t)

	d := NewDescriptor("", env.Dev, testResources(), testScaling())

	_, err := c.Deploy(context.Background(), d)

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Empty(t, c.List())
}

func TestController_ObserveUnknownDeployment(t *testing.T) {
	c := testController(t)

	err := c.Observe("nope", Observation{Utilization: 0.5, At: time.Now()})
	assert.ErrorIs(t, err, ErrDeploymentNotFound)

	assert.ErrorIs(t, c.Teardown("nope"), ErrDeploymentNotFound)
}
