package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/modelserve/internal/deploy"
	"github.com/ekisa-team/modelserve/internal/env"
)

type (
	DeployRequestDTO struct {
		Name           string           `json:"name" minLength:"1"`
		Tier           string           `json:"tier" enum:"dev,staging,prod"`
		Resources      deploy.Resources `json:"resources"`
		Scaling        deploy.Scaling   `json:"scaling"`
		Image          string           `json:"image,omitempty"`
		TestGatePassed bool             `json:"test_gate_passed,omitempty"`
	}

	ObservationDTO struct {
		Utilization float64 `json:"utilization" minimum:"0"`
		RequestRate float64 `json:"request_rate" minimum:"0"`
	}
)

type (
	DeployInput struct {
		Body DeployRequestDTO
	}

	DeployOutput struct {
		Body deploy.Plan
	}

	DeploymentIDInput struct {
		ID string `path:"id"`
	}

	ObserveInput struct {
		ID   string `path:"id"`
		Body ObservationDTO
	}

	ListDeploymentsOutput struct {
		Body struct {
			Deployments []*deploy.Status `json:"deployments"`
		}
	}

	GetDeploymentOutput struct {
		Body deploy.Status
	}
)

// DeploymentsHandler handles the deployment lifecycle endpoints.
type DeploymentsHandler struct {
	controller *deploy.Controller
}

// NewDeploymentsHandler creates a new DeploymentsHandler instance.
func NewDeploymentsHandler(api huma.API, controller *deploy.Controller) *DeploymentsHandler {
	h := &DeploymentsHandler{controller: controller}

	huma.Register(api, huma.Operation{
		OperationID:   "create-deployment",
		Method:        http.MethodPost,
		Path:          "/deployments",
		Summary:       "Validate a deployment descriptor and emit its plan",
		Tags:          []string{"deployments"},
		DefaultStatus: http.StatusCreated,
	}, h.handleDeploy)

	huma.Register(api, huma.Operation{
		OperationID: "list-deployments",
		Method:      http.MethodGet,
		Path:        "/deployments",
		Summary:     "List live deployments",
		Tags:        []string{"deployments"},
	}, h.handleList)

	huma.Register(api, huma.Operation{
		OperationID: "get-deployment",
		Method:      http.MethodGet,
		Path:        "/deployments/{id}",
		Summary:     "Get a deployment's status",
		Tags:        []string{"deployments"},
	}, h.handleGet)

	huma.Register(api, huma.Operation{
		OperationID:   "observe-deployment",
		Method:        http.MethodPost,
		Path:          "/deployments/{id}/observations",
		Summary:       "Report observed load for a deployment",
		Tags:          []string{"deployments"},
		DefaultStatus: http.StatusNoContent,
	}, h.handleObserve)

	huma.Register(api, huma.Operation{
		OperationID:   "teardown-deployment",
		Method:        http.MethodDelete,
		Path:          "/deployments/{id}",
		Summary:       "Tear down a deployment",
		Tags:          []string{"deployments"},
		DefaultStatus: http.StatusNoContent,
	}, h.handleTeardown)

	return h
}

// handleDeploy handles the create-deployment operation.
func (h *DeploymentsHandler) handleDeploy(ctx context.Context, input *DeployInput) (*DeployOutput, error) {
	desc := deploy.NewDescriptor(
		input.Body.Name,
		env.Environment(input.Body.Tier),
		input.Body.Resources,
		input.Body.Scaling,
		deploy.WithImage(input.Body.Image),
		deploy.WithTestGatePassed(input.Body.TestGatePassed),
	)

	plan, err := h.controller.Deploy(ctx, desc)
	if err != nil {
		var validation *deploy.ValidationError
		switch {
		case errors.Is(err, deploy.ErrGateRejected):
			return nil, huma.Error403Forbidden("deployment rejected by test gate", err)
		case errors.As(err, &validation):
			return nil, huma.Error422UnprocessableEntity(validation.Error())
		default:
			return nil, huma.Error500InternalServerError("failed to deploy", err)
		}
	}

	return &DeployOutput{Body: *plan}, nil
}

// handleList handles the list-deployments operation.
func (h *DeploymentsHandler) handleList(ctx context.Context, _ *struct{}) (*ListDeploymentsOutput, error) {
	out := &ListDeploymentsOutput{}
	out.Body.Deployments = h.controller.List()

	return out, nil
}

// handleGet handles the get-deployment operation.
func (h *DeploymentsHandler) handleGet(ctx context.Context, input *DeploymentIDInput) (*GetDeploymentOutput, error) {
	status, err := h.controller.Get(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound("deployment not found", err)
	}

	return &GetDeploymentOutput{Body: *status}, nil
}

// handleObserve handles the observe-deployment operation.
func (h *DeploymentsHandler) handleObserve(ctx context.Context, input *ObserveInput) (*struct{}, error) {
	err := h.controller.Observe(input.ID, deploy.Observation{
		Utilization: input.Body.Utilization,
		RequestRate: input.Body.RequestRate,
		At:          time.Now(),
	})
	if err != nil {
		return nil, huma.Error404NotFound("deployment not found", err)
	}

	return nil, nil
}

// handleTeardown handles the teardown-deployment operation.
func (h *DeploymentsHandler) handleTeardown(ctx context.Context, input *DeploymentIDInput) (*struct{}, error) {
	if err := h.controller.Teardown(input.ID); err != nil {
		return nil, huma.Error404NotFound("deployment not found", err)
	}

	return nil, nil
}
