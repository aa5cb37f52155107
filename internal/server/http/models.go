package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/modelserve/internal/dispatch"
	"github.com/ekisa-team/modelserve/internal/model"
)

type (
	ListModelsOutput struct {
		Body struct {
			Models map[string]model.Summary `json:"models"`
		}
	}

	SignatureInput struct {
		Model    string `path:"model"`
		Function string `path:"function"`
	}

	SignatureOutput struct {
		Body dispatch.SignatureResponse
	}
)

// ModelsHandler handles the read-only model query endpoints.
type ModelsHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewModelsHandler creates a new ModelsHandler instance.
func NewModelsHandler(api huma.API, dispatcher *dispatch.Dispatcher) *ModelsHandler {
	h := &ModelsHandler{dispatcher: dispatcher}

	huma.Register(api, huma.Operation{
		OperationID: "list-models",
		Method:      http.MethodGet,
		Path:        "/models",
		Summary:     "List registered models and their functions",
		Tags:        []string{"models"},
	}, h.handleListModels)

	huma.Register(api, huma.Operation{
		OperationID: "function-signature",
		Method:      http.MethodGet,
		Path:        "/models/{model}/functions/{function}",
		Summary:     "Get a function's signature and documentation",
		Tags:        []string{"models"},
	}, h.handleFunctionSignature)

	return h
}

// handleListModels handles the list-models operation.
func (h *ModelsHandler) handleListModels(ctx context.Context, _ *struct{}) (*ListModelsOutput, error) {
	out := &ListModelsOutput{}
	out.Body.Models = h.dispatcher.ListModels()

	return out, nil
}

// handleFunctionSignature handles the function-signature operation.
func (h *ModelsHandler) handleFunctionSignature(ctx context.Context, input *SignatureInput) (*SignatureOutput, error) {
	sig, failure := h.dispatcher.FunctionSignature(input.Model, input.Function)
	if failure != nil {
		return nil, huma.Error404NotFound(failure.Message)
	}

	return &SignatureOutput{Body: *sig}, nil
}
