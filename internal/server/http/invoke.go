// Package http exposes the dispatcher and the deployment controller over
// HTTP. The handlers are thin: request shaping only, no business logic.
package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/modelserve/internal/dispatch"
)

type (
	InvokeRequestDTO struct {
		Model      string         `json:"model,omitempty"`
		Function   string         `json:"function" minLength:"1"`
		Parameters map[string]any `json:"parameters,omitempty"`
	}
)

type (
	InvokeInput struct {
		Body InvokeRequestDTO
	}

	InvokeOutput struct {
		Body dispatch.Result
	}
)

// InvokeHandler handles HTTP requests for model function invocation.
type InvokeHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewInvokeHandler creates a new InvokeHandler instance.
func NewInvokeHandler(api huma.API, dispatcher *dispatch.Dispatcher) *InvokeHandler {
	h := &InvokeHandler{dispatcher: dispatcher}

	huma.Register(api, huma.Operation{
		OperationID:   "invoke",
		Method:        http.MethodPost,
		Path:          "/invoke",
		Summary:       "Invoke a model function by name",
		Tags:          []string{"models"},
		DefaultStatus: http.StatusOK,
	}, h.handleInvoke)

	return h
}

// handleInvoke handles the invoke operation. Dispatch failures stay inside
// the response envelope; the HTTP status is 200 either way.
func (h *InvokeHandler) handleInvoke(ctx context.Context, input *InvokeInput) (*InvokeOutput, error) {
	result := h.dispatcher.Dispatch(ctx, dispatch.Request{
		Model:      input.Body.Model,
		Function:   input.Body.Function,
		Parameters: input.Body.Parameters,
	})

	return &InvokeOutput{Body: result}, nil
}
