// Package dispatch maps loosely-typed requests onto concrete method
// invocations. The dispatcher is the trust boundary between structured
// external input and arbitrary model code: it always returns a Result,
// never an uncaught fault.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ekisa-team/modelserve/internal/function"
	"github.com/ekisa-team/modelserve/internal/model"
	"github.com/ekisa-team/modelserve/internal/signature"
)

// DefaultTimeout bounds a single model call unless configured otherwise.
const DefaultTimeout = 30 * time.Second

// Dispatcher resolves and invokes model functions through the registry.
type Dispatcher struct {
	registry     *model.Registry
	timeout      time.Duration
	defaultModel string
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithTimeout sets the per-call timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(name string) Option {
	return func(disp *Dispatcher) { disp.defaultModel = name }
}

// New creates a dispatcher backed by the given registry.
func New(registry *model.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch resolves the request against the registry, validates the
// parameters against the function's signature, and invokes the callable with
// parameters applied by name. Every fault is shaped into the Result's Error.
//
// Dispatches are independent and may run concurrently, including against the
// same model; the dispatcher provides no mutual exclusion between calls into
// a model instance. Thread safety of the instance is the model author's
// responsibility.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	name := req.Model
	if name == "" {
		name = d.defaultModel
	}

	res := Result{Model: name, Function: req.Function}

	desc, err := d.registry.Resolve(name)
	if err != nil {
		failCtx := map[string]any{"available_models": d.registry.Names()}
		res.Error = &Failure{
			Kind:    KindModelNotFound,
			Message: fmt.Sprintf("model %q not found", name),
			Context: failCtx,
		}
		return res
	}

	binding, ok := desc.Mapping.Resolve(req.Function)
	if !ok {
		res.Error = &Failure{
			Kind:    KindFunctionNotFound,
			Message: fmt.Sprintf("function %q not found for model %q", req.Function, name),
			Context: map[string]any{"available_functions": desc.Mapping.APINames()},
		}
		return res
	}

	sig := binding.Signature()
	if err := sig.Validate(req.Parameters); err != nil {
		res.Error = &Failure{
			Kind:    KindParameterMismatch,
			Message: err.Error(),
			Context: map[string]any{
				"expected_signature":  sig.String(),
				"provided_parameters": req.Parameters,
			},
		}
		return res
	}

	value, err := d.invoke(ctx, binding, req.Parameters)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		res.Error = &Failure{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("call to %s.%s exceeded %s", name, req.Function, d.timeout),
			Context: map[string]any{"timeout": d.timeout.String()},
		}
	case errors.Is(err, signature.ErrBind):
		res.Error = &Failure{
			Kind:    KindParameterMismatch,
			Message: err.Error(),
			Context: map[string]any{
				"expected_signature":  sig.String(),
				"provided_parameters": req.Parameters,
			},
		}
	case err != nil:
		res.Error = &Failure{
			Kind:    KindExecutionError,
			Message: err.Error(),
		}
	default:
		res.Value = value
		res.Parameters = req.Parameters
	}

	return res
}

// invoke runs the bound callable under the per-call timeout. On timeout the
// goroutine is abandoned: cancellation of the underlying work is the
// execution substrate's concern, the dispatch slot is freed regardless.
func (d *Dispatcher) invoke(ctx context.Context, b *function.Binding, params map[string]any) (any, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Model call panicked", "function", b.APIName, "panic", r)
				done <- outcome{err: fmt.Errorf("model code panicked: %v", r)}
			}
		}()

		value, err := b.Invoke(callCtx, params)
		done <- outcome{value: value, err: err}
	}()

	select {
	case <-callCtx.Done():
		return nil, callCtx.Err()
	case out := <-done:
		return out.value, out.err
	}
}

// ListModels returns a snapshot of all registered models, the list_models
// query form.
func (d *Dispatcher) ListModels() map[string]model.Summary {
	return d.registry.List()
}

// FunctionSignature answers the function_signature query form.
func (d *Dispatcher) FunctionSignature(modelName, functionName string) (*SignatureResponse, *Failure) {
	desc, err := d.registry.Resolve(modelName)
	if err != nil {
		return nil, &Failure{
			Kind:    KindModelNotFound,
			Message: fmt.Sprintf("model %q not found", modelName),
			Context: map[string]any{"available_models": d.registry.Names()},
		}
	}

	binding, ok := desc.Mapping.Resolve(functionName)
	if !ok {
		return nil, &Failure{
			Kind:    KindFunctionNotFound,
			Message: fmt.Sprintf("function %q not found for model %q", functionName, modelName),
			Context: map[string]any{"available_functions": desc.Mapping.APINames()},
		}
	}

	sig := binding.Signature()
	doc := sig.Doc
	if doc == "" {
		doc = "No documentation available"
	}

	return &SignatureResponse{
		Name:       functionName,
		Signature:  sig.String(),
		Parameters: sig.Names(),
		Doc:        doc,
	}, nil
}
