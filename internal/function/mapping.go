// Package function builds per-model tables that translate external API names
// to bound callables. A mapping is resolved once at registration time and is
// immutable afterwards; dispatch never re-discovers methods per call.
package function

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/ekisa-team/modelserve/internal/signature"
)

// Documenter is an optional interface models implement to document their
// functions. The argument is the method name the documentation is asked for.
type Documenter interface {
	FunctionDoc(name string) string
}

// Spec describes how API names map onto methods of a model instance.
// The zero value means auto-discovery.
type Spec struct {
	names   []string
	renames map[string]string
}

// AutoDiscover returns a spec that exposes every supported public method
// under its own name.
func AutoDiscover() Spec {
	return Spec{}
}

// Names returns an identity spec: each listed method is exposed under the
// same name.
func Names(names ...string) Spec {
	return Spec{names: names}
}

// Rename returns a spec mapping external API names to method names.
func Rename(m map[string]string) Spec {
	return Spec{renames: m}
}

func (s Spec) auto() bool {
	return len(s.names) == 0 && len(s.renames) == 0
}

// Binding is a single (apiName, bound callable) pair with its cached
// signature.
type Binding struct {
	APIName string
	Method  string

	fn  reflect.Value
	sig *signature.Info
}

// Signature returns the cached signature info.
func (b *Binding) Signature() *signature.Info {
	return b.sig
}

// Invoke calls the bound method with parameters applied by name.
func (b *Binding) Invoke(ctx context.Context, params map[string]any) (any, error) {
	return b.sig.Call(ctx, b.fn, params)
}

// Mapping is an immutable table of bindings keyed by API name.
type Mapping struct {
	bindings map[string]*Binding
	names    []string
}

// Resolve returns the binding registered under the given API name.
func (m *Mapping) Resolve(apiName string) (*Binding, bool) {
	b, ok := m.bindings[apiName]
	return b, ok
}

// APINames returns the sorted API names of the mapping.
func (m *Mapping) APINames() []string {
	return m.names
}

// Len returns the number of bindings.
func (m *Mapping) Len() int {
	return len(m.bindings)
}

// universalMethods are interface methods with no business meaning of their
// own; auto-discovery skips them.
var universalMethods = map[string]bool{
	"String":      true,
	"GoString":    true,
	"Error":       true,
	"Close":       true,
	"FunctionDoc": true,
}

// Build constructs a Mapping for a model instance. Explicit specs fail with
// a *MappingError when a method does not exist or has an unsupported shape;
// auto-discovery silently skips unsupported methods.
func Build(instance any, spec Spec) (*Mapping, error) {
	rv := reflect.ValueOf(instance)
	if !rv.IsValid() {
		return nil, &MappingError{Name: "<nil>", Err: ErrUnresolved}
	}

	doc, _ := instance.(Documenter)
	m := &Mapping{bindings: map[string]*Binding{}}

	switch {
	case spec.auto():
		rt := rv.Type()
		for i := 0; i < rv.NumMethod(); i++ {
			name := rt.Method(i).Name
			if universalMethods[name] {
				continue
			}
			b, err := bind(rv, doc, name, name)
			if err != nil {
				slog.Debug("Skipping undiscoverable method", "method", name, "error", err)
				continue
			}
			m.bindings[name] = b
		}
	case len(spec.names) > 0:
		for _, name := range spec.names {
			b, err := bind(rv, doc, name, name)
			if err != nil {
				return nil, err
			}
			m.bindings[name] = b
		}
	default:
		for apiName, method := range spec.renames {
			b, err := bind(rv, doc, apiName, method)
			if err != nil {
				return nil, err
			}
			m.bindings[apiName] = b
		}
	}

	m.names = make([]string, 0, len(m.bindings))
	for name := range m.bindings {
		m.names = append(m.names, name)
	}
	sort.Strings(m.names)

	return m, nil
}

func bind(rv reflect.Value, doc Documenter, apiName, method string) (*Binding, error) {
	fn := rv.MethodByName(method)
	if !fn.IsValid() {
		return nil, &MappingError{Name: method, Err: ErrUnresolved}
	}

	info, err := signature.Inspect(fn)
	if err != nil && !errors.Is(err, signature.ErrIntrospection) {
		return nil, &MappingError{Name: method, Err: err}
	}
	if info == nil {
		return nil, &MappingError{Name: method, Err: fmt.Errorf("unsupported signature: %w", err)}
	}

	if doc != nil {
		info.Doc = doc.FunctionDoc(method)
	}

	return &Binding{APIName: apiName, Method: method, fn: fn, sig: info}, nil
}
