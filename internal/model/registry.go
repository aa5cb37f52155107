package model

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ekisa-team/modelserve/internal/function"
)

// Descriptor is a registered model: the owned instance, its resolved function
// mapping, and registration metadata. Descriptors are replaced whole on
// re-registration, never mutated in place.
type Descriptor struct {
	Name         string
	Instance     any
	Mapping      *function.Mapping
	InitParams   map[string]any
	Metadata     map[string]string
	RegisteredAt time.Time
}

// Summary is the read-only view of a descriptor returned by List.
type Summary struct {
	Type      string            `json:"type"`
	Functions []string          `json:"functions"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Option customizes a descriptor at registration time.
type Option func(*Descriptor)

// WithInitParams records the construction parameters of the instance.
func WithInitParams(params map[string]any) Option {
	return func(d *Descriptor) { d.InitParams = params }
}

// WithMetadata attaches freeform metadata to the descriptor.
func WithMetadata(metadata map[string]string) Option {
	return func(d *Descriptor) { d.Metadata = metadata }
}

// Registry stores registered models. It is safe for concurrent use: entries
// are inserted and replaced whole under the lock, so a concurrent resolve
// sees either the old or the new descriptor, never a partial one.
type Registry struct {
	models map[string]*Descriptor
	mu     sync.RWMutex
}

// NewRegistry creates a new model registry.
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]*Descriptor),
	}
}

// Register builds the function mapping for the instance and inserts or
// replaces the descriptor under the given name.
func (r *Registry) Register(name string, instance any, spec function.Spec, opts ...Option) error {
	if name == "" {
		return ErrEmptyName
	}

	mapping, err := function.Build(instance, spec)
	if err != nil {
		return fmt.Errorf("model: register %q: %w", name, err)
	}

	d := &Descriptor{
		Name:         name,
		Instance:     instance,
		Mapping:      mapping,
		RegisteredAt: time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.models[name] = d
	return nil
}

// Unregister removes the entry under the given name. Dispatches already in
// flight keep using the descriptor they resolved.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.models[name]; !ok {
		return &NotFoundError{Name: name, Available: r.namesLocked()}
	}

	delete(r.models, name)
	return nil
}

// Resolve returns the descriptor registered under the given name.
func (r *Registry) Resolve(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.models[name]
	if !ok {
		return nil, &NotFoundError{Name: name, Available: r.namesLocked()}
	}

	return d, nil
}

// List returns a read-only snapshot of all registered models.
func (r *Registry) List() map[string]Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Summary, len(r.models))
	for name, d := range r.models {
		out[name] = Summary{
			Type:      typeName(d.Instance),
			Functions: d.Mapping.APINames(),
			Metadata:  d.Metadata,
		}
	}

	return out
}

// Descriptors returns a snapshot of all registered descriptors.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.models))
	for _, d := range r.models {
		out = append(out, d)
	}

	return out
}

// Names returns the sorted names of all registered models.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func typeName(instance any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", instance), "*")
}
