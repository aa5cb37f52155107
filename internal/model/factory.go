package model

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a model instance from its declared init parameters.
type Factory func(initParams map[string]any) (any, error)

// Factories maps class path locators to constructor functions. Construction
// is limited to registered factories so the boundary stays auditable; there
// is no dynamic import.
type Factories struct {
	byPath map[string]Factory
	mu     sync.RWMutex
}

// NewFactories creates an empty factory registry.
func NewFactories() *Factories {
	return &Factories{
		byPath: make(map[string]Factory),
	}
}

// Register associates a class path with a factory, replacing any prior entry.
func (f *Factories) Register(classPath string, factory Factory) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.byPath[classPath] = factory
}

// New constructs an instance for the given class path.
func (f *Factories) New(classPath string, initParams map[string]any) (any, error) {
	f.mu.RLock()
	factory, ok := f.byPath[classPath]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("model: %q: %w", classPath, ErrFactoryNotFound)
	}

	return factory(initParams)
}

// Paths returns the sorted class paths with a registered factory.
func (f *Factories) Paths() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	paths := make([]string, 0, len(f.byPath))
	for p := range f.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	return paths
}
