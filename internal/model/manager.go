package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ekisa-team/modelserve/internal/config"
)

// metadata key marking descriptors that were loaded from the config file.
// Reload reconciliation only touches those; programmatic registrations are
// left alone.
const metaSource = "source"

// Manager orchestrates model lifecycle: it owns the registry and loads models
// from declarative configuration through the factory table.
type Manager struct {
	registry  *Registry
	factories *Factories
	mu        sync.Mutex
}

// NewManager creates a new Manager instance.
func NewManager(factories *Factories) *Manager {
	return &Manager{
		registry:  NewRegistry(),
		factories: factories,
	}
}

// Registry returns the model registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// LoadFromConfig registers every model entry of the config. The load is
// best-effort: each entry is attempted independently and failures are
// collected and returned together rather than aborting the batch.
// Config-sourced entries that disappeared from the config are removed.
func (m *Manager) LoadFromConfig(ctx context.Context, cfg *config.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	loaded := make(map[string]bool, len(cfg.Models))

	for _, entry := range cfg.Models {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if loaded[entry.Name] {
			errs = append(errs, fmt.Errorf("model %q: duplicate name in config", entry.Name))
			continue
		}

		instance, err := m.factories.New(entry.ClassPath, entry.InitParams)
		if err != nil {
			errs = append(errs, fmt.Errorf("model %q: %w", entry.Name, err))
			continue
		}

		meta := map[string]string{
			metaSource:   "config",
			"class_path": entry.ClassPath,
		}
		err = m.registry.Register(entry.Name, instance, entry.Functions.Spec(),
			WithInitParams(entry.InitParams),
			WithMetadata(meta),
		)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		loaded[entry.Name] = true
		slog.Info("Model registered from config", "model", entry.Name, "class_path", entry.ClassPath)
	}

	// Drop config-sourced models that are no longer declared.
	for _, d := range m.registry.Descriptors() {
		if d.Metadata[metaSource] == "config" && !loaded[d.Name] {
			if err := m.registry.Unregister(d.Name); err == nil {
				slog.Info("Model removed after config reload", "model", d.Name)
			}
		}
	}

	return errors.Join(errs...)
}
