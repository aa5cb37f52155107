package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oneModelDoc = `
version: "1"
models:
  - name: echo
    class_path: example.Echo
`

const twoModelDoc = `
version: "1"
models:
  - name: echo
    class_path: example.Echo
  - name: text
    class_path: example.TextProcessor
`

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, oneModelDoc)

	var reloaded atomic.Pointer[Config]
	w, err := NewWatcher(path, schemaPath, func(cfg *Config, err error) {
		if err == nil {
			reloaded.Store(cfg)
		}
	})
	require.NoError(t, err)
	t.Cleanup(w.Close)

	require.Len(t, w.Snapshot().Models, 1)

	require.NoError(t, os.WriteFile(path, []byte(twoModelDoc), 0o600))

	require.Eventually(t, func() bool {
		cfg := reloaded.Load()
		return cfg != nil && len(cfg.Models) == 2
	}, 5*time.Second, 50*time.Millisecond)

	assert.Len(t, w.Snapshot().Models, 2)
	assert.GreaterOrEqual(t, w.ReloadCount(), uint32(1))
}

func TestWatcher_SurvivesReplaceOnSave(t *testing.T) {
	path := writeConfig(t, oneModelDoc)

	var reloads atomic.Uint32
	w, err := NewWatcher(path, schemaPath, func(cfg *Config, err error) {
		if err == nil {
			reloads.Add(1)
		}
	})
	require.NoError(t, err)
	t.Cleanup(w.Close)

	// Write-to-temp-then-rename, the way most editors save.
	tmp := filepath.Join(filepath.Dir(path), "config.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(twoModelDoc), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool {
		return reloads.Load() >= 1 && len(w.Snapshot().Models) == 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcher_ReportsInvalidReload(t *testing.T) {
	path := writeConfig(t, oneModelDoc)

	var reloadErrs atomic.Uint32
	w, err := NewWatcher(path, schemaPath, func(cfg *Config, err error) {
		if err != nil {
			reloadErrs.Add(1)
		}
	})
	require.NoError(t, err)
	t.Cleanup(w.Close)

	require.NoError(t, os.WriteFile(path, []byte("nonsense: true\n"), 0o600))

	require.Eventually(t, func() bool {
		return reloadErrs.Load() >= 1
	}, 5*time.Second, 50*time.Millisecond)

	// The last good snapshot stays in place.
	assert.Len(t, w.Snapshot().Models, 1)
}

func TestWatcher_CloseStopsWatching(t *testing.T) {
	path := writeConfig(t, oneModelDoc)

	w, err := NewWatcher(path, schemaPath, func(cfg *Config, err error) {
		t.Error("reload after Close")
	})
	require.NoError(t, err)

	w.Close()
	w.Close() // idempotent

	require.NoError(t, os.WriteFile(path, []byte(twoModelDoc), 0o600))
	time.Sleep(time.Second)

	assert.Zero(t, w.ReloadCount())
	assert.Len(t, w.Snapshot().Models, 1)
}

func TestNewWatcher_RejectsBadInitialConfig(t *testing.T) {
	path := writeConfig(t, "nonsense: true\n")

	_, err := NewWatcher(path, schemaPath, func(*Config, error) {})
	assert.ErrorContains(t, err, "failed to load initial config")
}
