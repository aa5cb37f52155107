package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/modelserve/internal/function"
)

const schemaPath = "../../api/modelserve.v1.schema.json"

func writeConfig(t *testing.T, doc string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
version: "1"
models:
  - name: echo
    class_path: example.Echo
    init_params:
      name: default
    functions: [Greet]
  - name: text
    class_path: example.TextProcessor
    functions:
      process: ProcessText
      summarize: Summarize
settings:
  default_model: echo
  timeout: 10s
deployment:
  base_url: http://localhost:9000
  prod_replicas: 3
  tick_interval: 30s
`)

	cfg, err := LoadAndValidate(path, schemaPath)
	require.NoError(t, err)

	require.Len(t, cfg.Models, 2)
	assert.Equal(t, "echo", cfg.Models[0].Name)
	assert.Equal(t, "example.Echo", cfg.Models[0].ClassPath)
	assert.Equal(t, map[string]any{"name": "default"}, cfg.Models[0].InitParams)

	assert.Equal(t, "echo", cfg.Settings.DefaultModel)
	assert.Equal(t, 10*time.Second, cfg.Settings.Timeout.Std())

	assert.Equal(t, "http://localhost:9000", cfg.Deployment.BaseURL)
	assert.Equal(t, 3, cfg.Deployment.ProdReplicas)
	assert.Equal(t, 30*time.Second, cfg.Deployment.TickInterval.Std())
}

func TestLoadAndValidate_MissingFile(t *testing.T) {
	_, err := LoadAndValidate(filepath.Join(t.TempDir(), "nope.yaml"), schemaPath)
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoadAndValidate_RejectsInvalidYAML(t *testing.T) {
	path := writeConfig(t, "version: [unclosed")

	_, err := LoadAndValidate(path, schemaPath)
	assert.ErrorContains(t, err, "invalid YAML")
}

func TestLoadAndValidate_RejectsSchemaViolations(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{
			name: "missing version",
			doc: `
models:
  - name: echo
    class_path: example.Echo
`,
		},
		{
			name: "model without class_path",
			doc: `
version: "1"
models:
  - name: echo
`,
		},
		{
			name: "malformed timeout",
			doc: `
version: "1"
models:
  - name: echo
    class_path: example.Echo
settings:
  timeout: ten seconds
`,
		},
		{
			name: "unknown top-level key",
			doc: `
version: "1"
models: []
nonsense: true
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadAndValidate(writeConfig(t, tc.doc), schemaPath)
			assert.ErrorContains(t, err, "validation failed")
		})
	}
}

func TestFunctionsSpec_Forms(t *testing.T) {
	path := writeConfig(t, `
version: "1"
models:
  - name: listed
    class_path: example.Echo
    functions: [Greet]
  - name: renamed
    class_path: example.Echo
    functions:
      greet: Greet
  - name: discovered
    class_path: example.Echo
`)

	cfg, err := LoadAndValidate(path, schemaPath)
	require.NoError(t, err)
	require.Len(t, cfg.Models, 3)

	// Each declared form translates into a working mapping spec; the absent
	// form falls back to auto-discovery.
	instance := echoFixture{}

	m, err := function.Build(instance, cfg.Models[0].Functions.Spec())
	require.NoError(t, err)
	assert.Equal(t, []string{"Greet"}, m.APINames())

	m, err = function.Build(instance, cfg.Models[1].Functions.Spec())
	require.NoError(t, err)
	assert.Equal(t, []string{"greet"}, m.APINames())

	m, err = function.Build(instance, cfg.Models[2].Functions.Spec())
	require.NoError(t, err)
	assert.Equal(t, []string{"Greet", "Shout"}, m.APINames())
}

type echoArgs struct {
	Name string `json:"name"`
}

type echoFixture struct{}

func (echoFixture) Greet(args echoArgs) string { return "hi " + args.Name }

func (echoFixture) Shout(args echoArgs) string { return args.Name + "!" }

func TestDuration_Or(t *testing.T) {
	assert.Equal(t, 5*time.Second, Duration(0).Or(5*time.Second))
	assert.Equal(t, time.Minute, Duration(time.Minute).Or(5*time.Second))
}
