package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/ekisa-team/modelserve/internal/envvar"
)

// DefaultHTTPPort returns the HTTP port to listen on, honoring the
// environment override.
func DefaultHTTPPort() int {
	if v := os.Getenv(envvar.ModelserveServerHTTPPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			return port
		}
	}

	return 8000
}

// DefaultConfigPath returns the default path for the modelserve config directory.
func DefaultConfigPath() string {
	if p := os.Getenv(envvar.ModelserveConfigPath); p != "" {
		return p
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "modelserve", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "modelserve")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "modelserve")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "modelserve")
		}
		return filepath.Join(home, ".config", "modelserve")
	}
}
