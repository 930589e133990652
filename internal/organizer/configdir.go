package organizer

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ConfigDirEnv returns the environment variable that overrides the computed
// configuration directory for an application, e.g. MODELORGCONFIGDIR.
func ConfigDirEnv(name string) string {
	return strings.ToUpper(name) + "CONFIGDIR"
}

// ConfigDir resolves the per-user configuration directory for an application
// and creates it if absent. The environment override wins; otherwise
// ~/.config/<name> on linux and darwin, ~/.<name> elsewhere.
func ConfigDir(name string) (string, error) {
	if override := os.Getenv(ConfigDirEnv(name)); override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", ConfigDirEnv(name), err)
		}
		if err := os.MkdirAll(abs, 0o750); err != nil {
			return "", fmt.Errorf("creating config directory: %w", err)
		}
		return abs, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	var dir string
	switch runtime.GOOS {
	case "linux", "darwin":
		dir = filepath.Join(home, ".config", name)
	default:
		dir = filepath.Join(home, "."+name)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}
