package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML shape of an optional logging configuration file.
type FileConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // log destination; "~" expands to the home dir
}

// ParseLevel maps a level name to a Level, defaulting to info.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Setup configures logging for an application. The configuration file is
// looked up as <configDir>/logging.yaml unless the environment variable
// envKey names an alternate file. Without a usable file, logging falls back
// to stderr at info level. Returns the path of the file that was used (empty
// for the fallback) and a cleanup function.
func Setup(configDir, envKey string) (string, func(), error) {
	path := filepath.Join(configDir, "logging.yaml")
	if override := os.Getenv(envKey); override != "" {
		path = override
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-chosen config path
	if err != nil {
		InitWriter(os.Stderr, LevelInfo)
		return "", func() {}, nil
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", nil, fmt.Errorf("parsing logging config %s: %w", path, err)
	}

	if cfg.File == "" {
		InitWriter(os.Stderr, ParseLevel(cfg.Level))
		return path, func() {}, nil
	}

	target := expandHome(cfg.File)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", nil, fmt.Errorf("creating log directory: %w", err)
	}
	cleanup, err := Init(target, ParseLevel(cfg.Level))
	if err != nil {
		return "", nil, err
	}
	return path, cleanup, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
