package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".driftwatch"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
// DRIFTWATCH_CONFIG overrides the default location.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("DRIFTWATCH_CONFIG")); explicit != "" {
		return expandHome(explicit)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Load reads the config file (if present), applies env overrides, and
// expands ~ in path settings. A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	envconfig.Process("DRIFTWATCH_PATHS", &cfg.Paths)
	envconfig.Process("DRIFTWATCH_SUPERVISOR", &cfg.Supervisor)
	envconfig.Process("DRIFTWATCH_SCHEDULER", &cfg.Scheduler)
	envconfig.Process("DRIFTWATCH_NOTIFY_SLACK", &cfg.Notify.Slack)
	envconfig.Process("DRIFTWATCH_EVENTS", &cfg.Events)

	if cfg.Paths.DataDir, err = expandHome(cfg.Paths.DataDir); err != nil {
		return cfg, err
	}
	if cfg.Paths.DBPath, err = expandHome(cfg.Paths.DBPath); err != nil {
		return cfg, err
	}
	if cfg.Scheduler.LockPath, err = expandHome(cfg.Scheduler.LockPath); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config as indented JSON, creating the directory if needed.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}
