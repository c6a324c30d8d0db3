// Package config reads the optional gantry.yaml project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the project file looked up in the project root.
const FileName = "gantry.yaml"

// Config holds project-level settings. Relative directories are resolved
// against the project root by Resolve.
type Config struct {
	StateDir       string        `yaml:"state_dir"`
	SlotTypesDir   string        `yaml:"slot_types_dir"`
	AgentsDir      string        `yaml:"agents_dir"`
	AuditLogDir    string        `yaml:"audit_log_dir"`
	TestCommand    []string      `yaml:"test_command"`
	TestTimeout    time.Duration `yaml:"test_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	LogLevel       string        `yaml:"log_level"`
	Redis          Redis         `yaml:"redis"`
}

// Redis configures event streaming and state locking. An empty Addr disables both.
type Redis struct {
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	StreamPrefix string `yaml:"stream_prefix"`
	MaxLen       int64  `yaml:"max_len"`
}

// Default returns the settings used when no project file exists.
func Default() Config {
	return Config{
		StateDir:       ".gantry/state",
		SlotTypesDir:   "slot_types",
		AgentsDir:      "agents",
		AuditLogDir:    ".gantry/logs",
		TestCommand:    []string{"go", "test", "./..."},
		TestTimeout:    300 * time.Second,
		CommandTimeout: 60 * time.Second,
		LogLevel:       "info",
		Redis:          Redis{StreamPrefix: "gantry:events"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("malformed config %s: %w", path, err)
	}
	if len(cfg.TestCommand) == 0 {
		cfg.TestCommand = Default().TestCommand
	}
	return cfg, nil
}

// Resolve makes every directory absolute relative to root.
func (c Config) Resolve(root string) Config {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}
	c.StateDir = abs(c.StateDir)
	c.SlotTypesDir = abs(c.SlotTypesDir)
	c.AgentsDir = abs(c.AgentsDir)
	c.AuditLogDir = abs(c.AuditLogDir)
	return c
}
