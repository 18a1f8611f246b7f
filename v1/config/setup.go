package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ErrEmptyPath is returned by LoadFile for an empty path.
var ErrEmptyPath = errors.New("config: empty file path")

// Load reads the configuration from environment variables, falling back to
// the defaults declared on the fields.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads the environment like Load and then overlays the YAML file
// at path. Keys missing from the file keep their environment or default
// value. ${VAR} references in the file are expanded from the environment.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
