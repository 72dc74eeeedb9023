// Package config loads pipeline wiring from pipeline.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// State backend names accepted in [state].
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendNATS   = "nats"
)

// Config is the full pipeline configuration.
type Config struct {
	State StateConfig `toml:"state"`
	Log   LogConfig   `toml:"log"`
}

// StateConfig selects and parameterizes the state backend.
type StateConfig struct {
	// Backend is one of memory, bolt, nats.
	Backend string `toml:"backend"`

	Bolt BoltConfig `toml:"bolt"`
	NATS NATSConfig `toml:"nats"`
}

// BoltConfig configures the file-backed backend.
type BoltConfig struct {
	// Path is the state file location.
	Path string `toml:"path"`
}

// NATSConfig configures the JetStream KV backend.
type NATSConfig struct {
	// URL is the NATS server address.
	URL string `toml:"url"`

	// Bucket is the KV bucket name.
	Bucket string `toml:"bucket"`
}

// LogConfig configures console output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is found: memory
// state, info logging.
func Default() *Config {
	return &Config{
		State: StateConfig{
			Backend: BackendMemory,
			Bolt:    BoltConfig{Path: "pipeline-state.db"},
			NATS: NATSConfig{
				URL:    "nats://localhost:4222",
				Bucket: "processor-state",
			},
		},
		Log: LogConfig{Level: "info"},
	}
}

// StandardPaths returns the configuration file locations in order of priority.
func StandardPaths() []string {
	paths := []string{"pipeline.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "idack", "pipeline.toml"))
	}
	return paths
}

// Load loads configuration from the first available standard location.
// No file found is not an error: defaults apply.
func Load() (*Config, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := LoadFile(path)
			if err != nil {
				return nil, path, err
			}
			return cfg, path, nil
		}
	}
	return Default(), "", nil
}

// LoadFile loads configuration from a specific file. Fields absent from the
// file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.State.Backend {
	case BackendMemory:
	case BackendBolt:
		if c.State.Bolt.Path == "" {
			return fmt.Errorf("state.bolt.path is required for the bolt backend")
		}
	case BackendNATS:
		if c.State.NATS.URL == "" {
			return fmt.Errorf("state.nats.url is required for the nats backend")
		}
		if c.State.NATS.Bucket == "" {
			return fmt.Errorf("state.nats.bucket is required for the nats backend")
		}
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}
	return nil
}
