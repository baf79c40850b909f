// Package config loads the optional cascade.json configuration file
// used by the cascade CLI and dev server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "cascade.json"

	// DefaultAddr is the default dev server listen address.
	DefaultAddr = "localhost:6363"

	// DefaultMetricsNamespace is the default Prometheus namespace.
	DefaultMetricsNamespace = "cascade"

	// DefaultSnapshotDir is the default directory for file snapshots.
	DefaultSnapshotDir = ".cascade/snapshots"

	// DefaultSnapshotKey is the key snapshots are saved under.
	DefaultSnapshotKey = "state"
)

// Config represents the complete cascade.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Addr is the dev server listen address.
	Addr string `json:"addr,omitempty"`

	// MetricsNamespace is the Prometheus metrics namespace.
	MetricsNamespace string `json:"metricsNamespace,omitempty"`

	// Snapshot contains state snapshot persistence configuration.
	Snapshot SnapshotConfig `json:"snapshot,omitempty"`
}

// SnapshotConfig configures where state snapshots are stored.
type SnapshotConfig struct {
	// Backend selects the snapshot store: "file" or "s3".
	Backend string `json:"backend,omitempty"`

	// Dir is the directory for the file backend.
	Dir string `json:"dir,omitempty"`

	// Bucket is the bucket for the s3 backend.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the object key prefix for the s3 backend.
	Prefix string `json:"prefix,omitempty"`

	// Key is the snapshot key.
	Key string `json:"key,omitempty"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Addr:             DefaultAddr,
		MetricsNamespace: DefaultMetricsNamespace,
		Snapshot: SnapshotConfig{
			Backend: "file",
			Dir:     DefaultSnapshotDir,
			Key:     DefaultSnapshotKey,
		},
	}
}

// Load reads the configuration file at path. A missing file yields the
// defaults; a malformed or invalid file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Snapshot.Backend {
	case "", "file":
		if c.Snapshot.Dir == "" {
			return fmt.Errorf("snapshot.dir is required for the file backend")
		}
	case "s3":
		if c.Snapshot.Bucket == "" {
			return fmt.Errorf("snapshot.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Snapshot.Backend)
	}

	if c.Snapshot.Key == "" {
		return fmt.Errorf("snapshot.key must not be empty")
	}
	return nil
}
