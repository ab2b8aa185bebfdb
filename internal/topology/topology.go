// Package topology describes the execution environment the driver runs
// in: how many machines participate and how many worker contexts each
// routing class gets. The config is an explicit value handed to the
// driver; there is no ambient global registry.
package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the resource/topology description.
type Config struct {
	// Machines is the participating-machine count. Anything above one
	// trips the driver's fail-fast check; multi-machine coordination is a
	// known unsupported path.
	Machines int `yaml:"machines"`

	// LocalWorkers and RemoteWorkers size the worker-context sets of the
	// two engines.
	LocalWorkers  int `yaml:"local_workers"`
	RemoteWorkers int `yaml:"remote_workers"`
}

// Default returns a single-machine config with two workers per engine.
func Default() *Config {
	return &Config{Machines: 1, LocalWorkers: 2, RemoteWorkers: 2}
}

// Load parses a YAML config. Omitted fields fall back to defaults.
func Load(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse topology config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and parses a YAML config file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology config: %w", err)
	}
	return Load(data)
}

// Validate rejects configs no driver could run with.
func (c *Config) Validate() error {
	if c.Machines < 1 {
		return fmt.Errorf("topology: machine count %d, need at least 1", c.Machines)
	}
	if c.LocalWorkers < 1 || c.RemoteWorkers < 1 {
		return fmt.Errorf("topology: worker counts local=%d remote=%d, need at least 1 each",
			c.LocalWorkers, c.RemoteWorkers)
	}
	return nil
}

// MachineCount reports the participating-machine count. The driver uses
// this solely to gate the multi-machine fail-fast check.
func (c *Config) MachineCount() int { return c.Machines }
