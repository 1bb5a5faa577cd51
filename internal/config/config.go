// Package config loads demo/bench scenario configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes one demo or bench run.
type Scenario struct {
	Name     string `yaml:"name"`
	Agents   int    `yaml:"agents"`
	Frames   int    `yaml:"frames"`
	Workers  int    `yaml:"workers"` // 0 = all CPUs
	Seed     uint64 `yaml:"seed"`
	Script   string `yaml:"script"`    // optional path to a JS per-item workload
	HTTPAddr string `yaml:"http_addr"` // optional status API listen address
	DBPath   string `yaml:"db_path"`
}

// Default returns a small scenario that runs in a couple of seconds.
func Default() Scenario {
	return Scenario{
		Name:   "flock",
		Agents: 1000,
		Frames: 120,
		Seed:   1,
		DBPath: "stride.db",
	}
}

// Load reads a scenario from a YAML file, applying defaults for omitted
// fields.
func Load(path string) (Scenario, error) {
	sc := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return sc, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// Validate rejects scenarios that cannot run.
func (s Scenario) Validate() error {
	if s.Agents < 0 {
		return fmt.Errorf("agents must be >= 0, got %d", s.Agents)
	}
	if s.Frames <= 0 {
		return fmt.Errorf("frames must be > 0, got %d", s.Frames)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", s.Workers)
	}
	return nil
}
