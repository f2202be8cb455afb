// Package h2config loads the demo binary's YAML config, grounded on
// docker-compose's loader.go pattern (yaml.Unmarshal straight into a
// tagged struct, no builder/options indirection beyond that).
package h2config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vh2proto/engine/h2"
)

// Config is cmd/h2demo's top-level config file shape: the three
// SETTINGS IDs §6.3 defines, plus the demo-only listener/TLS knobs that
// have no home in the engine proper.
type Config struct {
	Listen string `yaml:"listen"`

	TLS struct {
		Enabled  bool     `yaml:"enabled"`
		CacheDir string   `yaml:"cache_dir"`
		Hosts    []string `yaml:"hosts"`
	} `yaml:"tls"`

	Settings struct {
		MaxConcurrentStreams *uint32 `yaml:"max_concurrent_streams"`
		InitialWindowSize    *uint32 `yaml:"initial_window_size"`
		DisableFlowControl   bool    `yaml:"disable_flow_control"`
	} `yaml:"settings"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("h2config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("h2config: parsing %s: %w", path, err)
	}
	return &c, nil
}

// Values turns the parsed settings section into an h2.Values, defaulted
// the same way h2.DefaultValues is when a field was left unset in the
// file.
func (c *Config) Values() h2.Values {
	v := h2.DefaultValues()
	if c.Settings.MaxConcurrentStreams != nil {
		v.MaxConcurrentStreams = *c.Settings.MaxConcurrentStreams
		v.HasMaxConcurrentStreams = true
	}
	if c.Settings.InitialWindowSize != nil {
		v.InitialWindowSize = *c.Settings.InitialWindowSize
	}
	if c.Settings.DisableFlowControl {
		v.FlowControlOptions = h2.FlowControlDisabled
		v.HasFlowControlOptions = true
	}
	return v
}
