// Package config loads and validates conmets configuration.
// Configuration lives in a YAML file; a handful of environment
// variables override individual fields for scripted use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all conmets configuration.
type Config struct {
	// Dataset is the default dataset file path. The positional CLI
	// argument takes precedence when given.
	Dataset string `yaml:"dataset"`

	// InfrastructureHosts are IP addresses of internal tooling
	// (mirrors, CI builders, security scanners). Their downloads are
	// reported separately from end-user traffic.
	InfrastructureHosts []string `yaml:"infrastructure_hosts"`

	// InternalHostSpecs are IP prefixes or regex fragments identifying
	// on-site hosts. Each is anchored at the start of the address when
	// matched.
	InternalHostSpecs []string `yaml:"internal_host_specs"`

	// IgnoreHosts are IP addresses dropped entirely at parse time.
	IgnoreHosts []string `yaml:"ignore_hosts"`

	// ChannelAliases maps channel names as they appear in log paths to
	// their canonical names.
	ChannelAliases map[string]string `yaml:"channel_aliases"`

	Plot    PlotConfig    `yaml:"plot"`
	PyPI    PyPIConfig    `yaml:"pypi"`
	Logging LoggingConfig `yaml:"logging"`
}

// PlotConfig configures chart generation.
type PlotConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
}

// PyPIConfig configures the PyPI availability probe used to annotate
// report output.
type PyPIConfig struct {
	CheckEnabled bool   `yaml:"check_enabled"`
	Timeout      string `yaml:"timeout"`
	Concurrency  int    `yaml:"concurrency"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Dataset: "conmets.db",

		ChannelAliases: map[string]string{
			"conda-dev": "astroconda-dev",
		},

		Plot: PlotConfig{
			Enabled:   true,
			OutputDir: ".",
		},

		PyPI: PyPIConfig{
			CheckEnabled: true,
			Timeout:      "10s",
			Concurrency:  8,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the configuration file path searched when the
// --config flag is not given: the CONMETS_CONFIG environment variable
// when set, otherwise conmets.yaml in the working directory.
func DefaultPath() string {
	if v := os.Getenv("CONMETS_CONFIG"); v != "" {
		return v
	}
	return "conmets.yaml"
}

// Load loads configuration from a YAML file, applying defaults for any
// fields the file omits.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides overrides select fields from the environment.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CONMETS_DATASET"); v != "" {
		c.Dataset = v
	}
	if v := os.Getenv("CONMETS_PLOT_DIR"); v != "" {
		c.Plot.OutputDir = v
	}
}

// Validate checks the configuration for errors that would otherwise
// surface halfway through a run.
func (c *Config) Validate() error {
	if c.Dataset == "" {
		return fmt.Errorf("dataset path must not be empty")
	}
	if _, err := c.InternalPatterns(); err != nil {
		return err
	}
	if c.PyPI.Timeout != "" {
		if _, err := time.ParseDuration(c.PyPI.Timeout); err != nil {
			return fmt.Errorf("invalid pypi timeout %q: %w", c.PyPI.Timeout, err)
		}
	}
	if c.PyPI.Concurrency < 0 {
		return fmt.Errorf("pypi concurrency must not be negative")
	}
	return nil
}

// InternalPatterns compiles the internal host specs, each anchored at
// the start of the address.
func (c *Config) InternalPatterns() ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(c.InternalHostSpecs))
	for _, spec := range c.InternalHostSpecs {
		re, err := regexp.Compile("^" + spec)
		if err != nil {
			return nil, fmt.Errorf("invalid internal host spec %q: %w", spec, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// PyPITimeout returns the parsed PyPI probe timeout, falling back to
// the default when unset.
func (c *Config) PyPITimeout() time.Duration {
	d, err := time.ParseDuration(c.PyPI.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
