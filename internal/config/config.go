package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/procvcr/procvcr/filter"
)

// Config holds the global procvcr configuration, shared by the test
// adapter and the CLI.
type Config struct {
	// Mode is the default interception mode when PROCVCR_MODE is unset:
	// disable, record, replay or fallback.
	Mode string `yaml:"mode"`

	// CassetteDir is where per-test cassettes live, relative to the
	// package under test unless absolute.
	CassetteDir string `yaml:"cassette_dir"`

	// Filters are applied to every invocation before matching and before
	// persistence, in order.
	Filters []filter.Config `yaml:"filters"`
}

// DefaultConfig returns the configuration used when no config file
// exists: no interception, per-package testdata cassettes, and the two
// builtin normalizers.
func DefaultConfig() *Config {
	return &Config{
		Mode:        "disable",
		CassetteDir: filepath.Join("testdata", "cassettes"),
		Filters: []filter.Config{
			{Name: "path"},
			{Name: "interpreter"},
		},
	}
}

// Load reads the config from the standard location
// (~/.config/procvcr/config.yaml). If the file doesn't exist, returns
// the default config.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(filepath.Join(home, ".config", "procvcr", "config.yaml"))
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Expand ~ in the cassette dir.
	if cfg.CassetteDir != "" && cfg.CassetteDir[0] == '~' {
		home, _ := os.UserHomeDir()
		cfg.CassetteDir = filepath.Join(home, cfg.CassetteDir[1:])
	}

	return cfg, nil
}

// CompileFilters builds the filter pipeline named by the config.
func (c *Config) CompileFilters() (filter.Pipeline, error) {
	return filter.Compile(filter.NewRegistry(), c.Filters)
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "procvcr", "config.yaml")
}
