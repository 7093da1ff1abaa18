package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/gicmo/home-sync/internal/catalogue"
)

// Config represents the complete home-sync configuration
type Config struct {
	AppDataRoot string          `yaml:"appdata_root"`
	Transport   TransportConfig `yaml:"transport"`
	Groups      []GroupConfig   `yaml:"groups"`
}

// TransportConfig configures the external binaries
type TransportConfig struct {
	SSH       string   `yaml:"ssh"`
	Rsync     string   `yaml:"rsync"`
	RsyncArgs []string `yaml:"rsync_args"`
}

// GroupConfig defines one catalogue group
type GroupConfig struct {
	Name  string       `yaml:"name"`
	Paths []PathConfig `yaml:"paths"`
}

// PathConfig is either a plain path string or a source/target mapping
type PathConfig struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// UnmarshalYAML accepts a scalar as shorthand for {source: <scalar>}
func (p *PathConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		p.Source = value.Value
		p.Target = ""
		return nil
	}

	type plain PathConfig
	return value.Decode((*plain)(p))
}

// DefaultPath returns $HOME/.config/home-sync/config.yaml
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "home-sync", "config.yaml"), nil
}

// Default returns the configuration used when no file exists
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when it does not exist
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.AppDataRoot = os.ExpandEnv(c.AppDataRoot)
	c.Transport.SSH = os.ExpandEnv(c.Transport.SSH)
	c.Transport.Rsync = os.ExpandEnv(c.Transport.Rsync)
	for i := range c.Transport.RsyncArgs {
		c.Transport.RsyncArgs[i] = os.ExpandEnv(c.Transport.RsyncArgs[i])
	}
	for i := range c.Groups {
		for j := range c.Groups[i].Paths {
			p := &c.Groups[i].Paths[j]
			p.Source = os.ExpandEnv(p.Source)
			p.Target = os.ExpandEnv(p.Target)
		}
	}
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.AppDataRoot == "" {
		c.AppDataRoot = catalogue.DefaultAppDataRoot
	}
	if c.Transport.SSH == "" {
		c.Transport.SSH = "ssh"
	}
	if c.Transport.Rsync == "" {
		c.Transport.Rsync = "rsync"
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.AppDataRoot == "" {
		return fmt.Errorf("appdata_root is required")
	}
	if c.Transport.SSH == "" {
		return fmt.Errorf("transport.ssh is required")
	}
	if c.Transport.Rsync == "" {
		return fmt.Errorf("transport.rsync is required")
	}

	seen := make(map[string]bool, len(c.Groups))
	for i, g := range c.Groups {
		if g.Name == "" {
			return fmt.Errorf("groups[%d].name is required", i)
		}
		if seen[g.Name] {
			return fmt.Errorf("duplicate group name: %s", g.Name)
		}
		seen[g.Name] = true

		if len(g.Paths) == 0 {
			return fmt.Errorf("group %s must list at least one path", g.Name)
		}
		for j, p := range g.Paths {
			if p.Source == "" {
				return fmt.Errorf("group %s: paths[%d].source is required", g.Name, j)
			}
		}
	}

	return nil
}

// Catalogue builds the group catalogue. Without configured groups the
// built-in catalogue is used.
func (c *Config) Catalogue() (*catalogue.Catalogue, error) {
	if len(c.Groups) == 0 {
		return catalogue.Default(), nil
	}

	groups := make([]catalogue.Group, 0, len(c.Groups))
	for _, g := range c.Groups {
		paths := make([]catalogue.PathSpec, 0, len(g.Paths))
		for _, p := range g.Paths {
			paths = append(paths, catalogue.PathSpec{Source: p.Source, Target: p.Target})
		}
		groups = append(groups, catalogue.Group{Name: g.Name, Paths: paths})
	}
	return catalogue.New(groups)
}
