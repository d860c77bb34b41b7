// Package config handles the YAML configuration file shared by the commands.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/jonnekleijer/geoconv"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Database string `yaml:"database,omitempty" json:"database,omitempty"` // external SRID database, embedded when empty
	Source   int    `yaml:"source" json:"source"`
	Target   int    `yaml:"target" json:"target"`
	Indent   int    `yaml:"indent" json:"indent"` // 0, 2 or 4 spaces
	Server   Server `yaml:"server" json:"server"`
}

// Server holds HTTP server settings.
type Server struct {
	Listen string `yaml:"listen" json:"listen"`

	// Maximum request body size in bytes.
	MaxBody int64 `yaml:"max_body,omitempty" json:"max_body,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source: geoconv.DefaultSourcePreset().Code,
		Target: geoconv.DefaultTargetPreset().Code,
		Indent: 2,
		Server: Server{
			Listen:  ":8080",
			MaxBody: 10 << 20,
		},
	}
}

// Load reads and parses the YAML configuration file from the specified path.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Source <= 0 {
		return fmt.Errorf("source must be a positive EPSG code, got %d", c.Source)
	}
	if c.Target <= 0 {
		return fmt.Errorf("target must be a positive EPSG code, got %d", c.Target)
	}
	if _, err := geoconv.ParseIndentation(c.Indent); err != nil {
		return err
	}
	if c.Server.Listen == "" {
		return errors.New("server.listen must not be empty")
	}
	if c.Server.MaxBody < 0 {
		return fmt.Errorf("server.max_body must not be negative, got %d", c.Server.MaxBody)
	}
	return nil
}

// Indentation returns the configured GeoJSON indentation.
func (c *Config) Indentation() geoconv.Indentation {
	ind, err := geoconv.ParseIndentation(c.Indent)
	if err != nil {
		return geoconv.IndentTwoSpaces
	}
	return ind
}

// RegistryOptions returns registry options for the configured database.
func (c *Config) RegistryOptions() geoconv.RegistryOptions {
	opts := geoconv.DefaultRegistryOptions()
	if c.Database != "" {
		opts.DatabasePath = c.Database
	}
	return opts
}
