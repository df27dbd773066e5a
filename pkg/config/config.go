// Package config provides configuration loading and management for octconverter.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"gopkg.in/yaml.v3"

	"octconverter/pkg/binreader"
)

// DefaultProfile is the device profile used when none is selected.
const DefaultProfile = binreader.PrototypeZeiss

// Profile describes the raw layout produced by one acquisition device
type Profile struct {
	// HeaderSize is the number of bytes to skip before the samples
	HeaderSize int64 `yaml:"headerSize"`

	// NumSlices is the number of B-scans per volume
	NumSlices int `yaml:"numSlices"`

	// Width and Height are the per-slice dimensions
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// NumChannels is the number of samples per pixel
	NumChannels int `yaml:"numChannels"`

	// Prototype is the tag handed to the reader
	Prototype string `yaml:"prototype"`
}

// ReaderParams builds reader parameters for path from the profile.
func (p Profile) ReaderParams(path string) binreader.Params {
	return binreader.Params{
		Path:        path,
		HeaderSize:  p.HeaderSize,
		NumSlices:   p.NumSlices,
		Width:       p.Width,
		Height:      p.Height,
		NumChannels: p.NumChannels,
		Prototype:   p.Prototype,
	}
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Profiles maps device names to raw layouts
	Profiles map[string]Profile `yaml:"profiles"`

	// Output parameters
	Output struct {
		// Compression is the EYE payload compression: none, lz4 or zstd
		Compression string `yaml:"compression"`

		// PreviewQuality is the JPEG quality of preview slices
		PreviewQuality int `yaml:"previewQuality"`
	} `yaml:"output"`

	// Batch parameters
	Batch struct {
		// Workers is the number of files converted concurrently. Zero or
		// less means one per CPU of the machine running the batch.
		Workers int `yaml:"workers"`
	} `yaml:"batch"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`

		// Format is text or json
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Profiles = map[string]Profile{
		// the OCT machine the converter was written for
		DefaultProfile: {
			HeaderSize:  0,
			NumSlices:   2044,
			Width:       2048,
			Height:      1536,
			NumChannels: 1,
			Prototype:   binreader.PrototypeZeiss,
		},
		// generic reader defaults: three-channel volumes, no rotation
		"generic": {
			HeaderSize:  0,
			NumSlices:   100,
			Width:       1000,
			Height:      512,
			NumChannels: 3,
			Prototype:   "generic",
		},
	}

	cfg.Output.Compression = "zstd"
	cfg.Output.PreviewQuality = 90

	cfg.Batch.Workers = 0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	return cfg
}

// Profile returns the named device profile
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (available: %v)", name, c.ProfileNames())
	}
	return p, nil
}

// BatchWorkers resolves Batch.Workers against the current machine
func (c *Config) BatchWorkers() int {
	if c.Batch.Workers > 0 {
		return c.Batch.Workers
	}
	return runtime.NumCPU()
}

// ProfileNames returns the configured profile names in sorted order
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML. Profiles from the file are merged over the defaults.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
