package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/simgeom/pkg/namemap"
)

// NamesFile is the default name table file name.
const NamesFile = "hashmap.json"

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if _, err := namemap.ParseFallbackPolicy(cfg.Names.Fallback); err != nil {
		return nil, fmt.Errorf("names.fallback: %w", err)
	}

	return cfg, nil
}

// FallbackPolicy returns the configured unknown-hash policy.
func (c *Config) FallbackPolicy() namemap.FallbackPolicy {
	p, err := namemap.ParseFallbackPolicy(c.Names.Fallback)
	if err != nil {
		return namemap.FallbackHex
	}
	return p
}

// NamesPath returns the name table location: the configured path, else
// ./hashmap.json when present, else hashmap.json in ConfigDir.
func (c *Config) NamesPath() string {
	if c.Names.Path != "" {
		return c.Names.Path
	}
	if _, err := os.Stat(NamesFile); err == nil {
		return NamesFile
	}
	return filepath.Join(ConfigDir(), NamesFile)
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./geomtool.yaml",
		UserConfigFile(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "SimGeom")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "SimGeom")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "simgeom")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "simgeom")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
