package config

import (
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/simgeom/internal/fsutil"
)

// UserConfigFile is where Save writes and Load looks after ./geomtool.yaml.
func UserConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Save writes the config to UserConfigFile.
func (c *Config) Save() error {
	return c.SaveTo(UserConfigFile())
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}
