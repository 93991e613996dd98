// Package config handles geomtool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Names   NamesConfig   `yaml:"names"`
	Codec   CodecConfig   `yaml:"codec"`
	Logging LoggingConfig `yaml:"logging"`
}

// NamesConfig holds name table settings.
type NamesConfig struct {
	Path     string `yaml:"path"`     // Name table file; empty means search
	Fallback string `yaml:"fallback"` // "hex" or "strict"
	Watch    bool   `yaml:"watch"`    // Reload the table when the file changes
}

// CodecConfig holds decoder settings.
type CodecConfig struct {
	Strict bool `yaml:"strict"` // Validate tags, versions, offsets and faces
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Names: NamesConfig{
			Path:     "",
			Fallback: "hex",
			Watch:    false,
		},
		Codec: CodecConfig{
			Strict: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
