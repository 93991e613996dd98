package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagNames    = flag.String("names", "", "Path to name table (json, yaml or toml)")
	flagStrict   = flag.Bool("strict", false, "Validate chunk tags, versions and offsets")
	flagFallback = flag.String("fallback", "", "Unknown hash policy: hex or strict")
	flagWatch    = flag.Bool("watch", false, "Reload the name table when it changes")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagNames != "" {
		cfg.Names.Path = *flagNames
	}
	if *flagStrict {
		cfg.Codec.Strict = true
	}
	if *flagFallback != "" {
		cfg.Names.Fallback = *flagFallback
	}
	if *flagWatch {
		cfg.Names.Watch = true
	}
}
