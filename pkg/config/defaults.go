package config

import "strings"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific option defaults are also applied by the backends
//     themselves, so a config assembled without this function still works
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)

	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}

	applyCollectionDefaults(&cfg.Collection)
	applyUploaderDefaults(&cfg.Uploader)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyCollectionDefaults sets collection defaults.
func applyCollectionDefaults(cfg *CollectionConfig) {
	if cfg.Name == "" {
		cfg.Name = "MetaCore"
	}
	// JSONSuffix defaults to false
	// ImageExtensions defaults to empty (every regular file)
}

// applyUploaderDefaults sets gateway backend defaults.
func applyUploaderDefaults(cfg *UploaderConfig) {
	if cfg.Type == "" {
		cfg.Type = "cli"
	}

	if cfg.Options == nil {
		cfg.Options = make(map[string]any)
	}

	// Seed the selected backend's main option so config file generation
	// shows it; the backends apply the same defaults on their own
	switch cfg.Type {
	case "cli":
		if _, ok := cfg.Options["binary"]; !ok {
			cfg.Options["binary"] = "ipfs"
		}
	case "api":
		if _, ok := cfg.Options["endpoint"]; !ok {
			cfg.Options["endpoint"] = "http://127.0.0.1:5001"
		}
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
	// Enabled defaults to false
}
