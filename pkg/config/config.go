package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete uploader configuration.
//
// This structure captures all configurable aspects of the packaging pipeline:
//   - Logging level
//   - Local output directory layout
//   - Collection settings (name, metadata filename suffix, extension filter)
//   - Upload gateway selection and backend-specific options
//   - Optional Prometheus metrics exposure
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority, applied by the caller)
//  2. Environment variables (IPFS_UPLOADER_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Gateway Configuration Pattern:
// Each gateway backend defines its own configuration type. The Uploader
// section carries the selected backend type plus an untyped options map; the
// factory decodes the map into the backend's config struct, so the options
// schema lives with the backend that understands it.
type Config struct {
	// LogLevel is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// OutputDir is the local directory that receives packaged results
	OutputDir string `mapstructure:"output_dir" validate:"required"`

	// Collection controls batch-collection naming and metadata file layout
	Collection CollectionConfig `mapstructure:"collection"`

	// Uploader specifies the gateway backend type and backend-specific options
	Uploader UploaderConfig `mapstructure:"uploader"`

	// Metrics controls the optional Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CollectionConfig controls how batch runs name and key their output.
type CollectionConfig struct {
	// Name is the collection name embedded into every token's metadata
	Name string `mapstructure:"name" validate:"required"`

	// JSONSuffix appends ".json" to generated metadata filenames when true.
	// Off by default: many marketplaces resolve bare token-id paths.
	JSONSuffix bool `mapstructure:"json_suffix"`

	// ImageExtensions restricts batch enumeration to the listed extensions
	// (case-insensitive, leading dot required, e.g. ".png").
	// An empty list admits every regular file.
	ImageExtensions []string `mapstructure:"image_extensions"`
}

// UploaderConfig specifies gateway backend configuration.
//
// The Type field determines which backend is constructed. Only the options
// understood by that backend are read from the Options map.
type UploaderConfig struct {
	// Type specifies which gateway backend to use
	// Valid values: cli, api, memory
	Type string `mapstructure:"type" validate:"required,oneof=cli api memory"`

	// Options contains backend-specific configuration, decoded by the factory:
	//   - cli:    binary (default "ipfs")
	//   - api:    endpoint (default "http://127.0.0.1:5001"), timeout (default 0)
	//   - memory: no options
	Options map[string]any `mapstructure:"options"`
}

// MetricsConfig controls the optional Prometheus metrics server.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the /metrics HTTP endpoint
	Enabled bool `mapstructure:"enabled"`

	// Port is the TCP port the metrics server listens on
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (IPFS_UPLOADER_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string searches the working
//     directory, then the user config dir)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	// Read configuration file if it exists
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Set up environment variable support
	// Environment variables use IPFS_UPLOADER_ prefix and underscores
	// Example: IPFS_UPLOADER_UPLOADER_TYPE=api
	v.SetEnvPrefix("IPFS_UPLOADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Register every key so environment-only overrides are visible to
	// Unmarshal even when no config file mentions them
	v.SetDefault("log_level", "")
	v.SetDefault("output_dir", "")
	v.SetDefault("collection.name", "")
	v.SetDefault("collection.json_suffix", false)
	v.SetDefault("collection.image_extensions", []string{})
	v.SetDefault("uploader.type", "")
	v.SetDefault("uploader.options", map[string]any{})
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 0)

	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Search the working directory first, then the user config dir
		v.AddConfigPath(".")
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable - defaults and env apply
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ipfs-uploader")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "ipfs-uploader")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the init command).
func GetConfigDir() string {
	return getConfigDir()
}
