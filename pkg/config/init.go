package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a commented default configuration file to the user
// config directory and returns its path.
//
// The generated file reflects the defaults produced by ApplyDefaults, so it
// round-trips through Load unchanged. An existing file is never overwritten
// unless force is true.
//
// Parameters:
//   - force: Overwrite an existing config file
//
// Returns:
//   - string: Path of the written config file
//   - error: If the file exists (without force) or cannot be written
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()

	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("config file already exists at %s (use force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateDefaultYAML()
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}

// generateDefaultYAML renders the default configuration as annotated YAML.
//
// The document is assembled as a yaml.Node tree rather than marshalled from
// the Config struct: node keys must match the mapstructure tags Load expects,
// and nodes carry the option comments a struct marshal cannot express.
func generateDefaultYAML() ([]byte, error) {
	var cfg Config
	ApplyDefaults(&cfg)

	root := &yaml.Node{Kind: yaml.MappingNode}

	addScalar(root, "log_level", cfg.LogLevel,
		"Minimum log level: DEBUG, INFO, WARN, ERROR")
	addScalar(root, "output_dir", cfg.OutputDir,
		"Local directory that receives packaged images and metadata")

	collection := &yaml.Node{Kind: yaml.MappingNode}
	addScalar(collection, "name", cfg.Collection.Name,
		"Collection name embedded into every token's metadata")
	addScalar(collection, "json_suffix", cfg.Collection.JSONSuffix,
		"Append .json to generated metadata filenames")
	addScalar(collection, "image_extensions", cfg.Collection.ImageExtensions,
		"Restrict batch enumeration to these extensions, e.g. [.png, .jpg]; empty = all regular files")
	addMapping(root, "collection", collection, "Batch-collection settings")

	upl := &yaml.Node{Kind: yaml.MappingNode}
	addScalar(upl, "type", cfg.Uploader.Type,
		"Gateway backend: cli (daemon binary), api (daemon HTTP endpoint), memory (in-process, for dry runs)")
	options := &yaml.Node{Kind: yaml.MappingNode}
	addScalar(options, "binary", "ipfs",
		"cli: the daemon executable to invoke")
	addScalar(options, "endpoint", "http://127.0.0.1:5001",
		"api: the daemon RPC address")
	addMapping(upl, "options", options, "Backend-specific options; only the selected backend's keys are read")
	addMapping(root, "uploader", upl, "Upload gateway selection")

	metricsNode := &yaml.Node{Kind: yaml.MappingNode}
	addScalar(metricsNode, "enabled", cfg.Metrics.Enabled,
		"Expose Prometheus metrics at /metrics")
	addScalar(metricsNode, "port", cfg.Metrics.Port,
		"Metrics server port")
	addMapping(root, "metrics", metricsNode, "Optional Prometheus metrics")

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		Content:     []*yaml.Node{root},
		HeadComment: "IPFS Uploader Configuration File\nValues here can be overridden with IPFS_UPLOADER_* environment variables.",
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render default config: %w", err)
	}

	return out, nil
}

// addScalar appends a key plus an encoded scalar/sequence value to a mapping
// node, with the comment above the key.
func addScalar(mapping *yaml.Node, key string, value any, comment string) {
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key, HeadComment: comment}

	valueNode := &yaml.Node{}
	_ = valueNode.Encode(value)

	mapping.Content = append(mapping.Content, keyNode, valueNode)
}

// addMapping appends a key plus a nested mapping to a mapping node.
func addMapping(mapping *yaml.Node, key string, value *yaml.Node, comment string) {
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key, HeadComment: comment}
	mapping.Content = append(mapping.Content, keyNode, value)
}
