package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/internal/logger"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader/api"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader/cli"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader/memory"
)

// CreateGateway creates an upload gateway based on configuration.
//
// This factory function uses the Type field to determine which backend to
// construct, then decodes the backend-specific options from the untyped
// Options map into the backend's own config struct.
//
// Supported types:
//   - "cli": Uses pkg/uploader/cli (shells out to the daemon binary)
//   - "api": Uses pkg/uploader/api (daemon HTTP add-endpoint)
//   - "memory": Uses pkg/uploader/memory (in-process, for tests and dry runs)
//
// Exactly one backend is constructed per configuration; there is no runtime
// fallback between them.
//
// Parameters:
//   - cfg: Uploader configuration (type + options)
//
// Returns:
//   - uploader.Gateway: Constructed gateway
//   - error: Unknown type or undecodable options
func CreateGateway(cfg *UploaderConfig) (uploader.Gateway, error) {
	switch cfg.Type {
	case "cli":
		return createCLIGateway(cfg.Options)
	case "api":
		return createAPIGateway(cfg.Options)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown uploader type: %q (supported: cli, api, memory)", cfg.Type)
	}
}

// createCLIGateway creates a subprocess-backed gateway.
func createCLIGateway(options map[string]any) (uploader.Gateway, error) {
	var gwCfg cli.Config
	if err := mapstructure.Decode(options, &gwCfg); err != nil {
		return nil, fmt.Errorf("failed to decode cli uploader options: %w", err)
	}

	gw := cli.New(gwCfg)
	logger.Debug("cli gateway initialized: binary=%s", gwCfg.Binary)

	return gw, nil
}

// createAPIGateway creates an HTTP-backed gateway.
func createAPIGateway(options map[string]any) (uploader.Gateway, error) {
	var gwCfg api.Config

	// A duration hook so "timeout: 5s" in YAML decodes into time.Duration
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &gwCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode api uploader options: %w", err)
	}

	gw := api.New(gwCfg)
	logger.Debug("api gateway initialized: endpoint=%s, timeout=%v", gwCfg.Endpoint, gwCfg.Timeout)

	return gw, nil
}
