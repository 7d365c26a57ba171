// Command ipfs-uploader packages local image files into NFT metadata and
// uploads both the images and the generated metadata to a local IPFS daemon.
//
// Exactly one mode flag must be given per invocation:
//
//	ipfs-uploader -single art/cat.jpg        package one image
//	ipfs-uploader -batch art/collection/     package a whole directory
//	ipfs-uploader -init-config               write a default config file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/internal/logger"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/config"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/metrics"
	metricsprom "github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/metrics/prometheus"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/workflow"
)

// version is stamped by the build; "dev" for local builds.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Mode flags
	singlePath := flag.String("single", "", "Package one image file")
	batchDir := flag.String("batch", "", "Package every image in a directory as a collection")
	initConfig := flag.Bool("init-config", false, "Write a default config file and exit")
	showVersion := flag.Bool("version", false, "Print the version and exit")

	// Overrides
	configPath := flag.String("config", "", "Path to config file (default: ./config.yaml, then user config dir)")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	outputDir := flag.String("output", "", "Output directory override")
	force := flag.Bool("force", false, "Overwrite an existing config file (with -init-config)")

	flag.Parse()

	if *showVersion {
		fmt.Printf("ipfs-uploader %s\n", version)
		return 0
	}

	// Exactly one mode per invocation
	modes := 0
	for _, set := range []bool{*singlePath != "", *batchDir != "", *initConfig} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of -single, -batch, or -init-config must be given")
		flag.Usage()
		return 1
	}

	if *initConfig {
		path, err := config.InitConfig(*force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "init-config failed: %v\n", err)
			return 1
		}
		fmt.Printf("Config file written to %s\n", path)
		return 0
	}

	// ========================================================================
	// Load configuration and apply flag overrides
	// ========================================================================

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	logger.SetLevel(cfg.LogLevel)
	logger.Debug("Configuration loaded: uploader=%s, output=%s", cfg.Uploader.Type, cfg.OutputDir)

	// Cancel the run on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ========================================================================
	// Optional metrics
	// ========================================================================

	uploadMetrics := metrics.NewNoopUploadMetrics()
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		uploadMetrics = metricsprom.NewUploadMetrics()

		srv := metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port})
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Warn("Metrics server: %v", err)
			}
		}()
	}

	// ========================================================================
	// Build the gateway and orchestrator, then dispatch
	// ========================================================================

	gw, err := config.CreateGateway(&cfg.Uploader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create upload gateway: %v\n", err)
		return 1
	}

	orch := workflow.New(gw, workflow.Config{
		OutputDir:       cfg.OutputDir,
		CollectionName:  cfg.Collection.Name,
		JSONSuffix:      cfg.Collection.JSONSuffix,
		ImageExtensions: cfg.Collection.ImageExtensions,
	},
		workflow.WithMetrics(uploadMetrics),
		workflow.WithBackendName(cfg.Uploader.Type),
	)

	switch {
	case *singlePath != "":
		return runSingle(ctx, orch, *singlePath)
	default:
		return runBatch(ctx, orch, *batchDir)
	}
}

// runSingle executes the single-item workflow and reports the result.
func runSingle(ctx context.Context, orch *workflow.Orchestrator, imagePath string) int {
	result, err := orch.RunSingle(ctx, imagePath)
	if err != nil {
		return reportFailure(err)
	}

	fmt.Printf("Image CID:    %s\n", result.ImageCID)
	fmt.Printf("Metadata CID: %s\n", result.MetadataCID)
	fmt.Printf("Token URI:    %s\n", result.TokenURI)
	fmt.Printf("Local copy:   %s\n", result.OutputDir)
	return 0
}

// runBatch executes the batch workflow and reports the result.
func runBatch(ctx context.Context, orch *workflow.Orchestrator, imagesDir string) int {
	result, err := orch.RunBatch(ctx, imagesDir)
	if err != nil {
		return reportFailure(err)
	}

	fmt.Printf("Images CID:   %s\n", result.ImagesCID)
	fmt.Printf("Metadata CID: %s\n", result.MetadataCID)
	fmt.Printf("Output dir:   %s\n", result.OutputDir)
	for _, token := range result.Tokens {
		fmt.Printf("  token %-6d %s -> %s/%d\n",
			token.TokenID, token.Filename, result.MetadataCID.URI(), token.TokenID)
	}
	return 0
}

// reportFailure prints a workflow error and picks the exit message for the
// common failure kinds. The process always exits cleanly with status 1; an
// unreachable daemon is a reported condition, not a crash.
func reportFailure(err error) int {
	switch {
	case errors.Is(err, uploader.ErrConnectionFailed):
		fmt.Fprintf(os.Stderr, "storage daemon is not reachable: %v\n", err)
		fmt.Fprintln(os.Stderr, "is the daemon running? (try: ipfs daemon)")
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "run cancelled")
	default:
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
	}
	return 1
}
