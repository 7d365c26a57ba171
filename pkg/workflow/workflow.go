// Package workflow sequences the upload gateway, metadata builder, and
// directory mirror into the two packaging runs: single-item and
// batch-collection.
//
// Both runs are strictly linear: a liveness probe, then uploads and local
// persistence in a fixed order, with the first error aborting the whole run.
// Nothing is retried and nothing already written is rolled back, so partial
// state after a failure is exactly what the completed steps produced.
package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/metrics"
	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/uploader"
)

// Config carries the orchestration settings.
//
// The JSON-suffix toggle lives here, on the value passed in at construction,
// never in package state: orchestrators with different settings coexist,
// which is how the tests exercise both filename shapes side by side.
type Config struct {
	// OutputDir is the local directory that receives packaged results.
	// Default: "output"
	OutputDir string

	// CollectionName names the collection in batch metadata.
	// Default: "MetaCore"
	CollectionName string

	// JSONSuffix appends ".json" to generated metadata filenames when true.
	JSONSuffix bool

	// ImageExtensions restricts batch enumeration to the listed extensions
	// (case-insensitive, with leading dot). Empty admits every regular file.
	ImageExtensions []string
}

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.CollectionName == "" {
		c.CollectionName = "MetaCore"
	}
}

// Orchestrator runs packaging workflows against one upload gateway.
//
// An orchestrator holds no mutable state across runs; independent instances
// with independent output directories never interfere.
type Orchestrator struct {
	gw      uploader.Gateway
	cfg     Config
	metrics metrics.UploadMetrics
	backend string
	now     func() time.Time
}

// Option customizes an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithMetrics attaches an UploadMetrics implementation. Without it, a no-op
// implementation is used.
func WithMetrics(m metrics.UploadMetrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithBackendName sets the backend label attached to upload metrics
// (typically the configured uploader type).
func WithBackendName(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.backend = name
		}
	}
}

// WithClock injects the time source used for batch collection directory
// names, so tests control the timestamps instead of sleeping between runs.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an Orchestrator over the given gateway.
func New(gw uploader.Gateway, cfg Config, opts ...Option) *Orchestrator {
	cfg.applyDefaults()

	o := &Orchestrator{
		gw:      gw,
		cfg:     cfg,
		metrics: metrics.NewNoopUploadMetrics(),
		backend: "gateway",
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// metadataFileName returns the local filename for a metadata record keyed by
// key (an image stem or a token id rendered in decimal).
func (o *Orchestrator) metadataFileName(key string) string {
	if o.cfg.JSONSuffix {
		return key + ".json"
	}
	return key
}

// writeFile persists data, classifying failures as local I/O errors.
func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %v: %w", path, err, uploader.ErrIO)
	}
	return nil
}

// ensureDir creates a directory with parents, classifying failures as local
// I/O errors.
func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %v: %w", path, err, uploader.ErrIO)
	}
	return nil
}

// fileSize reports a file's size for metrics, 0 when it cannot be read.
func fileSize(path string) int {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return int(info.Size())
}

// copyLocalFile byte-copies one regular file into a directory that already
// exists, keeping its base name.
func copyLocalFile(src, dstDir string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %v: %w", src, err, uploader.ErrIO)
	}

	dst := filepath.Join(dstDir, filepath.Base(src))
	if err := writeFile(dst, data); err != nil {
		return "", err
	}

	return dst, nil
}
