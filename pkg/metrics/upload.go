package metrics

import "time"

// UploadMetrics provides observability for upload gateway and workflow
// operations.
//
// Implementations can collect metrics about uploads, transferred bytes, and
// whole workflow runs. This interface is optional - if not provided to the
// orchestrator, a no-op implementation is used with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewUploadMetrics()
//	orch := workflow.New(gw, cfg, workflow.WithMetrics(m))
//
//	// Without metrics (no-op)
//	orch := workflow.New(gw, cfg)
type UploadMetrics interface {
	// ObserveUpload records a completed gateway operation.
	//
	// Parameters:
	//   - backend: Gateway backend name ("cli", "api", "memory")
	//   - kind: Operation kind ("file", "bytes", "directory")
	//   - bytes: Content size transferred, 0 when unknown
	//   - duration: Time taken by the operation
	//   - err: Error if the operation failed, nil if successful
	ObserveUpload(backend, kind string, bytes int, duration time.Duration, err error)

	// ObserveWorkflow records a completed workflow run.
	//
	// Parameters:
	//   - kind: Workflow kind ("single", "batch")
	//   - duration: Wall time of the whole run
	//   - err: Error if the run aborted, nil if it completed
	ObserveWorkflow(kind string, duration time.Duration, err error)
}

// NewNoopUploadMetrics returns an UploadMetrics implementation that records
// nothing, for use when metrics collection is disabled.
func NewNoopUploadMetrics() UploadMetrics {
	return noopUploadMetrics{}
}

// noopUploadMetrics is a no-op implementation of UploadMetrics with zero overhead.
type noopUploadMetrics struct{}

func (noopUploadMetrics) ObserveUpload(backend, kind string, bytes int, duration time.Duration, err error) {
}
func (noopUploadMetrics) ObserveWorkflow(kind string, duration time.Duration, err error) {}
