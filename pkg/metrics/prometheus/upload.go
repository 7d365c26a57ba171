// Package prometheus contains the Prometheus-backed implementations of the
// metrics interfaces in pkg/metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/qiaopengjun5162/polyglot-ipfs-uploader/pkg/metrics"
)

// uploadMetrics is the Prometheus implementation of metrics.UploadMetrics.
type uploadMetrics struct {
	uploadsTotal     *prometheus.CounterVec
	uploadBytesTotal *prometheus.CounterVec
	uploadDuration   *prometheus.HistogramVec
	workflowRuns     *prometheus.CounterVec
	workflowDuration *prometheus.HistogramVec
}

// NewUploadMetrics creates a new Prometheus-backed UploadMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewUploadMetrics() metrics.UploadMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopUploadMetrics()
	}

	reg := metrics.GetRegistry()

	return &uploadMetrics{
		uploadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipfs_uploader_uploads_total",
				Help: "Total number of gateway uploads by backend, kind, and status",
			},
			[]string{"backend", "kind", "status"},
		),
		uploadBytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipfs_uploader_upload_bytes_total",
				Help: "Total bytes handed to the storage daemon",
			},
			[]string{"backend", "kind"},
		),
		uploadDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "ipfs_uploader_upload_duration_seconds",
				Help: "Duration of gateway uploads in seconds",
				Buckets: []float64{
					0.01, // 10ms
					0.05, // 50ms
					0.1,  // 100ms
					0.5,  // 500ms
					1.0,  // 1s
					5.0,  // 5s
					30.0, // 30s
					60.0, // 1m
				},
			},
			[]string{"backend", "kind"},
		),
		workflowRuns: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipfs_uploader_workflow_runs_total",
				Help: "Total number of workflow runs by kind and status",
			},
			[]string{"kind", "status"},
		),
		workflowDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "ipfs_uploader_workflow_duration_seconds",
				Help: "Wall time of whole workflow runs in seconds",
				Buckets: []float64{
					0.1,   // 100ms
					1.0,   // 1s
					10.0,  // 10s
					60.0,  // 1m
					300.0, // 5m
				},
			},
			[]string{"kind"},
		),
	}
}

func (m *uploadMetrics) ObserveUpload(backend, kind string, bytes int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.uploadsTotal.WithLabelValues(backend, kind, status).Inc()
	m.uploadDuration.WithLabelValues(backend, kind).Observe(duration.Seconds())
	if bytes > 0 {
		m.uploadBytesTotal.WithLabelValues(backend, kind).Add(float64(bytes))
	}
}

func (m *uploadMetrics) ObserveWorkflow(kind string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.workflowRuns.WithLabelValues(kind, status).Inc()
	m.workflowDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
