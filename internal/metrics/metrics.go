package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposed on /metrics.
var (
	ActiveBatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mrsup_active_batches",
			Help: "A gauge of upload batches currently being relayed.",
		})
	UploadCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrsup_uploads_total",
			Help: "Number of files relayed to XNAT, by outcome.",
		},
		[]string{"status"})
	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mrsup_upload_bytes_total",
			Help: "Bytes of file content relayed to XNAT.",
		})
	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mrsup_upload_duration_seconds",
			Help:    "A histogram of per-file relay durations.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		})
)
