// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// A batch loader is a run-to-completion job, not a long-lived scrape target,
// so metrics are collected in a private registry and pushed to a Pushgateway
// at flush time rather than exposed on an HTTP endpoint. All
// Prometheus-specific dependencies stay inside this package; the rest of the
// project depends only on the metrics.Backend abstraction.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"vcfdb/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	rowCounter   *prometheus.CounterVec // "vcfdb_rows_total"
	batchCounter *prometheus.CounterVec // "vcfdb_batches_total"
	flushSeconds *prometheus.HistogramVec
	faultCounter prometheus.Counter // "vcfdb_decode_faults_total"
}

// NewBackend constructs a Pushgateway backend. jobName groups the pushed
// metrics; gatewayURL is required.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "vcfdb"
	}

	reg := prometheus.NewRegistry()

	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcfdb_rows_total",
			Help: "Row counts per table and kind (inserted, rejected).",
		},
		[]string{"table", "kind"},
	)
	batchCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcfdb_batches_total",
			Help: "Total number of batches flushed, per table.",
		},
		[]string{"table"},
	)
	flushSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vcfdb_batch_flush_seconds",
			Help:    "Wall time of one batch flush, per table.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"table"},
	)
	faultCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vcfdb_decode_faults_total",
			Help: "Annotation entries skipped because they failed to decode.",
		},
	)

	for _, c := range []prometheus.Collector{rowCounter, batchCounter, flushSeconds, faultCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		rowCounter:   rowCounter,
		batchCounter: batchCounter,
		flushSeconds: flushSeconds,
		faultCounter: faultCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "vcfdb_rows_total":
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["table"], labels["kind"]).Add(delta)

	case "vcfdb_batches_total":
		if b.batchCounter == nil {
			return
		}
		b.batchCounter.WithLabelValues(labels["table"]).Add(delta)

	case "vcfdb_decode_faults_total":
		if b.faultCounter == nil {
			return
		}
		b.faultCounter.Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "vcfdb_batch_flush_seconds" || b.flushSeconds == nil {
		return
	}
	b.flushSeconds.WithLabelValues(labels["table"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
