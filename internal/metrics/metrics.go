// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the load pipeline.
//
// It mirrors the storage abstraction pattern: a narrow Backend interface, a
// global pluggable backend defaulting to a no-op implementation, and concrete
// metric systems (Prometheus Pushgateway, Datadog) isolated in subpackages.
// Metric calls are always safe, configured backend or not.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordRows increments a table-level row counter. Typical kinds:
//   - "inserted"
//   - "rejected" (rows that failed the degraded retry)
func RecordRows(table, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("vcfdb_rows_total", float64(delta), Labels{
		"table": table,
		"kind":  kind,
	})
}

// RecordBatch counts one flushed batch and its wall time.
func RecordBatch(table string, d time.Duration) {
	backend.IncCounter("vcfdb_batches_total", 1, Labels{"table": table})
	backend.ObserveHistogram("vcfdb_batch_flush_seconds", d.Seconds(), Labels{"table": table})
}

// RecordDecodeFaults counts skipped annotation entries.
func RecordDecodeFaults(delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("vcfdb_decode_faults_total", float64(delta), nil)
}

// LoadObserver adapts the global backend to the loader's observer hooks.
type LoadObserver struct{}

func (LoadObserver) BatchFlushed(table string, rows int64, elapsed time.Duration) {
	RecordRows(table, "inserted", rows)
	RecordBatch(table, elapsed)
}

func (LoadObserver) RowsDegraded(table string, failed int) {
	RecordRows(table, "rejected", int64(failed))
}
