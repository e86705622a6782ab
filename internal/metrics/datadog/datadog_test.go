package datadog

import (
	"sort"
	"strings"
	"testing"

	"vcfdb/internal/metrics"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("want error for missing Addr")
	}

	// UDP clients construct and write without a listening server, so the
	// full option path (namespace + global tags) is exercisable here.
	b, err := NewBackend(Config{
		Addr:       "127.0.0.1:8125",
		Namespace:  "vcfdb.",
		GlobalTags: []string{"env:test", "service:vcfdb"},
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter("vcfdb_rows_total", 3, metrics.Labels{"table": "variants"})
	b.ObserveHistogram("vcfdb_batch_flush_seconds", 0.25, metrics.Labels{"table": "variants"})
	if err := b.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	if got := labelsToTags(nil); got != nil {
		t.Fatalf("labelsToTags(nil) = %v; want nil", got)
	}
	got := labelsToTags(metrics.Labels{"table": "variants", "kind": "bulk"})
	sort.Strings(got)
	want := "kind:bulk,table:variants"
	if strings.Join(got, ",") != want {
		t.Fatalf("labelsToTags = %v; want %s", got, want)
	}
}
