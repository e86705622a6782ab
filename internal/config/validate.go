// This file adds a lightweight linter/validator for Config values: static
// checks over a decoded Config returning a list of issues that callers can
// surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into the
// config (e.g. "db.kind", "expand[1]").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is severity error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// expandable are the genotype attributes that may be unpacked into per-sample
// wide tables. gts and gt_phases stay blob-only: a per-sample text or bool
// column per variant has no query value.
var expandable = map[string]bool{
	"gt_types":      true,
	"gt_depths":     true,
	"gt_ref_depths": true,
	"gt_alt_depths": true,
	"gt_quals":      true,
}

// Validate performs static validation of a Config. It does not mutate the
// config; callers decide whether warnings are fatal.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.VCF) == "" {
		issues = append(issues, Issue{SeverityError, "vcf", "input path must not be empty"})
	}

	if strings.TrimSpace(c.DB.Kind) == "" {
		issues = append(issues, Issue{SeverityError, "db.kind", "db.kind must not be empty"})
	} else {
		known := map[string]bool{"sqlite": true, "postgres": true, "mysql": true, "mssql": true}
		if !known[c.DB.Kind] {
			issues = append(issues, Issue{SeverityWarning, "db.kind",
				fmt.Sprintf("unknown backend %q; ensure a matching implementation is registered", c.DB.Kind)})
		}
	}
	if strings.TrimSpace(c.DB.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "db.dsn", "db.dsn must not be empty"})
	}

	for i, field := range c.Expand {
		if !expandable[field] {
			issues = append(issues, Issue{SeverityError, fmt.Sprintf("expand[%d]", i),
				fmt.Sprintf("%q is not an expandable genotype attribute", field)})
		}
	}

	issues = append(issues, validateMetrics(c.Metrics)...)
	issues = append(issues, validateRuntime(c.Runtime)...)
	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "prometheus", "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url",
				"prometheus backend requires a pushgateway URL"})
		}
	case "datadog":
		if strings.TrimSpace(m.StatsdAddr) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.statsd_addr",
				"datadog backend requires a statsd address"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "metrics.backend",
			fmt.Sprintf("unknown metrics backend %q", m.Backend)})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	check := func(path string, v int) {
		if v < 0 {
			issues = append(issues, Issue{SeverityError, path, "must not be negative"})
		}
	}
	check("runtime.transform_workers", r.TransformWorkers)
	check("runtime.batch_size", r.BatchSize)
	check("runtime.sub_chunk_size", r.SubChunkSize)
	check("runtime.max_direct_rows", r.MaxDirectRows)
	check("runtime.prefix_size", r.PrefixSize)
	check("runtime.channel_buffer", r.ChannelBuffer)

	if r.BatchSize > 0 && r.SubChunkSize > r.BatchSize {
		issues = append(issues, Issue{SeverityWarning, "runtime.sub_chunk_size",
			"larger than batch_size; sub-chunking will never trigger"})
	}
	return issues
}
