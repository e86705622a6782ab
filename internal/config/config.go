// Package config defines the canonical, JSON-serializable configuration model
// for a load run. It is intentionally small, explicit, and dependency-free:
// a Config can come from a JSON file, from CLI flags, or both, and passes
// through the program without additional glue code.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Config describes one load run.
type Config struct {
	// Job names the run for metrics labeling and log prefixes.
	Job string `json:"job"`

	// VCF is the input path, plain or gzip. Required.
	VCF string `json:"vcf"`

	// Ped optionally points at a pedigree file describing the cohort.
	Ped string `json:"ped"`

	DB DBConfig `json:"db"`

	// Exclude lists INFO attributes to drop from the inferred schema.
	Exclude []string `json:"exclude"`

	// Expand lists genotype attributes to additionally unpack into
	// per-sample wide tables.
	Expand []string `json:"expand"`

	// LegacyCompression selects the zlib blob scheme instead of snappy,
	// for compatibility with databases written by older tooling.
	LegacyCompression bool `json:"legacy_compression"`

	Metrics MetricsConfig `json:"metrics"`
	Runtime RuntimeConfig `json:"runtime"`
}

// DBConfig selects the destination database.
type DBConfig struct {
	// Kind is a registered backend name: sqlite, postgres, mysql, mssql.
	Kind string `json:"kind"`

	// DSN is the driver connection string.
	DSN string `json:"dsn"`
}

// MetricsConfig selects an optional metrics backend.
type MetricsConfig struct {
	// Backend is "", "prometheus" or "datadog".
	Backend string `json:"backend"`

	// PushgatewayURL configures the prometheus backend.
	PushgatewayURL string `json:"pushgateway_url"`

	// StatsdAddr configures the datadog backend, e.g. "127.0.0.1:8125".
	StatsdAddr string `json:"statsd_addr"`
}

// RuntimeConfig controls concurrency, batching, and channel buffer sizes.
// Zero values take the built-in defaults.
type RuntimeConfig struct {
	TransformWorkers int `json:"transform_workers"`
	BatchSize        int `json:"batch_size"`
	SubChunkSize     int `json:"sub_chunk_size"`
	MaxDirectRows    int `json:"max_direct_rows"`
	PrefixSize       int `json:"prefix_size"`
	ChannelBuffer    int `json:"channel_buffer"`
}

// Load decodes a Config from a JSON file.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	var c Config
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return c, nil
}

// ParseDBURL turns a user-supplied database URL into a DBConfig. Recognized
// schemes map onto backend kinds; anything without a scheme is treated as a
// SQLite file path, so the zero-setup case stays a bare filename.
func ParseDBURL(raw string) DBConfig {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DBConfig{Kind: "postgres", DSN: raw}
	case strings.HasPrefix(raw, "mysql://"):
		// the mysql driver wants its own DSN form, not a URL
		return DBConfig{Kind: "mysql", DSN: strings.TrimPrefix(raw, "mysql://")}
	case strings.HasPrefix(raw, "sqlserver://"), strings.HasPrefix(raw, "mssql://"):
		return DBConfig{Kind: "mssql", DSN: strings.Replace(raw, "mssql://", "sqlserver://", 1)}
	case strings.HasPrefix(raw, "sqlite://"):
		return DBConfig{Kind: "sqlite", DSN: strings.TrimPrefix(raw, "sqlite://")}
	default:
		return DBConfig{Kind: "sqlite", DSN: raw}
	}
}
