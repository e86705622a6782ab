package main

import (
	"testing"

	"vcfdb/internal/config"
)

// The -db flag maps its URL onto the run config's DB block in one step.
func TestDBFlagMapsOntoConfig(t *testing.T) {
	t.Parallel()

	var cfg config.Config
	cfg.DB = config.ParseDBURL("postgres://u:p@host/db")
	if cfg.DB.Kind != "postgres" {
		t.Fatalf("kind = %q; want postgres", cfg.DB.Kind)
	}
	if cfg.DB.DSN != "postgres://u:p@host/db" {
		t.Fatalf("dsn = %q", cfg.DB.DSN)
	}

	cfg.DB = config.ParseDBURL("cohort.db")
	if cfg.DB.Kind != "sqlite" || cfg.DB.DSN != "cohort.db" {
		t.Fatalf("DB = %+v; want bare path as sqlite", cfg.DB)
	}
}
