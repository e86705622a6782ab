// Package storage contains the backend-agnostic contracts and the batched
// loader. Concrete backends (postgres, mysql, mssql, sqlite) live in
// subpackages and register themselves with the factory at init time, so the
// rest of the pipeline never imports a driver directly.
package storage

import (
	"context"
	"fmt"
	"sync"

	"vcfdb/internal/schema"
)

// Config selects and configures a backend.
type Config struct {
	Kind string // registered backend name, e.g. "postgres"
	DSN  string
}

// RowError reports one failed row from a degraded row-by-row retry. Offset is
// the row's position within the attempted chunk.
type RowError struct {
	Offset int
	Err    error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Offset, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

// Repository is the write surface a backend must provide. Rows passed to
// BulkInsert and InsertEach are aligned to the columns slice.
//
// InsertEach is the degraded path: each row commits independently, so rows
// surrounding a poison row still land. It returns the inserted count plus one
// RowError per failed row.
type Repository interface {
	Exec(ctx context.Context, sql string, args ...any) error

	CreateTable(ctx context.Context, def *schema.Definition) error
	DropTable(ctx context.Context, table string) error

	// AlterColumnWidth widens a fixed-width string column in place;
	// AlterColumnText converts it to unbounded text. Backends whose widths
	// are advisory (TracksWidths() == false) may implement both as no-ops.
	AlterColumnWidth(ctx context.Context, table, column string, width int) error
	AlterColumnText(ctx context.Context, table, column string) error
	TracksWidths() bool

	BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	InsertEach(ctx context.Context, table string, columns []string, rows [][]any) (int64, []RowError)

	CreateIndex(ctx context.Context, name, table string, columns ...string) error

	Close()
}

// Factory constructs a Repository for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for a backend kind. Called
// from backend packages' init functions.
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = fn
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	fn, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported db.kind=%s", cfg.Kind)
	}
	return fn(ctx, cfg)
}

// ListKinds returns a snapshot of the registered backend names.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
