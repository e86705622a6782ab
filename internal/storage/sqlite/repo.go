// Package sqlite backs the repository with an embedded SQLite database via
// the pure-Go modernc driver. SQLite's type affinity makes declared string
// widths advisory, so the width-alter surface is a no-op here.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"vcfdb/internal/schema"
	"vcfdb/internal/storage"
)

type dialect struct{}

func (dialect) Name() string { return "sqlite" }

func (dialect) Quote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func (dialect) Placeholder(int) string { return "?" }

func (dialect) TypeSQL(c schema.Column) string {
	switch c.Type {
	case schema.TypeInteger, schema.TypeSmallInt, schema.TypeBool:
		return "INTEGER"
	case schema.TypeFloat:
		return "REAL"
	case schema.TypeBinary:
		return "BLOB"
	}
	return "TEXT"
}

func (dialect) AlterWidthSQL(table, column string, width int) string { return "" }

func (dialect) AlterTextSQL(table, column string) string { return "" }

func (dialect) TracksWidths() bool { return false }

func (dialect) MaxParams() int { return 32766 }

// New opens (or creates) the database file named by dsn. Durability pragmas
// are relaxed: the load is all-or-nothing anyway and rebuilt from the input
// on failure.
func New(ctx context.Context, dsn string) (*storage.SQLRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}
	// single writer; concurrent connections only contend on the file lock
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA synchronous=OFF",
		"PRAGMA journal_mode=MEMORY",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return &storage.SQLRepo{DB: db, D: dialect{}}, nil
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return New(ctx, cfg.DSN)
	})
}
