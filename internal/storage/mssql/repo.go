// Package mssql backs the repository with SQL Server. Bulk inserts go through
// the driver's TDS bulk copy; the degraded row-at-a-time path falls back to
// parameterized statements, which the driver caps at roughly 2100 bind
// parameters per request.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"

	"vcfdb/internal/schema"
	"vcfdb/internal/storage"
)

type dialect struct{}

func (dialect) Name() string { return "mssql" }

func (dialect) Quote(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

func (dialect) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }

func (dialect) TypeSQL(c schema.Column) string {
	switch c.Type {
	case schema.TypeInteger:
		return "INT"
	case schema.TypeSmallInt:
		return "SMALLINT"
	case schema.TypeFloat:
		return "FLOAT"
	case schema.TypeBool:
		return "BIT"
	case schema.TypeString:
		return fmt.Sprintf("VARCHAR(%d)", c.Width)
	case schema.TypeText:
		return "VARCHAR(MAX)"
	case schema.TypeBinary:
		return "VARBINARY(MAX)"
	}
	return "VARCHAR(MAX)"
}

func (d dialect) AlterWidthSQL(table, column string, width int) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s VARCHAR(%d)", d.Quote(table), d.Quote(column), width)
}

func (d dialect) AlterTextSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s VARCHAR(MAX)", d.Quote(table), d.Quote(column))
}

func (dialect) TracksWidths() bool { return true }

func (dialect) MaxParams() int { return 2000 }

// Repository wraps the generic SQL repo with TDS bulk copy for the hot path.
type Repository struct {
	storage.SQLRepo
}

func New(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Repository{storage.SQLRepo{DB: db, D: dialect{}}}, nil
}

// BulkInsert streams rows through the driver's bulk copy inside one tx.
func (r *Repository) BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("mssql: prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("mssql: bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
	}
	return n, nil
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return New(ctx, cfg.DSN)
	})
}
