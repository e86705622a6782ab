// Package postgres backs the repository with PostgreSQL using pgx v5. Bulk
// inserts ride COPY, which is the fast path the other backends approximate
// with multi-row INSERTs.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vcfdb/internal/schema"
	"vcfdb/internal/storage"
)

// Repository is the pgx-native storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Repository)(nil)

func New(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// ident safely quotes a single identifier.
func ident(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func typeSQL(c schema.Column) string {
	switch c.Type {
	case schema.TypeInteger:
		return "INTEGER"
	case schema.TypeSmallInt:
		return "SMALLINT"
	case schema.TypeFloat:
		return "DOUBLE PRECISION"
	case schema.TypeBool:
		return "BOOLEAN"
	case schema.TypeString:
		return fmt.Sprintf("VARCHAR(%d)", c.Width)
	case schema.TypeText:
		return "TEXT"
	case schema.TypeBinary:
		return "BYTEA"
	}
	return "TEXT"
}

func (r *Repository) Exec(ctx context.Context, query string, args ...any) error {
	_, err := r.pool.Exec(ctx, query, args...)
	return err
}

func (r *Repository) CreateTable(ctx context.Context, def *schema.Definition) error {
	parts := make([]string, 0, len(def.Columns))
	for _, c := range def.Columns {
		col := ident(c.Name) + " " + typeSQL(c)
		if c.PrimaryKey {
			col += " PRIMARY KEY"
		}
		if c.NotNull {
			col += " NOT NULL"
		}
		if c.References != "" {
			tbl, refCol, ok := strings.Cut(c.References, ".")
			if !ok {
				return fmt.Errorf("postgres: malformed reference %q", c.References)
			}
			col += fmt.Sprintf(" REFERENCES %s(%s)", ident(tbl), ident(refCol))
		}
		parts = append(parts, col)
	}
	return r.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", ident(def.Table), strings.Join(parts, ", ")))
}

func (r *Repository) DropTable(ctx context.Context, table string) error {
	return r.Exec(ctx, "DROP TABLE IF EXISTS "+ident(table)+" CASCADE")
}

func (r *Repository) AlterColumnWidth(ctx context.Context, table, column string, width int) error {
	return r.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE VARCHAR(%d)",
		ident(table), ident(column), width))
}

func (r *Repository) AlterColumnText(ctx context.Context, table, column string) error {
	return r.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE TEXT",
		ident(table), ident(column)))
}

func (r *Repository) TracksWidths() bool { return true }

func (r *Repository) BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return n, fmt.Errorf("postgres: copy into %s: %s (%s)", table, pgErr.Detail, pgErr.SQLState())
		}
		return n, fmt.Errorf("postgres: copy into %s: %w", table, err)
	}
	return n, nil
}

func (r *Repository) insertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	ph := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = ident(c)
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ident(table), strings.Join(quoted, ","), strings.Join(ph, ","))
}

func (r *Repository) InsertEach(ctx context.Context, table string, columns []string, rows [][]any) (int64, []storage.RowError) {
	stmt := r.insertSQL(table, columns)
	var (
		total int64
		errs  []storage.RowError
	)
	for i, row := range rows {
		if _, err := r.pool.Exec(ctx, stmt, row...); err != nil {
			errs = append(errs, storage.RowError{Offset: i, Err: err})
			continue
		}
		total++
	}
	return total, errs
}

func (r *Repository) CreateIndex(ctx context.Context, name, table string, columns ...string) error {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = ident(c)
	}
	return r.Exec(ctx, fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		ident(name), ident(table), strings.Join(quoted, ",")))
}

func (r *Repository) Close() { r.pool.Close() }

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return New(ctx, cfg.DSN)
	})
}
