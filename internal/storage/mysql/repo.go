// Package mysql backs the repository with MySQL/MariaDB over the canonical
// go-sql-driver.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"vcfdb/internal/schema"
	"vcfdb/internal/storage"
)

type dialect struct{}

func (dialect) Name() string { return "mysql" }

func (dialect) Quote(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func (dialect) Placeholder(int) string { return "?" }

func (dialect) TypeSQL(c schema.Column) string {
	switch c.Type {
	case schema.TypeInteger:
		return "INT"
	case schema.TypeSmallInt:
		return "SMALLINT"
	case schema.TypeFloat:
		return "DOUBLE"
	case schema.TypeBool:
		return "BOOLEAN"
	case schema.TypeString:
		return fmt.Sprintf("VARCHAR(%d)", c.Width)
	case schema.TypeText:
		return "TEXT"
	case schema.TypeBinary:
		// genotype blobs scale with cohort size; 64KB BLOB is too small
		// for large sample sets
		return "MEDIUMBLOB"
	}
	return "TEXT"
}

func (d dialect) AlterWidthSQL(table, column string, width int) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY %s VARCHAR(%d)", d.Quote(table), d.Quote(column), width)
}

func (d dialect) AlterTextSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY %s TEXT", d.Quote(table), d.Quote(column))
}

func (dialect) TracksWidths() bool { return true }

func (dialect) MaxParams() int { return 65535 }

func New(ctx context.Context, dsn string) (*storage.SQLRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &storage.SQLRepo{DB: db, D: dialect{}}, nil
}

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return New(ctx, cfg.DSN)
	})
}
