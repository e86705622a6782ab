package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"vcfdb/internal/schema"
)

// Dialect captures the SQL differences between database/sql backends: type
// rendering, identifier quoting, placeholder style and the driver's bind
// parameter ceiling.
type Dialect interface {
	Name() string
	Quote(ident string) string
	Placeholder(n int) string // n is 1-based
	TypeSQL(c schema.Column) string
	AlterWidthSQL(table, column string, width int) string
	AlterTextSQL(table, column string) string
	TracksWidths() bool
	MaxParams() int
}

// SQLRepo implements Repository over database/sql for any Dialect. The pgx
// backend does not use it; COPY needs the native protocol.
type SQLRepo struct {
	DB *sql.DB
	D  Dialect
}

var _ Repository = (*SQLRepo)(nil)

func (r *SQLRepo) Exec(ctx context.Context, query string, args ...any) error {
	_, err := r.DB.ExecContext(ctx, query, args...)
	return err
}

func (r *SQLRepo) CreateTable(ctx context.Context, def *schema.Definition) error {
	parts := make([]string, 0, len(def.Columns))
	for _, c := range def.Columns {
		col := r.D.Quote(c.Name) + " " + r.D.TypeSQL(c)
		if c.PrimaryKey {
			col += " PRIMARY KEY"
		}
		if c.NotNull {
			col += " NOT NULL"
		}
		if c.References != "" {
			tbl, refCol, ok := strings.Cut(c.References, ".")
			if !ok {
				return fmt.Errorf("%s: malformed reference %q", r.D.Name(), c.References)
			}
			col += fmt.Sprintf(" REFERENCES %s(%s)", r.D.Quote(tbl), r.D.Quote(refCol))
		}
		parts = append(parts, col)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", r.D.Quote(def.Table), strings.Join(parts, ", "))
	return r.Exec(ctx, stmt)
}

func (r *SQLRepo) DropTable(ctx context.Context, table string) error {
	return r.Exec(ctx, "DROP TABLE IF EXISTS "+r.D.Quote(table))
}

func (r *SQLRepo) AlterColumnWidth(ctx context.Context, table, column string, width int) error {
	stmt := r.D.AlterWidthSQL(table, column, width)
	if stmt == "" {
		return nil
	}
	return r.Exec(ctx, stmt)
}

func (r *SQLRepo) AlterColumnText(ctx context.Context, table, column string) error {
	stmt := r.D.AlterTextSQL(table, column)
	if stmt == "" {
		return nil
	}
	return r.Exec(ctx, stmt)
}

func (r *SQLRepo) TracksWidths() bool { return r.D.TracksWidths() }

// insertSQL renders a multi-row INSERT for nrows rows.
func (r *SQLRepo) insertSQL(table string, columns []string, nrows int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = r.D.Quote(c)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", r.D.Quote(table), strings.Join(quoted, ","))
	n := 1
	for row := 0; row < nrows; row++ {
		if row > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for col := range columns {
			if col > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(r.D.Placeholder(n))
			n++
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// BulkInsert inserts rows with multi-row INSERT statements, sized to stay
// under the dialect's bind parameter ceiling.
func (r *SQLRepo) BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	maxRows := r.D.MaxParams() / len(columns)
	if maxRows < 1 {
		maxRows = 1
	}

	var total int64
	for off := 0; off < len(rows); off += maxRows {
		end := off + maxRows
		if end > len(rows) {
			end = len(rows)
		}
		group := rows[off:end]
		args := make([]any, 0, len(group)*len(columns))
		for _, row := range group {
			args = append(args, row...)
		}
		if _, err := r.DB.ExecContext(ctx, r.insertSQL(table, columns, len(group)), args...); err != nil {
			return total, fmt.Errorf("%s: insert into %s: %w", r.D.Name(), table, err)
		}
		total += int64(len(group))
	}
	return total, nil
}

// InsertEach inserts rows one statement at a time, each in its own implicit
// transaction, collecting per-row failures instead of stopping.
func (r *SQLRepo) InsertEach(ctx context.Context, table string, columns []string, rows [][]any) (int64, []RowError) {
	stmt, err := r.DB.PrepareContext(ctx, r.insertSQL(table, columns, 1))
	if err != nil {
		errs := make([]RowError, len(rows))
		for i := range rows {
			errs[i] = RowError{Offset: i, Err: err}
		}
		return 0, errs
	}
	defer stmt.Close()

	var (
		total int64
		errs  []RowError
	)
	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			errs = append(errs, RowError{Offset: i, Err: err})
			continue
		}
		total++
	}
	return total, errs
}

func (r *SQLRepo) CreateIndex(ctx context.Context, name, table string, columns ...string) error {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = r.D.Quote(c)
	}
	return r.Exec(ctx, fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		r.D.Quote(name), r.D.Quote(table), strings.Join(quoted, ",")))
}

func (r *SQLRepo) Close() {
	_ = r.DB.Close()
}
