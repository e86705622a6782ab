package storage

import (
	"fmt"
	"strings"
	"testing"

	"vcfdb/internal/schema"
)

type testDialect struct{}

func (testDialect) Name() string             { return "test" }
func (testDialect) Quote(id string) string   { return `"` + id + `"` }
func (testDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (testDialect) TracksWidths() bool       { return true }
func (testDialect) MaxParams() int           { return 6 }

func (testDialect) TypeSQL(c schema.Column) string {
	if c.Type == schema.TypeString {
		return fmt.Sprintf("VARCHAR(%d)", c.Width)
	}
	return strings.ToUpper(c.Type.String())
}

func (d testDialect) AlterWidthSQL(table, column string, width int) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s VARCHAR(%d)", d.Quote(table), d.Quote(column), width)
}

func (d testDialect) AlterTextSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TEXT", d.Quote(table), d.Quote(column))
}

func TestInsertSQL(t *testing.T) {
	t.Parallel()
	r := &SQLRepo{D: testDialect{}}
	got := r.insertSQL("variants", []string{"variant_id", "chrom"}, 2)
	want := `INSERT INTO "variants" ("variant_id","chrom") VALUES ($1,$2),($3,$4)`
	if got != want {
		t.Fatalf("insertSQL = %q, want %q", got, want)
	}
}
