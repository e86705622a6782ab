// Package schema models table definitions inferred from the input itself and
// owns the width-growth policy for fixed-width string columns. Definitions
// are created once per run from a sampled prefix of the stream; afterwards
// the only permitted mutation is widening (or Text-converting) a string
// column, applied by the single-writer loader.
package schema

import "fmt"

// Type is the semantic column type.
type Type uint8

const (
	TypeInteger Type = iota
	TypeSmallInt
	TypeFloat
	TypeBool
	TypeString // fixed width, grows monotonically
	TypeText   // unbounded, no width tracking
	TypeBinary
)

func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeSmallInt:
		return "smallint"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeBinary:
		return "binary"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Column describes a single column. Width applies to TypeString only and
// never shrinks during a run.
type Column struct {
	Name       string
	Type       Type
	Width      int
	PrimaryKey bool
	NotNull    bool

	// Default is substituted when a row carries no value for the column
	// (e.g. -1 for allele-frequency attributes absent from a record).
	Default any

	// References names a "table.column" foreign-key target, when set.
	References string
}

// Definition is an ordered set of uniquely named columns for one table.
type Definition struct {
	Table   string
	Columns []Column

	byName map[string]int
}

// New builds a Definition. Duplicate column names panic: the inference layer
// canonicalizes names before declaring columns, so a collision is a bug.
func New(table string, cols ...Column) *Definition {
	d := &Definition{Table: table, byName: map[string]int{}}
	d.Add(cols...)
	return d
}

// Add appends columns to the definition.
func (d *Definition) Add(cols ...Column) {
	for _, c := range cols {
		if _, dup := d.byName[c.Name]; dup {
			panic(fmt.Sprintf("schema: duplicate column %q in table %q", c.Name, d.Table))
		}
		d.byName[c.Name] = len(d.Columns)
		d.Columns = append(d.Columns, c)
	}
}

// Column returns a pointer to the named column, or nil.
func (d *Definition) Column(name string) *Column {
	i, ok := d.byName[name]
	if !ok {
		return nil
	}
	return &d.Columns[i]
}

// Has reports whether the column exists.
func (d *Definition) Has(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// Names returns the ordered column names.
func (d *Definition) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Widen grows a string column's width in place. Width never shrinks.
func (d *Definition) Widen(name string, width int) {
	c := d.Column(name)
	if c == nil || c.Type != TypeString {
		return
	}
	if width > c.Width {
		c.Width = width
	}
}

// SetText converts a string column to unbounded Text; its width is no longer
// tracked afterwards.
func (d *Definition) SetText(name string) {
	c := d.Column(name)
	if c == nil || c.Type != TypeString {
		return
	}
	c.Type = TypeText
	c.Width = 0
}

// CheckWidths scans pending rows and returns, per still-fixed-width string
// column, the maximum observed value length among values that exceed the
// current width. An empty map means no widening is needed before insert.
func (d *Definition) CheckWidths(rows []map[string]any) map[string]int {
	need := map[string]int{}
	for _, c := range d.Columns {
		if c.Type != TypeString {
			continue
		}
		for _, row := range rows {
			s, ok := row[c.Name].(string)
			if !ok {
				continue
			}
			if len(s) > c.Width && len(s) > need[c.Name] {
				need[c.Name] = len(s)
			}
		}
	}
	return need
}

// RowValues flattens a row map into the definition's column order. Every
// declared column receives a value: absent or nil entries become the column
// default, or nil.
func (d *Definition) RowValues(row map[string]any) []any {
	out := make([]any, len(d.Columns))
	for i, c := range d.Columns {
		v, ok := row[c.Name]
		if !ok || v == nil {
			if c.Default != nil {
				out[i] = c.Default
			}
			continue
		}
		out[i] = v
	}
	return out
}
