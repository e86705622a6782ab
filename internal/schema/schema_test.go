package schema

import (
	"reflect"
	"testing"
)

func TestClean(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"AC", "ac"},
		{"My-Field", "my_field"},
		{"dp hist", "dp_hist"},
		{`"quoted"`, "quoted"},
		{"dbNSFP.SIFT", "dbnsfp_sift"},
		{"qualité", "qualite"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefinitionWiden(t *testing.T) {
	t.Parallel()
	d := New("t", Column{Name: "s", Type: TypeString, Width: 10})

	d.Widen("s", 20)
	if got := d.Column("s").Width; got != 20 {
		t.Fatalf("width after grow = %d, want 20", got)
	}
	d.Widen("s", 5) // never shrinks
	if got := d.Column("s").Width; got != 20 {
		t.Fatalf("width after shrink attempt = %d, want 20", got)
	}

	d.SetText("s")
	c := d.Column("s")
	if c.Type != TypeText || c.Width != 0 {
		t.Fatalf("after SetText: type=%v width=%d", c.Type, c.Width)
	}
	// further widening is a no-op once the column is Text
	d.Widen("s", 99)
	if c.Width != 0 {
		t.Fatalf("text column picked up a width: %d", c.Width)
	}
}

func TestCheckWidths(t *testing.T) {
	t.Parallel()
	d := New("t",
		Column{Name: "a", Type: TypeString, Width: 4},
		Column{Name: "b", Type: TypeString, Width: 10},
		Column{Name: "n", Type: TypeInteger},
	)
	rows := []map[string]any{
		{"a": "ok", "b": "within-10", "n": 1},
		{"a": "too-long-value", "b": nil},
		{"a": "longer", "n": 2},
	}
	got := d.CheckWidths(rows)
	want := map[string]int{"a": 14}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CheckWidths = %v, want %v", got, want)
	}

	if got := d.CheckWidths([]map[string]any{{"a": "ok"}}); len(got) != 0 {
		t.Fatalf("expected no widening, got %v", got)
	}
}

func TestRowValues(t *testing.T) {
	t.Parallel()
	d := New("t",
		Column{Name: "chrom", Type: TypeString, Width: 10},
		Column{Name: "an_exac", Type: TypeFloat, Default: float64(-1)},
		Column{Name: "flagged", Type: TypeBool, Default: false},
		Column{Name: "note", Type: TypeText},
	)

	got := d.RowValues(map[string]any{"chrom": "chr1", "an_exac": 0.25})
	want := []any{"chr1", 0.25, false, nil}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RowValues = %v, want %v", got, want)
	}

	// explicit nil falls back to the default as well
	got = d.RowValues(map[string]any{"chrom": "chr2", "an_exac": nil})
	if got[1] != float64(-1) {
		t.Fatalf("nil value did not take default: %v", got[1])
	}
}
