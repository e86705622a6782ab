package schema

import (
	"strings"
	"testing"

	"vcfdb/internal/annotation"
	"vcfdb/internal/vcf"
)

const inferHeader = `##fileformat=VCFv4.2
##INFO=<ID=AC,Number=A,Type=Integer,Description="Allele count">
##INFO=<ID=AF,Number=A,Type=Float,Description="Allele frequency">
##INFO=<ID=AN_popmax,Number=1,Type=Integer,Description="Allele number in popmax population">
##INFO=<ID=DB,Number=0,Type=Flag,Description="dbSNP membership">
##INFO=<ID=CLNSIG,Number=.,Type=String,Description="Clinical significance">
##INFO=<ID=ID,Number=1,Type=String,Description="Colliding identifier">
##INFO=<ID=OLD,Number=1,Type=String,Description="Excluded attribute">
##INFO=<ID=CSQ,Number=.,Type=String,Description="Consequence annotations from Ensembl VEP. Format: Allele|Consequence|SYMBOL|Gene|Feature|BIOTYPE|EXON|Protein_position|Amino_acids|Codons|PolyPhen|SIFT">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1
`

func TestVariantsInference(t *testing.T) {
	t.Parallel()
	hdr, err := vcf.ParseHeader(inferHeader)
	if err != nil {
		t.Fatal(err)
	}
	reg := annotation.NewRegistry()
	d, err := Variants(hdr, reg, []string{"OLD"})
	if err != nil {
		t.Fatal(err)
	}

	if !reg.Has(annotation.CSQ) {
		t.Fatal("CSQ encoding was not registered")
	}
	if d.Has("csq") {
		t.Fatal("annotation encoding leaked into the column set")
	}
	if d.Has("old") {
		t.Fatal("excluded attribute became a column")
	}

	checks := []struct {
		name string
		typ  Type
	}{
		{"variant_id", TypeInteger},
		{"chrom", TypeString},
		{"impact_severity", TypeString},
		{"ac", TypeInteger},
		{"clnsig", TypeString},
		{"db", TypeBool},
		{"gts", TypeBinary},
		{"gt_quals", TypeBinary},
	}
	for _, c := range checks {
		col := d.Column(c.name)
		if col == nil {
			t.Fatalf("missing column %q", c.name)
		}
		if col.Type != c.typ {
			t.Errorf("column %q type = %v, want %v", c.name, col.Type, c.typ)
		}
	}

	// af-convention attributes are Float with -1 default regardless of the
	// declared type
	for _, name := range []string{"af", "an_popmax"} {
		col := d.Column(name)
		if col == nil || col.Type != TypeFloat || col.Default != float64(-1) {
			t.Errorf("column %q = %+v, want Float with default -1", name, col)
		}
	}

	// the reserved id attribute lands in idx
	if d.Has("id") || !d.Has("idx") {
		t.Fatal("ID attribute was not renamed to idx")
	}

	// genotype columns come last, in declaration order
	names := d.Names()
	tail := names[len(names)-len(vcf.GTCols):]
	for i, g := range vcf.GTCols {
		if tail[i] != g {
			t.Fatalf("genotype column order: got %v", tail)
		}
	}
}

func TestImpactsDefinition(t *testing.T) {
	t.Parallel()
	d := Impacts()
	if d.Table != "variant_impacts" {
		t.Fatalf("table = %q", d.Table)
	}
	vid := d.Column("variant_id")
	if vid == nil || vid.References != "variants.variant_id" {
		t.Fatalf("variant_id = %+v", vid)
	}
	for _, name := range []string{"gene", "impact", "impact_so", "impact_severity", "sift_score"} {
		if !d.Has(name) {
			t.Fatalf("missing column %q", name)
		}
	}
}

func TestGrowWidths(t *testing.T) {
	t.Parallel()
	d := New("t",
		Column{Name: "short", Type: TypeString, Width: 10},
		Column{Name: "grown", Type: TypeString, Width: 10},
		Column{Name: "wide", Type: TypeString, Width: 10},
	)
	rows := []map[string]any{
		{"short": "tiny", "grown": strings.Repeat("x", 20), "wide": strings.Repeat("y", 60)},
		{"short": "ok", "grown": strings.Repeat("x", 12)},
	}
	GrowWidths(d, rows)

	if got := d.Column("short").Width; got != 10 {
		t.Errorf("short width = %d, want 10", got)
	}
	// 20 chars grows to round(1.2 * 20) = 24
	if got := d.Column("grown").Width; got != 24 {
		t.Errorf("grown width = %d, want 24", got)
	}
	// 60 chars would need width 72, past the cap: converts to Text
	if c := d.Column("wide"); c.Type != TypeText || c.Width != 0 {
		t.Errorf("wide = %+v, want Text", c)
	}
}

func TestGrownWidth(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want int }{
		{10, 12},
		{40, 48},
		{48, 58},
	}
	for _, tt := range tests {
		if got := GrownWidth(tt.in); got != tt.want {
			t.Errorf("GrownWidth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
