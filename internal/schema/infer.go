package schema

import (
	"fmt"
	"strings"

	"vcfdb/internal/annotation"
	"vcfdb/internal/vcf"
)

// Width policy for fixed-width string columns. A value longer than the
// current width grows the column to round(growthFactor * len); past widthCap
// the column converts to unbounded Text instead.
const (
	DefaultStringWidth = 5

	WidthCap     = 48
	growthFactor = 1.2
)

// GrownWidth returns the post-growth width for an observed value length.
func GrownWidth(observed int) int {
	return int(growthFactor*float64(observed) + 0.5)
}

// defaultColumns are the fixed leading columns of the variants table.
func defaultColumns() []Column {
	return []Column{
		{Name: "variant_id", Type: TypeInteger, PrimaryKey: true},
		{Name: "chrom", Type: TypeString, Width: 10, NotNull: true},
		{Name: "start", Type: TypeInteger, NotNull: true},
		{Name: "end", Type: TypeInteger, NotNull: true},
		{Name: "vcf_id", Type: TypeString, Width: 12},
		{Name: "ref", Type: TypeText},
		{Name: "alt", Type: TypeText},
		{Name: "qual", Type: TypeFloat},
		{Name: "filter", Type: TypeString, Width: 10},
	}
}

// calculatedColumns hold per-record aggregates derived from the genotypes.
// hwe, inbreeding_coef and pi are declared for compatibility and always
// carry NULL.
func calculatedColumns() []Column {
	return []Column{
		{Name: "type", Type: TypeString, Width: 8},
		{Name: "sub_type", Type: TypeString, Width: 20},
		{Name: "call_rate", Type: TypeFloat},
		{Name: "num_hom_ref", Type: TypeInteger},
		{Name: "num_het", Type: TypeInteger},
		{Name: "num_hom_alt", Type: TypeInteger},
		{Name: "aaf", Type: TypeFloat},
		{Name: "hwe", Type: TypeFloat},
		{Name: "inbreeding_coef", Type: TypeFloat},
		{Name: "pi", Type: TypeFloat},
	}
}

// geneColumns are the collapsed impact summary, shared by the variants table
// and the variant_impacts table.
func geneColumns() []Column {
	return []Column{
		{Name: "gene", Type: TypeString, Width: 20},
		{Name: "transcript", Type: TypeString, Width: 20},
		{Name: "is_exonic", Type: TypeBool},
		{Name: "is_coding", Type: TypeBool},
		{Name: "is_lof", Type: TypeBool},
		{Name: "is_splicing", Type: TypeBool},
		{Name: "exon", Type: TypeString, Width: 8},
		{Name: "codon_change", Type: TypeText},
		{Name: "aa_change", Type: TypeText},
		{Name: "aa_length", Type: TypeString, Width: 8},
		{Name: "biotype", Type: TypeString, Width: 50},
		{Name: "impact", Type: TypeString, Width: 20},
		{Name: "impact_so", Type: TypeString, Width: 20},
		{Name: "impact_severity", Type: TypeString, Width: 4},
		{Name: "polyphen_pred", Type: TypeString, Width: 20},
		{Name: "polyphen_score", Type: TypeFloat},
		{Name: "sift_pred", Type: TypeString, Width: 20},
		{Name: "sift_score", Type: TypeFloat},
	}
}

// afLike reports whether a canonical attribute name follows the
// allele-frequency naming convention. Such columns become Float with a
// default of -1 when absent.
func afLike(name string) bool {
	if name == "af" || name == "aaf" {
		return true
	}
	if strings.HasSuffix(name, "_af") || strings.HasSuffix(name, "_aaf") {
		return true
	}
	return strings.HasPrefix(name, "af_") || strings.HasPrefix(name, "aaf_") ||
		strings.HasPrefix(name, "an_")
}

// infoColumn maps one declared INFO attribute to a column.
func infoColumn(f vcf.InfoField) Column {
	name := Clean(f.ID)
	if name == "id" {
		// reserved by the database layer
		name = "idx"
	}
	if afLike(name) {
		return Column{Name: name, Type: TypeFloat, Default: float64(-1)}
	}
	switch f.Type {
	case "Integer":
		return Column{Name: name, Type: TypeInteger}
	case "Float":
		return Column{Name: name, Type: TypeFloat}
	case "Flag":
		return Column{Name: name, Type: TypeBool, Default: false}
	case "Character":
		return Column{Name: name, Type: TypeString, Width: 1}
	default:
		return Column{Name: name, Type: TypeString, Width: DefaultStringWidth}
	}
}

// Variants infers the variants table from a parsed header. Annotation
// encodings found among the INFO declarations are registered into reg and
// excluded from the column set, as are attributes named in exclude (matched
// against both the raw ID and its canonical form).
func Variants(hdr *vcf.Header, reg *annotation.Registry, exclude []string) (*Definition, error) {
	skip := map[string]bool{}
	for _, x := range exclude {
		skip[x] = true
		skip[Clean(x)] = true
	}

	d := New("variants", defaultColumns()...)
	d.Add(calculatedColumns()...)
	d.Add(geneColumns()...)

	for _, id := range hdr.InfoOrder {
		f := hdr.Infos[id]
		if annotation.IsEncoding(f.ID) {
			if err := reg.Register(f.ID, f.Description); err != nil {
				return nil, fmt.Errorf("register %s: %w", f.ID, err)
			}
			continue
		}
		if skip[f.ID] || skip[Clean(f.ID)] {
			continue
		}
		c := infoColumn(f)
		if d.Has(c.Name) {
			continue
		}
		d.Add(c)
	}

	for _, g := range vcf.GTCols {
		d.Add(Column{Name: g, Type: TypeBinary})
	}
	return d, nil
}

// Impacts builds the variant_impacts table: one row per surviving transcript
// annotation, keyed back to its variant.
func Impacts() *Definition {
	d := New("variant_impacts",
		Column{Name: "variant_id", Type: TypeInteger, NotNull: true, References: "variants.variant_id"},
	)
	d.Add(geneColumns()...)
	return d
}

// GrowWidths widens every fixed-width string column of d over the sampled
// rows: each column grows to GrownWidth(max observed length), converting to
// Text past WidthCap. Called once, after the prefix has been transformed.
func GrowWidths(d *Definition, rows []map[string]any) {
	for i := range d.Columns {
		c := &d.Columns[i]
		if c.Type != TypeString {
			continue
		}
		maxLen := 0
		for _, row := range rows {
			if s, ok := row[c.Name].(string); ok && len(s) > maxLen {
				maxLen = len(s)
			}
		}
		if maxLen <= c.Width {
			continue
		}
		if w := GrownWidth(maxLen); w > WidthCap {
			c.Type = TypeText
			c.Width = 0
		} else if w > c.Width {
			c.Width = w
		}
	}
}
