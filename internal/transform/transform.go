// Package transform turns parsed variant records into flat row maps ready for
// loading: INFO attributes keyed by canonical column name, genotype arrays
// reordered to cohort order and packed into compressed blobs, and transcript
// annotations collapsed to their most severe representative.
package transform

import (
	"fmt"

	"vcfdb/internal/annotation"
	"vcfdb/internal/blob"
	"vcfdb/internal/schema"
	"vcfdb/internal/vcf"
)

// Row is the transform output for one input record. Variant always has one
// value per declared column key present in the record; Impacts holds one map
// per decoded transcript annotation; Expansions holds, per expanded genotype
// attribute, a single wide row with one column per sample.
type Row struct {
	VariantID  int64
	Variant    map[string]any
	Impacts    []map[string]any
	Expansions map[string]map[string]any

	// Faults are per-entry annotation decode failures. The record itself
	// still transformed; the caller counts and logs these.
	Faults []error
}

// Transformer converts records. Safe for concurrent use once configured: all
// fields are read-only during streaming.
type Transformer struct {
	Header   *vcf.Header
	Registry *annotation.Registry
	Codec    blob.Codec

	// SampleIdxs maps cohort position to input sample-column index; nil
	// keeps the input order. SampleNames are the cohort-ordered canonical
	// sample names used for expansion columns.
	SampleIdxs  []int
	SampleNames []string

	// Expand lists genotype attributes to additionally unpack into
	// per-sample wide rows.
	Expand []string
}

// Transform builds the row for one record. Annotation decode faults are
// collected on the row, not returned; the returned error is reserved for
// fatal conditions such as a blob encode failure.
func (t *Transformer) Transform(rec *vcf.Record, variantID int64) (*Row, error) {
	row := &Row{
		VariantID: variantID,
		Variant:   make(map[string]any, 64),
	}
	m := row.Variant

	m["variant_id"] = variantID
	m["chrom"] = rec.Chrom
	m["start"] = rec.Start()
	m["end"] = rec.End()
	if rec.ID != "" {
		m["vcf_id"] = rec.ID
	}
	m["ref"] = rec.Ref
	m["alt"] = rec.Alt()
	if rec.Qual != nil {
		m["qual"] = *rec.Qual
	}
	if rec.Filter != "" {
		m["filter"] = rec.Filter
	}

	m["type"] = rec.VarType()
	m["sub_type"] = rec.VarSubType()
	m["call_rate"] = rec.CallRate()
	homRef, het, homAlt := rec.GenotypeCounts()
	m["num_hom_ref"] = homRef
	m["num_het"] = het
	m["num_hom_alt"] = homAlt
	m["aaf"] = rec.AAF()

	for _, id := range t.Header.InfoOrder {
		if annotation.IsEncoding(id) {
			continue
		}
		v, ok := rec.Info(id)
		if !ok {
			continue
		}
		name := schema.Clean(id)
		if name == "id" {
			name = "idx"
		}
		m[name] = v
	}

	cands := t.decodeAnnotations(rec, row)
	if top := annotation.TopSeverity(cands); top != nil {
		mergeCandidate(m, top)
	}
	for i := range cands {
		im := map[string]any{"variant_id": variantID}
		mergeCandidate(im, &cands[i])
		row.Impacts = append(row.Impacts, im)
	}

	arrays := rec.GenotypeArrays()
	for _, col := range vcf.GTCols {
		arr := reorder(arrays[col], t.SampleIdxs)
		arrays[col] = arr
		enc, err := t.Codec.Encode(arr)
		if err != nil {
			return nil, fmt.Errorf("transform: encode %s of variant %d: %w", col, variantID, err)
		}
		m[col] = enc
	}

	if len(t.Expand) > 0 {
		row.Expansions = make(map[string]map[string]any, len(t.Expand))
		for _, field := range t.Expand {
			wide := map[string]any{"variant_id": variantID}
			arr := arrays[field]
			for i, name := range t.SampleNames {
				wide["sample_"+name] = element(arr, i)
			}
			row.Expansions[field] = wide
		}
	}
	return row, nil
}

// decodeAnnotations walks the registered encodings in fixed order, sharing
// one ordinal sequence so the severity tie-break is stable across encodings.
func (t *Transformer) decodeAnnotations(rec *vcf.Record, row *Row) []annotation.Candidate {
	var cands []annotation.Candidate
	for _, enc := range annotation.Encodings {
		if !t.Registry.Has(enc) {
			continue
		}
		raw, ok := rec.InfoRaw(string(enc))
		if !ok || raw == "" {
			continue
		}
		cs, errs := annotation.Decode(enc, raw, t.Registry, len(cands))
		cands = append(cands, cs...)
		row.Faults = append(row.Faults, errs...)
	}
	return cands
}

// mergeCandidate writes a candidate's fields into a row map under the shared
// impact column names. Empty strings become NULLs.
func mergeCandidate(m map[string]any, c *annotation.Candidate) {
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	put("gene", c.Gene)
	put("transcript", c.Transcript)
	m["is_exonic"] = c.IsExonic
	m["is_coding"] = c.IsCoding
	m["is_lof"] = c.IsLof
	m["is_splicing"] = c.IsSplicing
	put("exon", c.Exon)
	put("codon_change", c.CodonChange)
	put("aa_change", c.AaChange)
	put("aa_length", c.AaLength)
	put("biotype", c.Biotype)
	put("impact", c.Consequence)
	put("impact_so", c.SO)
	put("impact_severity", c.Severity)
	put("polyphen_pred", c.PolyphenPred)
	if c.PolyphenScore != nil {
		m["polyphen_score"] = *c.PolyphenScore
	}
	put("sift_pred", c.SiftPred)
	if c.SiftScore != nil {
		m["sift_score"] = *c.SiftScore
	}
}

// reorder permutes an array into cohort order. idxs[i] is the input column
// feeding cohort position i.
func reorder(a *blob.Array, idxs []int) *blob.Array {
	if a == nil || idxs == nil {
		return a
	}
	switch a.Kind {
	case blob.KindInt:
		out := make([]int32, len(idxs))
		for i, j := range idxs {
			out[i] = a.Ints[j]
		}
		return blob.Ints32(out)
	case blob.KindFloat:
		out := make([]float32, len(idxs))
		for i, j := range idxs {
			out[i] = a.Floats[j]
		}
		return blob.Floats32(out)
	case blob.KindString:
		out := make([]string, len(idxs))
		for i, j := range idxs {
			out[i] = a.Strings[j]
		}
		return blob.Strs(out)
	case blob.KindBool:
		out := make([]bool, len(idxs))
		for i, j := range idxs {
			out[i] = a.Bools[j]
		}
		return blob.Bools(out)
	}
	return a
}

// element extracts one sample's value from an array, nil when the attribute
// is absent from the record.
func element(a *blob.Array, i int) any {
	if a == nil {
		return nil
	}
	switch a.Kind {
	case blob.KindInt:
		return a.Ints[i]
	case blob.KindFloat:
		return a.Floats[i]
	case blob.KindString:
		return a.Strings[i]
	case blob.KindBool:
		return a.Bools[i]
	}
	return nil
}
