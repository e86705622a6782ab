package vcf

import (
	"strconv"
	"strings"

	"vcfdb/internal/blob"
)

// GTCols are the genotype-bearing attributes materialized as binary blob
// columns, in declaration order. "gts" holds the base strings; the rest are
// numeric per-sample arrays.
var GTCols = []string{
	"gts", "gt_types", "gt_phases", "gt_depths",
	"gt_ref_depths", "gt_alt_depths", "gt_quals",
}

// Genotype call classes, matching the conventions downstream tools expect.
const (
	HomRef  = 0
	Het     = 1
	Unknown = 2
	HomAlt  = 3
)

// Record is one parsed variant line. Transient: owned by the reader until
// handed to the transform, never reused afterwards.
type Record struct {
	Chrom  string
	Pos    int // 1-based position as written in the file
	ID     string
	Ref    string
	Alts   []string
	Qual   *float64
	Filter string // empty for PASS / '.'

	// Line is the 1-based line number in the input, for fault reports.
	Line int

	header  *Header
	info    map[string]string
	format  []string
	samples [][]string
}

// Start and End are the half-open zero-based interval of the reference
// allele, the coordinate convention the variants table stores.
func (r *Record) Start() int { return r.Pos - 1 }
func (r *Record) End() int   { return r.Pos - 1 + len(r.Ref) }

// Alt returns the comma-joined alternate alleles.
func (r *Record) Alt() string { return strings.Join(r.Alts, ",") }

// InfoRaw returns the raw INFO value string and whether the key is present.
// Flag fields are present with an empty value.
func (r *Record) InfoRaw(id string) (string, bool) {
	v, ok := r.info[id]
	return v, ok
}

// Info returns the typed value of a declared INFO attribute: int64, float64,
// bool or string according to the header Type. Multi-valued numeric fields
// yield their first value; multi-valued strings stay comma-joined. Undeclared
// attributes come back as strings. Returns (nil, false) when absent.
func (r *Record) Info(id string) (any, bool) {
	raw, ok := r.info[id]
	if !ok {
		return nil, false
	}
	f, declared := r.header.Infos[id]
	if !declared {
		return raw, true
	}
	switch f.Type {
	case "Flag":
		return true, true
	case "Integer":
		first, _, _ := strings.Cut(raw, ",")
		if v, err := strconv.ParseInt(first, 10, 64); err == nil {
			return v, true
		}
		return nil, false
	case "Float":
		first, _, _ := strings.Cut(raw, ",")
		if v, err := strconv.ParseFloat(first, 64); err == nil {
			return v, true
		}
		return nil, false
	}
	return raw, true
}

// sampleValue returns the FORMAT field value for one sample, "" when the
// field is absent or the sample has fewer values than declared.
func (r *Record) sampleValue(sample int, key string) string {
	for i, k := range r.format {
		if k == key {
			if sample < len(r.samples) && i < len(r.samples[sample]) {
				return r.samples[sample][i]
			}
			return ""
		}
	}
	return ""
}

// gtAlleles parses a GT value ("0/1", "1|0", "./.") into allele indexes
// (-1 for missing) plus whether the call is phased.
func gtAlleles(gt string) (alleles []int, phased bool) {
	phased = strings.ContainsRune(gt, '|')
	for _, tok := range strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' }) {
		if tok == "." || tok == "" {
			alleles = append(alleles, -1)
			continue
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			alleles = append(alleles, -1)
			continue
		}
		alleles = append(alleles, v)
	}
	return alleles, phased
}

// allele maps an allele index to its base string ('.' when missing).
func (r *Record) allele(idx int) string {
	switch {
	case idx == 0:
		return r.Ref
	case idx > 0 && idx <= len(r.Alts):
		return r.Alts[idx-1]
	}
	return "."
}

// gtType classifies a call into HomRef/Het/HomAlt/Unknown.
func gtType(alleles []int) int32 {
	if len(alleles) == 0 {
		return Unknown
	}
	allRef, allAlt, anyMissing := true, true, false
	for _, a := range alleles {
		switch {
		case a < 0:
			anyMissing = true
		case a == 0:
			allAlt = false
		default:
			allRef = false
		}
	}
	switch {
	case anyMissing:
		return Unknown
	case allRef:
		return HomRef
	case allAlt:
		return HomAlt
	}
	return Het
}

// GenotypeArrays builds the per-sample arrays for every genotype-bearing
// attribute, in VCF sample-column order. Missing numeric values encode as -1.
// Keys follow GTCols; attributes whose FORMAT field is absent map to nil.
func (r *Record) GenotypeArrays() map[string]*blob.Array {
	n := len(r.header.Samples)
	out := map[string]*blob.Array{}
	for _, k := range GTCols {
		out[k] = nil
	}
	if n == 0 {
		return out
	}

	hasGT := r.hasFormat("GT")
	if hasGT {
		gts := make([]string, n)
		types := make([]int32, n)
		phases := make([]bool, n)
		for s := 0; s < n; s++ {
			alleles, phased := gtAlleles(r.sampleValue(s, "GT"))
			bases := make([]string, len(alleles))
			for i, a := range alleles {
				bases[i] = r.allele(a)
			}
			sep := "/"
			if phased {
				sep = "|"
			}
			gts[s] = strings.Join(bases, sep)
			if gts[s] == "" {
				gts[s] = "."
			}
			types[s] = gtType(alleles)
			phases[s] = phased
		}
		out["gts"] = blob.Strs(gts)
		out["gt_types"] = blob.Ints32(types)
		out["gt_phases"] = blob.Bools(phases)
	}

	if r.hasFormat("DP") {
		out["gt_depths"] = blob.Ints32(r.intField("DP", 0))
	}
	if r.hasFormat("AD") {
		out["gt_ref_depths"] = blob.Ints32(r.intField("AD", 0))
		out["gt_alt_depths"] = blob.Ints32(r.intField("AD", 1))
	}
	if r.hasFormat("GQ") {
		quals := make([]float32, n)
		for s := 0; s < n; s++ {
			quals[s] = -1
			if v, err := strconv.ParseFloat(r.sampleValue(s, "GQ"), 32); err == nil {
				quals[s] = float32(v)
			}
		}
		out["gt_quals"] = blob.Floats32(quals)
	}
	return out
}

func (r *Record) hasFormat(key string) bool {
	for _, k := range r.format {
		if k == key {
			return true
		}
	}
	return false
}

// intField extracts element 'part' of a comma-separated integer FORMAT field
// for every sample, -1 when missing or unparsable.
func (r *Record) intField(key string, part int) []int32 {
	n := len(r.header.Samples)
	out := make([]int32, n)
	for s := 0; s < n; s++ {
		out[s] = -1
		v := r.sampleValue(s, key)
		if v == "" || v == "." {
			continue
		}
		parts := strings.Split(v, ",")
		if part >= len(parts) {
			continue
		}
		if iv, err := strconv.ParseInt(parts[part], 10, 32); err == nil {
			out[s] = int32(iv)
		}
	}
	return out
}

// CallRate is the fraction of samples with a non-missing genotype call.
func (r *Record) CallRate() float64 {
	n := len(r.header.Samples)
	if n == 0 || !r.hasFormat("GT") {
		return 0
	}
	called := 0
	for s := 0; s < n; s++ {
		alleles, _ := gtAlleles(r.sampleValue(s, "GT"))
		if gtType(alleles) != Unknown {
			called++
		}
	}
	return float64(called) / float64(n)
}

// GenotypeCounts returns the number of hom-ref, het and hom-alt calls.
func (r *Record) GenotypeCounts() (homRef, het, homAlt int) {
	for s := 0; s < len(r.header.Samples); s++ {
		alleles, _ := gtAlleles(r.sampleValue(s, "GT"))
		switch gtType(alleles) {
		case HomRef:
			homRef++
		case Het:
			het++
		case HomAlt:
			homAlt++
		}
	}
	return homRef, het, homAlt
}

// AAF is the alternate allele frequency over called alleles.
func (r *Record) AAF() float64 {
	var alt, called int
	for s := 0; s < len(r.header.Samples); s++ {
		alleles, _ := gtAlleles(r.sampleValue(s, "GT"))
		for _, a := range alleles {
			if a < 0 {
				continue
			}
			called++
			if a > 0 {
				alt++
			}
		}
	}
	if called == 0 {
		return 0
	}
	return float64(alt) / float64(called)
}

// VarType classifies the variant: snp, indel, mnp or unknown.
func (r *Record) VarType() string {
	if len(r.Alts) == 0 {
		return "unknown"
	}
	allSNP, allMNP, allIndel := true, true, true
	for _, alt := range r.Alts {
		if alt == "" || strings.HasPrefix(alt, "<") {
			return "unknown"
		}
		if len(alt) != 1 || len(r.Ref) != 1 {
			allSNP = false
		}
		if len(alt) != len(r.Ref) || len(alt) == 1 {
			allMNP = false
		}
		if len(alt) == len(r.Ref) {
			allIndel = false
		}
	}
	switch {
	case allSNP:
		return "snp"
	case allMNP:
		return "mnp"
	case allIndel:
		return "indel"
	}
	return "unknown"
}

var transitions = map[string]bool{"AG": true, "GA": true, "CT": true, "TC": true}

// VarSubType refines VarType: ts/tv for SNPs, ins/del for indels.
func (r *Record) VarSubType() string {
	switch r.VarType() {
	case "snp":
		if len(r.Alts) == 1 && transitions[r.Ref+r.Alts[0]] {
			return "ts"
		}
		return "tv"
	case "indel":
		ins := true
		for _, alt := range r.Alts {
			if len(alt) <= len(r.Ref) {
				ins = false
			}
		}
		if ins {
			return "ins"
		}
		return "del"
	}
	return "unknown"
}
