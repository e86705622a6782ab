package annotation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Candidate is one decoded transcript-level consequence prediction. Multiple
// candidates may exist per variant; the transform keeps all of them for the
// impact table and projects only the most severe onto the primary row.
type Candidate struct {
	Gene       string
	Transcript string

	IsExonic   bool
	IsCoding   bool
	IsLof      bool
	IsSplicing bool

	Exon        string
	CodonChange string
	AaChange    string
	AaLength    string
	Biotype     string

	// Consequence is the single most severe term for this candidate; SO is
	// the same term in Sequence Ontology vocabulary where available.
	Consequence string
	SO          string
	Severity    string

	PolyphenPred  string
	PolyphenScore *float64
	SiftPred      string
	SiftScore     *float64

	// ordinal is the candidate's position in decode order; it breaks
	// severity ties so the representative choice is reproducible.
	ordinal int
}

// Decode splits one raw annotation INFO value (comma-separated entries) into
// candidates using the registry's declared sub-field order. A malformed entry
// is returned in errs with its entry index and skipped; the remaining entries
// still decode. The first ordinal assigned is ordBase.
func Decode(enc Encoding, raw string, reg *Registry, ordBase int) (cands []Candidate, errs []error) {
	fields := reg.Subfields(enc)
	for i, entry := range strings.Split(raw, ",") {
		var (
			c   Candidate
			err error
		)
		switch enc {
		case CSQ:
			c, err = decodeCSQ(entry, fields)
		case ANN:
			c, err = decodeANN(entry, fields)
		case EFF:
			c, err = decodeEFF(entry, fields)
		default:
			err = fmt.Errorf("%w: %s", ErrUnknownEncoding, enc)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("annotation: %s entry %d: %w", enc, i, err))
			continue
		}
		c.ordinal = ordBase + len(cands)
		cands = append(cands, c)
	}
	return cands, errs
}

// zip maps positional values onto their declared sub-field names. The value
// count must match the declared arity.
func zip(entry string, fields []string, split *regexp.Regexp) (map[string]string, error) {
	var vals []string
	if split != nil {
		vals = split.Split(entry, -1)
	} else {
		vals = strings.Split(entry, "|")
	}
	if len(vals) != len(fields) {
		return nil, fmt.Errorf("have %d values for %d declared sub-fields", len(vals), len(fields))
	}
	m := make(map[string]string, len(fields))
	for i, f := range fields {
		m[strings.ToLower(f)] = strings.TrimSpace(vals[i])
	}
	return m, nil
}

// predScore parses VEP's "pred(score)" form, e.g. "probably_damaging(0.998)".
func predScore(s string) (pred string, score *float64) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return s, nil
	}
	pred = s[:open]
	if v, err := strconv.ParseFloat(s[open+1:len(s)-1], 64); err == nil {
		score = &v
	}
	return pred, score
}

func decodeCSQ(entry string, fields []string) (Candidate, error) {
	m, err := zip(entry, fields, nil)
	if err != nil {
		return Candidate{}, err
	}

	term, sev := topTerm(m["consequence"])
	c := Candidate{
		Gene:        m["symbol"],
		Transcript:  m["feature"],
		Exon:        m["exon"],
		CodonChange: m["codons"],
		AaChange:    m["amino_acids"],
		Biotype:     m["biotype"],
		Consequence: term,
		SO:          term,
		Severity:    sev,
	}
	if c.Gene == "" {
		c.Gene = m["gene"]
	}
	if p := m["protein_position"]; p != "" {
		c.AaLength = p
	}
	c.PolyphenPred, c.PolyphenScore = predScore(m["polyphen"])
	c.SiftPred, c.SiftScore = predScore(m["sift"])
	classify(&c, m["consequence"])
	return c, nil
}

func decodeANN(entry string, fields []string) (Candidate, error) {
	m, err := zip(entry, fields, annSplit)
	if err != nil {
		return Candidate{}, err
	}

	term, _ := topTerm(m["annotation"])
	c := Candidate{
		Gene:        m["gene_name"],
		Transcript:  m["feature_id"],
		Exon:        m["rank"],
		CodonChange: m["hgvs.c"],
		AaChange:    m["hgvs.p"],
		Biotype:     m["transcript_biotype"],
		Consequence: term,
		SO:          term,
		Severity:    annImpact(m["annotation_impact"]),
	}
	if c.Severity == "" {
		_, c.Severity = topTerm(m["annotation"])
	}
	if p := m["aa.pos / aa.length"]; p != "" {
		if _, l, ok := strings.Cut(p, "/"); ok {
			c.AaLength = strings.TrimSpace(l)
		}
	}
	classify(&c, m["annotation"])
	return c, nil
}

var effEntry = regexp.MustCompile(`^\s*([^\(]+)\(([^\)]*)\)\s*$`)

func decodeEFF(entry string, fields []string) (Candidate, error) {
	// EFF entries look like EFFECT(Impact|Class|Codon|AA|len|Gene|...).
	g := effEntry.FindStringSubmatch(entry)
	if g == nil {
		return Candidate{}, fmt.Errorf("entry %q is not EFFECT(...) shaped", entry)
	}
	effect := strings.TrimSpace(g[1])
	vals := append([]string{effect}, strings.Split(g[2], "|")...)
	if len(vals) > len(fields) {
		vals = vals[:len(fields)]
	}
	for len(vals) < len(fields) {
		vals = append(vals, "")
	}
	m := make(map[string]string, len(fields))
	for i, f := range fields {
		m[strings.ToLower(f)] = strings.TrimSpace(vals[i])
	}

	c := Candidate{
		Gene:        m["gene_name"],
		Transcript:  m["transcript_id"],
		Exon:        m["exon"],
		CodonChange: m["codon_change"],
		AaChange:    m["amino_acid_change"],
		AaLength:    m["amino_acid_length"],
		Biotype:     m["transcript_biotype"],
		Consequence: effect,
		SO:          effect,
		Severity:    annImpact(m["effect_impact"]),
	}
	if c.Severity == "" {
		c.Severity = severityOf(effect)
	}
	classify(&c, effect)
	return c, nil
}

// annImpact maps SnpEff's impact vocabulary onto the severity buckets.
func annImpact(impact string) string {
	switch strings.ToUpper(impact) {
	case "HIGH":
		return SeverityHigh
	case "MODERATE":
		return SeverityMed
	case "LOW", "MODIFIER":
		return SeverityLow
	}
	return ""
}

// classify derives the boolean flags from the candidate's consequence terms.
func classify(c *Candidate, consequence string) {
	c.IsLof = anyTerm(consequence, lofTerms)
	c.IsSplicing = anyTerm(consequence, splicingTerms)
	c.IsCoding = anyTerm(consequence, codingTerms)
	c.IsExonic = c.IsCoding || anyTerm(consequence, exonicTerms)
}

// TopSeverity picks the representative candidate: highest severity wins, and
// equal severities keep the earliest-decoded candidate. Returns nil for an
// empty slice; the caller substitutes neutral values and must not insert the
// sentinel into the impact table.
func TopSeverity(cands []Candidate) *Candidate {
	var top *Candidate
	for i := range cands {
		c := &cands[i]
		if top == nil ||
			rankOf(c.Severity) > rankOf(top.Severity) ||
			(rankOf(c.Severity) == rankOf(top.Severity) && c.ordinal < top.ordinal) {
			top = c
		}
	}
	return top
}
