// Package vcf provides the variant source: a streaming reader over VCF input
// (plain or gzip) with typed access to header-declared INFO attributes and
// per-sample genotype arrays. The reader is sequential; header text and the
// sample list are available once, before the first record.
package vcf

import (
	"fmt"
	"regexp"
	"strings"
)

// InfoField is one ##INFO (or ##FORMAT) declaration from the header.
type InfoField struct {
	ID          string
	Number      string // "0", "1", "A", "R", "G", "."
	Type        string // Integer, Float, Flag, Character, String
	Description string
}

// Header holds the parsed VCF header. Read-only after parsing.
type Header struct {
	// Raw is the full header text, ## lines plus the #CHROM line.
	Raw string

	Infos     map[string]InfoField
	InfoOrder []string // declaration order of INFO ids
	Formats   map[string]InfoField

	// Samples is the sample-column order of every genotype array.
	Samples []string
}

var metaPatt = regexp.MustCompile(`(\w+)=("[^"]+"|[^,]+)`)

// parseMetaLine decomposes a structured header line such as
//
//	##INFO=<ID=AC,Number=A,Type=Integer,Description="Allele count">
//
// into its key/value pairs. Description values keep their surrounding quotes,
// matching how downstream annotation parsing strips them itself.
func parseMetaLine(line, prefix string) (map[string]string, error) {
	if !strings.HasPrefix(line, prefix) {
		return nil, fmt.Errorf("vcf: line does not start with %s: %q", prefix, line)
	}
	_, stub, ok := strings.Cut(line, "=<")
	if !ok {
		return nil, fmt.Errorf("vcf: malformed header line: %q", line)
	}
	stub = strings.TrimSuffix(stub, ">")
	out := map[string]string{}
	for _, g := range metaPatt.FindAllStringSubmatch(stub, -1) {
		out[g[1]] = g[2]
	}
	return out, nil
}

// ParseHeader parses the header text (every line up to and including #CHROM).
func ParseHeader(raw string) (*Header, error) {
	h := &Header{
		Raw:     raw,
		Infos:   map[string]InfoField{},
		Formats: map[string]InfoField{},
	}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "##INFO=<"):
			d, err := parseMetaLine(line, "##INFO=")
			if err != nil {
				return nil, err
			}
			f := InfoField{ID: d["ID"], Number: d["Number"], Type: d["Type"], Description: d["Description"]}
			h.Infos[f.ID] = f
			h.InfoOrder = append(h.InfoOrder, f.ID)
		case strings.HasPrefix(line, "##FORMAT=<"):
			d, err := parseMetaLine(line, "##FORMAT=")
			if err != nil {
				return nil, err
			}
			f := InfoField{ID: d["ID"], Number: d["Number"], Type: d["Type"], Description: d["Description"]}
			h.Formats[f.ID] = f
		case strings.HasPrefix(line, "#CHROM"):
			cols := strings.Split(line, "\t")
			if len(cols) > 9 {
				h.Samples = append(h.Samples, cols[9:]...)
			}
		}
	}
	if !strings.Contains(raw, "#CHROM") {
		return nil, fmt.Errorf("vcf: header has no #CHROM line")
	}
	return h, nil
}
