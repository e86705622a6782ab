// Package ped loads pedigree files and reconciles them against the VCF
// sample-column order. The result of reconciliation — the samples-table rows
// and the column-index permutation applied to every genotype array — is
// computed once before ingestion and read-only afterwards.
package ped

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
)

// BaseCols are the fixed leading columns of the samples table; free-form
// pedigree attributes follow them.
var BaseCols = []string{
	"sample_id", "family_id", "name", "paternal_id", "maternal_id", "sex", "phenotype",
}

// Sample is one reconciled pedigree entry.
type Sample struct {
	SampleID   int // stable 1-based id, assigned in pedigree order
	FamilyID   string
	Name       string
	PaternalID string
	MaternalID string
	Sex        string // "1" male, "2" female, "-9" unknown
	Phenotype  string // "2" affected, "1" unaffected, "-9" unknown
	Attrs      []string
}

// Pedigree is a parsed PED file, before VCF reconciliation.
type Pedigree struct {
	Samples []Sample
	// ExtraCols names the free-form attribute columns beyond the standard six.
	ExtraCols []string
}

var namePatt = regexp.MustCompile(`-|\s|\\`)

// FixName rewrites characters that are unsafe in identifiers to underscores.
// The pedigree placeholders "0" and "-9" pass through unchanged.
func FixName(s string) string {
	if s == "0" || s == "-9" {
		return s
	}
	return namePatt.ReplaceAllString(s, "_")
}

func normSex(s string) string {
	switch strings.ToLower(s) {
	case "1", "male":
		return "1"
	case "2", "female":
		return "2"
	}
	return "-9"
}

func normPhenotype(s string) string {
	switch strings.ToLower(s) {
	case "2", "true", "affected":
		return "2"
	case "1", "false", "unaffected":
		return "1"
	}
	return "-9"
}

// Load parses a PED file: family_id, sample_id, paternal_id, maternal_id,
// sex, phenotype, then free-form attribute columns. A leading '#' header line
// names the attribute columns; without one they are numbered.
func Load(path string) (*Pedigree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ped: open: %w", err)
	}
	defer f.Close()

	p := &Pedigree{}
	scan := bufio.NewScanner(f)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if strings.HasPrefix(line, "#") {
			if lineNo == 1 && len(fields) > 6 {
				p.ExtraCols = fields[6:]
			}
			continue
		}
		if len(fields) < 6 {
			return nil, fmt.Errorf("ped: line %d: only %d columns", lineNo, len(fields))
		}
		s := Sample{
			FamilyID:   fields[0],
			Name:       fields[1],
			PaternalID: fields[2],
			MaternalID: fields[3],
			Sex:        normSex(fields[4]),
			Phenotype:  normPhenotype(fields[5]),
			Attrs:      fields[6:],
		}
		if len(s.Attrs) > len(p.ExtraCols) {
			for i := len(p.ExtraCols); i < len(s.Attrs); i++ {
				p.ExtraCols = append(p.ExtraCols, fmt.Sprintf("attr_%d", i+1))
			}
		}
		p.Samples = append(p.Samples, s)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("ped: read: %w", err)
	}
	return p, nil
}

// Cohort is the reconciled sample set.
type Cohort struct {
	// Rows hold the samples-table contents, sample_id assigned 1..n in
	// pedigree order, restricted to samples present in the VCF.
	Rows []Sample

	// Names are the fixed sample names in Rows order.
	Names []string

	// Idxs maps Rows order to VCF sample-column index. Every genotype array
	// is permuted through this before encoding, so the i-th element of a
	// decoded array always belongs to Rows[i].
	Idxs []int

	ExtraCols []string
}

// Reconcile aligns a pedigree with the VCF sample list. Pedigree samples
// missing from the VCF are skipped with a warning, matching how partial
// pedigrees are usually handled. A nil pedigree yields an identity cohort
// covering every VCF sample.
func Reconcile(p *Pedigree, vcfSamples []string) (*Cohort, error) {
	fixed := make([]string, len(vcfSamples))
	pos := map[string]int{}
	for i, s := range vcfSamples {
		fixed[i] = FixName(s)
		pos[fixed[i]] = i
	}

	c := &Cohort{}
	if p == nil {
		for i, name := range fixed {
			c.Rows = append(c.Rows, Sample{
				SampleID: i + 1, FamilyID: name, Name: name,
				PaternalID: "0", MaternalID: "0", Sex: "-9", Phenotype: "-9",
			})
			c.Names = append(c.Names, name)
			c.Idxs = append(c.Idxs, i)
		}
		return c, nil
	}

	c.ExtraCols = p.ExtraCols
	id := 0
	for _, s := range p.Samples {
		name := FixName(s.Name)
		idx, ok := pos[name]
		if !ok {
			log.Printf("ped: sample %s not in VCF, skipping", s.Name)
			continue
		}
		id++
		row := s
		row.SampleID = id
		row.Name = name
		row.PaternalID = FixName(row.PaternalID)
		row.MaternalID = FixName(row.MaternalID)
		c.Rows = append(c.Rows, row)
		c.Names = append(c.Names, name)
		c.Idxs = append(c.Idxs, idx)
	}
	if len(c.Rows) == 0 {
		return nil, fmt.Errorf("ped: no pedigree sample matches the VCF sample list")
	}
	return c, nil
}
