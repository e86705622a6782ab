package annotation

import "strings"

// Severity buckets consequence terms the way downstream tooling expects:
// HIGH > MED > LOW. An empty severity ranks below LOW.
const (
	SeverityHigh = "HIGH"
	SeverityMed  = "MED"
	SeverityLow  = "LOW"
)

var severityRank = map[string]int{
	SeverityHigh: 3,
	SeverityMed:  2,
	SeverityLow:  1,
}

// rankOf returns the comparable rank of a severity label.
func rankOf(severity string) int { return severityRank[severity] }

// consequenceSeverity maps Sequence Ontology terms (and the legacy SnpEff
// vocabulary) to a severity bucket. Terms absent from the table rank LOW.
var consequenceSeverity = map[string]string{
	// HIGH
	"transcript_ablation":       SeverityHigh,
	"exon_loss_variant":         SeverityHigh,
	"splice_acceptor_variant":   SeverityHigh,
	"splice_donor_variant":      SeverityHigh,
	"stop_gained":               SeverityHigh,
	"frameshift_variant":        SeverityHigh,
	"stop_lost":                 SeverityHigh,
	"start_lost":                SeverityHigh,
	"initiator_codon_variant":   SeverityHigh,
	"rare_amino_acid_variant":   SeverityHigh,
	"transcript_amplification":  SeverityHigh,
	"STOP_GAINED":               SeverityHigh,
	"STOP_LOST":                 SeverityHigh,
	"START_LOST":                SeverityHigh,
	"FRAME_SHIFT":               SeverityHigh,
	"SPLICE_SITE_ACCEPTOR":      SeverityHigh,
	"SPLICE_SITE_DONOR":         SeverityHigh,
	"EXON_DELETED":              SeverityHigh,
	"RARE_AMINO_ACID":           SeverityHigh,

	// MED
	"missense_variant":                 SeverityMed,
	"inframe_insertion":                SeverityMed,
	"inframe_deletion":                 SeverityMed,
	"disruptive_inframe_insertion":     SeverityMed,
	"disruptive_inframe_deletion":      SeverityMed,
	"protein_altering_variant":         SeverityMed,
	"coding_sequence_variant":          SeverityMed,
	"regulatory_region_ablation":       SeverityMed,
	"5_prime_UTR_premature_start_codon_gain_variant": SeverityMed,
	"NON_SYNONYMOUS_CODING":            SeverityMed,
	"CODON_CHANGE":                     SeverityMed,
	"CODON_INSERTION":                  SeverityMed,
	"CODON_DELETION":                   SeverityMed,
	"CODON_CHANGE_PLUS_CODON_INSERTION": SeverityMed,
	"CODON_CHANGE_PLUS_CODON_DELETION": SeverityMed,
	"UTR_5_DELETED":                    SeverityMed,
	"UTR_3_DELETED":                    SeverityMed,
}

// splicingTerms mark a candidate as splice-affecting.
var splicingTerms = map[string]bool{
	"splice_acceptor_variant":  true,
	"splice_donor_variant":     true,
	"splice_region_variant":    true,
	"SPLICE_SITE_ACCEPTOR":     true,
	"SPLICE_SITE_DONOR":        true,
	"SPLICE_SITE_REGION":       true,
	"SPLICE_SITE_BRANCH":       true,
}

// lofTerms mark a candidate as loss-of-function.
var lofTerms = map[string]bool{
	"transcript_ablation":     true,
	"exon_loss_variant":       true,
	"splice_acceptor_variant": true,
	"splice_donor_variant":    true,
	"stop_gained":             true,
	"frameshift_variant":      true,
	"stop_lost":               true,
	"start_lost":              true,
	"STOP_GAINED":             true,
	"STOP_LOST":               true,
	"START_LOST":              true,
	"FRAME_SHIFT":             true,
	"SPLICE_SITE_ACCEPTOR":    true,
	"SPLICE_SITE_DONOR":       true,
	"EXON_DELETED":            true,
}

// codingTerms mark a candidate as altering the coding sequence.
var codingTerms = map[string]bool{
	"missense_variant":             true,
	"synonymous_variant":           true,
	"stop_retained_variant":        true,
	"start_retained_variant":       true,
	"stop_gained":                  true,
	"stop_lost":                    true,
	"start_lost":                   true,
	"frameshift_variant":           true,
	"inframe_insertion":            true,
	"inframe_deletion":             true,
	"disruptive_inframe_insertion": true,
	"disruptive_inframe_deletion":  true,
	"protein_altering_variant":     true,
	"coding_sequence_variant":      true,
	"NON_SYNONYMOUS_CODING":        true,
	"SYNONYMOUS_CODING":            true,
	"SYNONYMOUS_STOP":              true,
	"NON_SYNONYMOUS_START":         true,
	"CODON_CHANGE":                 true,
	"CODON_INSERTION":              true,
	"CODON_DELETION":               true,
	"FRAME_SHIFT":                  true,
	"STOP_GAINED":                  true,
	"STOP_LOST":                    true,
	"START_LOST":                   true,
}

// exonicTerms mark a candidate as falling inside an exon; the coding set plus
// UTR and non-coding exon terms.
var exonicTerms = map[string]bool{
	"5_prime_UTR_variant":                true,
	"3_prime_UTR_variant":                true,
	"non_coding_transcript_exon_variant": true,
	"non_coding_exon_variant":            true,
	"UTR_5_PRIME":                        true,
	"UTR_3_PRIME":                        true,
	"EXON":                               true,
}

// severityOf returns the severity bucket for one consequence term.
func severityOf(term string) string {
	if s, ok := consequenceSeverity[term]; ok {
		return s
	}
	return SeverityLow
}

// topTerm splits a possibly '&'-joined consequence value and returns the
// single most severe term plus its severity. Ties keep the first term.
func topTerm(consequence string) (term, severity string) {
	terms := strings.Split(consequence, "&")
	term, severity = terms[0], severityOf(terms[0])
	for _, t := range terms[1:] {
		if s := severityOf(t); rankOf(s) > rankOf(severity) {
			term, severity = t, s
		}
	}
	return term, severity
}

func anyTerm(consequence string, set map[string]bool) bool {
	for _, t := range strings.Split(consequence, "&") {
		if set[t] {
			return true
		}
	}
	return false
}
