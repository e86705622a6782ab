package annotation

import (
	"errors"
	"reflect"
	"testing"
)

const csqDesc = `"Consequence annotations from Ensembl VEP. Format: Allele|Consequence|IMPACT|SYMBOL|Gene|Feature_type|Feature|BIOTYPE|EXON|Codons|Amino_acids|Protein_position|SIFT|PolyPhen"`

const annDesc = `"Functional annotations: 'Allele | Annotation | Annotation_Impact | Gene_Name | Gene_ID | Feature_Type | Feature_ID | Transcript_BioType | Rank | HGVS.c | HGVS.p | cDNA.pos / cDNA.length | CDS.pos / CDS.length | AA.pos / AA.length | Distance | ERRORS / WARNINGS / INFO'"`

const effDesc = `"Predicted effects for this variant.Format: 'Effect ( Effect_Impact | Functional_Class | Codon_Change | Amino_Acid_Change| Amino_Acid_length | Gene_Name | Transcript_BioType | Gene_Coding | Transcript_ID | Exon | GenotypeNum [ | ERRORS | WARNINGS ] )'"`

func TestRegister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register("CSQ", csqDesc); err != nil {
		t.Fatalf("register CSQ: %v", err)
	}
	want := []string{"Allele", "Consequence", "IMPACT", "SYMBOL", "Gene", "Feature_type",
		"Feature", "BIOTYPE", "EXON", "Codons", "Amino_acids", "Protein_position", "SIFT", "PolyPhen"}
	if got := r.Subfields(CSQ); !reflect.DeepEqual(got, want) {
		t.Fatalf("CSQ subfields = %v; want %v", got, want)
	}

	if err := r.Register("ANN", annDesc); err != nil {
		t.Fatalf("register ANN: %v", err)
	}
	ann := r.Subfields(ANN)
	if len(ann) != 16 || ann[0] != "Allele" || ann[1] != "Annotation" || ann[13] != "AA.pos / AA.length" {
		t.Fatalf("ANN subfields = %v", ann)
	}

	if err := r.Register("EFF", effDesc); err != nil {
		t.Fatalf("register EFF: %v", err)
	}
	eff := r.Subfields(EFF)
	if eff[0] != "Effect" || eff[1] != "Effect_Impact" {
		t.Fatalf("EFF subfields = %v", eff)
	}
}

func TestRegisterUnknownEncoding(t *testing.T) {
	t.Parallel()

	err := NewRegistry().Register("XYZ", `"whatever: A|B"`)
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Fatalf("err = %v; want ErrUnknownEncoding", err)
	}
}

func TestDecodeCSQ(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register("CSQ", csqDesc); err != nil {
		t.Fatal(err)
	}

	raw := "A|missense_variant|MODERATE|BRCA1|ENSG00000012048|Transcript|ENST00000357654|protein_coding|10/23|gCa/gTa|A/V|1234|deleterious(0.01)|probably_damaging(0.998)"
	cands, errs := Decode(CSQ, raw, r, 0)
	if len(errs) != 0 {
		t.Fatalf("decode errors: %v", errs)
	}
	if len(cands) != 1 {
		t.Fatalf("got %d candidates", len(cands))
	}
	c := cands[0]
	if c.Gene != "BRCA1" || c.Transcript != "ENST00000357654" {
		t.Fatalf("gene/transcript = %q/%q", c.Gene, c.Transcript)
	}
	if c.Consequence != "missense_variant" || c.Severity != SeverityMed {
		t.Fatalf("consequence/severity = %q/%q", c.Consequence, c.Severity)
	}
	if !c.IsCoding || !c.IsExonic || c.IsLof || c.IsSplicing {
		t.Fatalf("flags = coding:%v exonic:%v lof:%v splicing:%v", c.IsCoding, c.IsExonic, c.IsLof, c.IsSplicing)
	}
	if c.SiftPred != "deleterious" || c.SiftScore == nil || *c.SiftScore != 0.01 {
		t.Fatalf("sift = %q %v", c.SiftPred, c.SiftScore)
	}
	if c.PolyphenPred != "probably_damaging" || c.PolyphenScore == nil || *c.PolyphenScore != 0.998 {
		t.Fatalf("polyphen = %q %v", c.PolyphenPred, c.PolyphenScore)
	}
}

func TestDecodeANN(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register("ANN", annDesc); err != nil {
		t.Fatal(err)
	}

	raw := "T|stop_gained|HIGH|TP53|ENSG00000141510|transcript|ENST00000269305|protein_coding|7/11|c.637C>T|p.Arg213Ter|637/1182|637/1182|213/393||"
	cands, errs := Decode(ANN, raw, r, 0)
	if len(errs) != 0 {
		t.Fatalf("decode errors: %v", errs)
	}
	c := cands[0]
	if c.Severity != SeverityHigh || !c.IsLof {
		t.Fatalf("severity/lof = %q/%v", c.Severity, c.IsLof)
	}
	if c.Gene != "TP53" || c.AaChange != "p.Arg213Ter" || c.AaLength != "393" {
		t.Fatalf("gene/aa = %q %q %q", c.Gene, c.AaChange, c.AaLength)
	}
}

func TestDecodeEFF(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register("EFF", effDesc); err != nil {
		t.Fatal(err)
	}

	raw := "NON_SYNONYMOUS_CODING(MODERATE|MISSENSE|gCa/gTa|A159V|459|CCDC148|protein_coding|CODING|NM_138803|5|1)"
	cands, errs := Decode(EFF, raw, r, 0)
	if len(errs) != 0 {
		t.Fatalf("decode errors: %v", errs)
	}
	c := cands[0]
	if c.Consequence != "NON_SYNONYMOUS_CODING" || c.Severity != SeverityMed {
		t.Fatalf("consequence/severity = %q/%q", c.Consequence, c.Severity)
	}
	if c.Gene != "CCDC148" || c.Transcript != "NM_138803" || c.Exon != "5" {
		t.Fatalf("gene/transcript/exon = %q %q %q", c.Gene, c.Transcript, c.Exon)
	}
	if c.AaChange != "A159V" || c.AaLength != "459" {
		t.Fatalf("aa = %q %q", c.AaChange, c.AaLength)
	}
}

func TestDecodeMalformedEntryIsIsolated(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register("ANN", annDesc); err != nil {
		t.Fatal(err)
	}

	// Second entry has the wrong arity; first and third still decode.
	raw := "T|stop_gained|HIGH|TP53|g1|transcript|tx1|protein_coding|1/1|c.1A>T|p.X|1/1|1/1|1/1||" +
		",bogus|entry" +
		",T|synonymous_variant|LOW|TP53|g1|transcript|tx2|protein_coding|1/1|c.2A>T|p.Y|1/1|1/1|1/1||"
	cands, errs := Decode(ANN, raw, r, 0)
	if len(errs) != 1 {
		t.Fatalf("want 1 decode error, got %v", errs)
	}
	if len(cands) != 2 {
		t.Fatalf("want 2 surviving candidates, got %d", len(cands))
	}
	if cands[0].ordinal != 0 || cands[1].ordinal != 1 {
		t.Fatalf("ordinals = %d,%d", cands[0].ordinal, cands[1].ordinal)
	}
}

// Three candidates at severities HIGH, MED, HIGH: the first HIGH must win,
// reproducibly.
func TestTopSeverityTieBreak(t *testing.T) {
	t.Parallel()

	cands := []Candidate{
		{Gene: "first", Severity: SeverityHigh, ordinal: 0},
		{Gene: "mid", Severity: SeverityMed, ordinal: 1},
		{Gene: "second", Severity: SeverityHigh, ordinal: 2},
	}
	for i := 0; i < 50; i++ {
		top := TopSeverity(cands)
		if top == nil || top.Gene != "first" {
			t.Fatalf("iteration %d: top = %+v; want gene 'first'", i, top)
		}
	}

	if TopSeverity(nil) != nil {
		t.Fatal("TopSeverity(nil) must be nil")
	}
}
