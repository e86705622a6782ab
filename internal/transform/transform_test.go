package transform

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"vcfdb/internal/annotation"
	"vcfdb/internal/blob"
	"vcfdb/internal/vcf"
)

const testHeader = `##fileformat=VCFv4.2
##INFO=<ID=AC,Number=A,Type=Integer,Description="Allele count">
##INFO=<ID=AF,Number=A,Type=Float,Description="Allele frequency">
##INFO=<ID=CSQ,Number=.,Type=String,Description="Consequence annotations from Ensembl VEP. Format: Consequence|SYMBOL|Feature|BIOTYPE|EXON|Amino_acids|Codons|Protein_position|PolyPhen|SIFT">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Read depth">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	mom	dad	kid
`

const csqValue = "stop_gained|GENE_A|tx1|protein_coding|2/10|Q/*|Cag/Tag|100/300|probably_damaging(0.98)|deleterious(0.01)," +
	"missense_variant|GENE_B|tx2|protein_coding||||||," +
	"stop_lost|GENE_C|tx3|protein_coding||||||"

var testLine = "chr1\t100\trs1\tA\tG\t9.9\tPASS\tAC=2;AF=0.33;CSQ=" + csqValue +
	"\tGT:DP\t0/1:10\t0/0:20\t1/1:30\n"

func testTransformer(t *testing.T) (*Transformer, *vcf.Record) {
	t.Helper()
	r, err := vcf.NewReader(strings.NewReader(testHeader + testLine))
	if err != nil {
		t.Fatal(err)
	}
	hdr := r.Header()
	reg := annotation.NewRegistry()
	if err := reg.Register("CSQ", hdr.Infos["CSQ"].Description); err != nil {
		t.Fatal(err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	return &Transformer{
		Header:      hdr,
		Registry:    reg,
		Codec:       blob.Snappy{},
		SampleIdxs:  []int{2, 1, 0},
		SampleNames: []string{"kid", "dad", "mom"},
	}, rec
}

func TestTransformPrimaryRow(t *testing.T) {
	t.Parallel()
	tr, rec := testTransformer(t)
	row, err := tr.Transform(rec, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(row.Faults) != 0 {
		t.Fatalf("unexpected faults: %v", row.Faults)
	}
	m := row.Variant

	want := map[string]any{
		"variant_id": int64(7),
		"chrom":      "chr1",
		"start":      99,
		"end":        100,
		"vcf_id":     "rs1",
		"ref":        "A",
		"alt":        "G",
		"type":       "snp",
		"sub_type":   "ts",
		"ac":         int64(2),
		"af":         0.33,
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s = %v (%T), want %v", k, m[k], m[k], v)
		}
	}
	if _, ok := m["filter"]; ok {
		t.Error("PASS filter should be absent")
	}
	if m["num_het"] != 1 || m["num_hom_ref"] != 1 || m["num_hom_alt"] != 1 {
		t.Errorf("genotype counts: het=%v hom_ref=%v hom_alt=%v",
			m["num_het"], m["num_hom_ref"], m["num_hom_alt"])
	}
}

func TestTransformImpactProjection(t *testing.T) {
	t.Parallel()
	tr, rec := testTransformer(t)
	row, err := tr.Transform(rec, 1)
	if err != nil {
		t.Fatal(err)
	}
	m := row.Variant

	// two HIGH candidates: the earlier-decoded one is projected
	if m["gene"] != "GENE_A" {
		t.Fatalf("projected gene = %v, want GENE_A", m["gene"])
	}
	if m["impact"] != "stop_gained" || m["impact_severity"] != "HIGH" {
		t.Fatalf("impact = %v / %v", m["impact"], m["impact_severity"])
	}
	if m["is_lof"] != true || m["is_coding"] != true {
		t.Fatalf("flags: is_lof=%v is_coding=%v", m["is_lof"], m["is_coding"])
	}
	if got := m["polyphen_score"]; got != 0.98 {
		t.Fatalf("polyphen_score = %v", got)
	}

	if len(row.Impacts) != 3 {
		t.Fatalf("impact rows = %d, want 3", len(row.Impacts))
	}
	genes := make([]string, 0, 3)
	for _, im := range row.Impacts {
		if im["variant_id"] != int64(1) {
			t.Fatalf("impact row missing variant_id: %v", im)
		}
		genes = append(genes, im["gene"].(string))
	}
	if strings.Join(genes, ",") != "GENE_A,GENE_B,GENE_C" {
		t.Fatalf("impact genes = %v", genes)
	}
}

func TestTransformGenotypeBlobs(t *testing.T) {
	t.Parallel()
	tr, rec := testTransformer(t)
	row, err := tr.Transform(rec, 1)
	if err != nil {
		t.Fatal(err)
	}

	gts, err := tr.Codec.Decode(row.Variant["gts"].([]byte))
	if err != nil {
		t.Fatal(err)
	}
	// cohort order kid, dad, mom
	if got := strings.Join(gts.Strings, " "); got != "G/G A/A A/G" {
		t.Fatalf("gts = %q", got)
	}

	types, err := tr.Codec.Decode(row.Variant["gt_types"].([]byte))
	if err != nil {
		t.Fatal(err)
	}
	if types.Ints[0] != vcf.HomAlt || types.Ints[1] != vcf.HomRef || types.Ints[2] != vcf.Het {
		t.Fatalf("gt_types = %v", types.Ints)
	}

	depths, err := tr.Codec.Decode(row.Variant["gt_depths"].([]byte))
	if err != nil {
		t.Fatal(err)
	}
	if depths.Ints[0] != 30 || depths.Ints[1] != 20 || depths.Ints[2] != 10 {
		t.Fatalf("gt_depths = %v", depths.Ints)
	}

	// GQ never appeared in FORMAT: the column still gets the canonical
	// absent blob
	quals := row.Variant["gt_quals"].([]byte)
	if a, err := tr.Codec.Decode(quals); err != nil || a != nil {
		t.Fatalf("gt_quals = %v, %v", a, err)
	}
}

func TestTransformExpansion(t *testing.T) {
	t.Parallel()
	tr, rec := testTransformer(t)
	tr.Expand = []string{"gt_types", "gt_quals"}
	row, err := tr.Transform(rec, 5)
	if err != nil {
		t.Fatal(err)
	}

	wide := row.Expansions["gt_types"]
	if wide == nil {
		t.Fatal("missing gt_types expansion")
	}
	if wide["variant_id"] != int64(5) {
		t.Fatalf("expansion variant_id = %v", wide["variant_id"])
	}
	if wide["sample_kid"] != int32(vcf.HomAlt) || wide["sample_dad"] != int32(vcf.HomRef) || wide["sample_mom"] != int32(vcf.Het) {
		t.Fatalf("expansion row = %v", wide)
	}

	// absent attribute expands to NULLs
	quals := row.Expansions["gt_quals"]
	if quals["sample_kid"] != nil {
		t.Fatalf("gt_quals expansion = %v", quals)
	}
}

func TestTransformDecodeFaultIsolation(t *testing.T) {
	t.Parallel()
	bad := "chr1\t200\t.\tC\tT\t1\t.\tCSQ=missense_variant|GENE_B|tx2|protein_coding||||||,short|entry\tGT:DP\t0/0:1\t0/0:1\t0/0:1\n"
	r, err := vcf.NewReader(strings.NewReader(testHeader + bad))
	if err != nil {
		t.Fatal(err)
	}
	reg := annotation.NewRegistry()
	if err := reg.Register("CSQ", r.Header().Infos["CSQ"].Description); err != nil {
		t.Fatal(err)
	}
	tr := &Transformer{Header: r.Header(), Registry: reg, Codec: blob.Snappy{}}
	rec, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}

	row, err := tr.Transform(rec, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(row.Faults) != 1 {
		t.Fatalf("faults = %v, want exactly one", row.Faults)
	}
	if len(row.Impacts) != 1 || row.Variant["gene"] != "GENE_B" {
		t.Fatalf("surviving candidate lost: impacts=%d gene=%v", len(row.Impacts), row.Variant["gene"])
	}
}

func TestStreamPreservesOrder(t *testing.T) {
	t.Parallel()
	var sb strings.Builder
	sb.WriteString(testHeader)
	const n = 50
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "chr1\t%d\t.\tA\tG\t1\t.\tAC=1\tGT:DP\t0/1:1\t0/0:2\t1/1:3\n", 100+i)
	}
	r, err := vcf.NewReader(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatal(err)
	}
	tr := &Transformer{Header: r.Header(), Registry: annotation.NewRegistry(), Codec: blob.Snappy{}}

	jobs := make(chan Job)
	go func() {
		defer close(jobs)
		id := int64(0)
		for {
			rec, err := r.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				t.Error(err)
				return
			}
			id++
			jobs <- Job{Rec: rec, ID: id}
		}
	}()

	out, wait := tr.Stream(context.Background(), 4, jobs)
	var got []int64
	for row := range out {
		got = append(got, row.VariantID)
	}
	if err := wait(); err != nil {
		t.Fatal(err)
	}
	if len(got) != n {
		t.Fatalf("rows = %d, want %d", len(got), n)
	}
	for i, id := range got {
		if id != int64(i+1) {
			t.Fatalf("order broken at %d: %v", i, got[:i+1])
		}
	}
}
