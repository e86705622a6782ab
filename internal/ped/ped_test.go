package ped

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFixName(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"NA-001", "NA_001"},
		{"fam 1\\a", "fam_1_a"},
		{"0", "0"},
		{"-9", "-9"},
		{"plain", "plain"},
	}
	for _, c := range cases {
		if got := FixName(c.in); got != c.want {
			t.Fatalf("FixName(%q) = %q; want %q", c.in, got, c.want)
		}
	}
}

func writePed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ped")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndReconcile(t *testing.T) {
	t.Parallel()

	path := writePed(t, `#family_id sample_id paternal_id maternal_id sex phenotype ethnicity
fam1 kid-1 dad1 mom1 1 2 EUR
fam1 dad1 0 0 male 1 EUR
fam1 mom1 0 0 2 unaffected EUR
fam2 ghost 0 0 1 1 AFR
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.Samples) != 4 {
		t.Fatalf("got %d samples", len(p.Samples))
	}
	if !reflect.DeepEqual(p.ExtraCols, []string{"ethnicity"}) {
		t.Fatalf("extra cols = %v", p.ExtraCols)
	}

	// VCF column order differs from pedigree order; "ghost" is absent.
	c, err := Reconcile(p, []string{"mom1", "dad1", "kid-1"})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !reflect.DeepEqual(c.Names, []string{"kid_1", "dad1", "mom1"}) {
		t.Fatalf("names = %v", c.Names)
	}
	if !reflect.DeepEqual(c.Idxs, []int{2, 1, 0}) {
		t.Fatalf("idxs = %v", c.Idxs)
	}
	for i, r := range c.Rows {
		if r.SampleID != i+1 {
			t.Fatalf("sample_id[%d] = %d", i, r.SampleID)
		}
	}
	if c.Rows[1].Sex != "1" || c.Rows[2].Sex != "2" {
		t.Fatalf("sex normalization: %q %q", c.Rows[1].Sex, c.Rows[2].Sex)
	}
	if c.Rows[0].Phenotype != "2" || c.Rows[2].Phenotype != "1" {
		t.Fatalf("phenotype normalization: %q %q", c.Rows[0].Phenotype, c.Rows[2].Phenotype)
	}
}

func TestReconcileNilPedigree(t *testing.T) {
	t.Parallel()

	c, err := Reconcile(nil, []string{"s-1", "s2"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.Names, []string{"s_1", "s2"}) {
		t.Fatalf("names = %v", c.Names)
	}
	if !reflect.DeepEqual(c.Idxs, []int{0, 1}) {
		t.Fatalf("idxs = %v", c.Idxs)
	}
}

func TestReconcileNoOverlap(t *testing.T) {
	t.Parallel()

	path := writePed(t, "fam1 a 0 0 1 1\n")
	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Reconcile(p, []string{"x", "y"}); err == nil {
		t.Fatal("want error when no pedigree sample matches the VCF")
	}
}
