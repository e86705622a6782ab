package transform

import (
	"context"
	"strings"
	"testing"

	"vcfdb/internal/annotation"
	"vcfdb/internal/blob"
	"vcfdb/internal/vcf"
)

// BenchmarkTransform exercises the per-record hot path: INFO typing,
// annotation decode, severity collapse and genotype blob encoding, without
// involving I/O or a database.
//
// Run with:
//
//	go test -run=^$ -bench ^BenchmarkTransform$ -count=1
func BenchmarkTransform(b *testing.B) {
	r, err := vcf.NewReader(strings.NewReader(testHeader + testLine))
	if err != nil {
		b.Fatal(err)
	}
	hdr := r.Header()
	reg := annotation.NewRegistry()
	if err := reg.Register("CSQ", hdr.Infos["CSQ"].Description); err != nil {
		b.Fatal(err)
	}
	rec, err := r.Next()
	if err != nil {
		b.Fatal(err)
	}
	tr := &Transformer{
		Header:      hdr,
		Registry:    reg,
		Codec:       blob.Snappy{},
		SampleIdxs:  []int{0, 1, 2},
		SampleNames: []string{"mom", "dad", "kid"},
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tr.Transform(rec, int64(i+1)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkStream measures the ordered fan-out around the same hot path.
func BenchmarkStream(b *testing.B) {
	r, err := vcf.NewReader(strings.NewReader(testHeader + testLine))
	if err != nil {
		b.Fatal(err)
	}
	hdr := r.Header()
	reg := annotation.NewRegistry()
	if err := reg.Register("CSQ", hdr.Infos["CSQ"].Description); err != nil {
		b.Fatal(err)
	}
	rec, err := r.Next()
	if err != nil {
		b.Fatal(err)
	}
	tr := &Transformer{
		Header:      hdr,
		Registry:    reg,
		Codec:       blob.Snappy{},
		SampleIdxs:  []int{0, 1, 2},
		SampleNames: []string{"mom", "dad", "kid"},
	}

	jobs := make(chan Job, 256)
	out, wait := tr.Stream(context.Background(), 4, jobs)
	go func() {
		defer close(jobs)
		for i := 0; i < b.N; i++ {
			jobs <- Job{Rec: rec, ID: int64(i + 1)}
		}
	}()

	b.ReportAllocs()
	b.ResetTimer()
	n := 0
	for range out {
		n++
	}
	if err := wait(); err != nil {
		b.Fatal(err)
	}
	if n != b.N {
		b.Fatalf("streamed %d rows; want %d", n, b.N)
	}
}
