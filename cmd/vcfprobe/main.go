// vcfprobe samples the leading records of a VCF and prints the schema the
// loader would create, without touching any database. Useful for checking
// what an annotated input will turn into before running a full load.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"vcfdb/internal/annotation"
	"vcfdb/internal/blob"
	"vcfdb/internal/schema"
	"vcfdb/internal/transform"
	"vcfdb/internal/vcf"
)

var (
	flagVCF     = flag.String("vcf", "", "VCF file to sample (plain or gzip)")
	flagRecords = flag.Int("records", 10000, "number of leading records to sample for string widths")
	flagJSON    = flag.Bool("json", false, "emit the inferred schema as JSON instead of a table")
)

type columnJSON struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Width int    `json:"width,omitempty"`
}

type tableJSON struct {
	Table   string       `json:"table"`
	Columns []columnJSON `json:"columns"`
}

func main() {
	flag.Parse()
	if *flagVCF == "" {
		flag.Usage()
		os.Exit(2)
	}

	r, err := vcf.Open(*flagVCF)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer r.Close()
	hdr := r.Header()

	reg := annotation.NewRegistry()
	variants, err := schema.Variants(hdr, reg, nil)
	if err != nil {
		log.Fatalf("%v", err)
	}
	impacts := schema.Impacts()

	idxs := make([]int, len(hdr.Samples))
	for i := range idxs {
		idxs[i] = i
	}
	tr := &transform.Transformer{
		Header:      hdr,
		Registry:    reg,
		Codec:       blob.Snappy{},
		SampleIdxs:  idxs,
		SampleNames: hdr.Samples,
	}

	var (
		variantRows []map[string]any
		impactRows  []map[string]any
		sampled     int
	)
	for sampled < *flagRecords {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("skipping malformed input line: %v", err)
			continue
		}
		sampled++
		row, err := tr.Transform(rec, int64(sampled))
		if err != nil {
			log.Fatalf("%v", err)
		}
		variantRows = append(variantRows, row.Variant)
		impactRows = append(impactRows, row.Impacts...)
	}
	schema.GrowWidths(variants, variantRows)
	schema.GrowWidths(impacts, impactRows)

	fmt.Fprintf(os.Stderr, "sampled %d records, %d samples\n", sampled, len(hdr.Samples))

	defs := []*schema.Definition{variants, impacts}
	if *flagJSON {
		out := make([]tableJSON, len(defs))
		for i, d := range defs {
			t := tableJSON{Table: d.Table}
			for _, c := range d.Columns {
				cj := columnJSON{Name: c.Name, Type: c.Type.String()}
				if c.Type == schema.TypeString {
					cj.Width = c.Width
				}
				t.Columns = append(t.Columns, cj)
			}
			out[i] = t
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, d := range defs {
		fmt.Fprintf(w, "%s\t\t\n", d.Table)
		for _, c := range d.Columns {
			width := ""
			if c.Type == schema.TypeString {
				width = fmt.Sprintf("%d", c.Width)
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\n", c.Name, c.Type, width)
		}
		fmt.Fprintf(w, "\t\t\n")
	}
	w.Flush()
}
